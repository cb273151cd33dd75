package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dynamosa/dynamosa/internal/archive"
	"github.com/dynamosa/dynamosa/internal/breed"
	"github.com/dynamosa/dynamosa/internal/config"
	"github.com/dynamosa/dynamosa/internal/defectscore"
	"github.com/dynamosa/dynamosa/internal/goalinput"
	_ "github.com/dynamosa/dynamosa/internal/goalinput/jsonprogram" // registers the "json" adapter
	"github.com/dynamosa/dynamosa/internal/goalmanager"
	"github.com/dynamosa/dynamosa/internal/logger"
	"github.com/dynamosa/dynamosa/internal/registry"
	"github.com/dynamosa/dynamosa/internal/sandbox"
	"github.com/dynamosa/dynamosa/internal/search"
)

// NewRunCommand creates the "run" subcommand.
func NewRunCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one many-objective search session and print the exit-contract summary.",
		Long: `run loads configs/config.yaml (or config.yaml in the directory
given by --config-dir), loads per-class defect-prediction scores, builds the goal
set from the configured program adapter, and runs the DynaMOSA/PreMOSA
search loop to completion, printing the final archive summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			if configPath != "" {
				extra = append(extra, configPath)
			}
			cfg, err := config.Load(extra...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runSearch(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config-dir", "", "directory containing config.yaml (overrides the default search path)")

	return cmd
}

func runSearch(cfg *config.Config) error {
	logLevel := cfg.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Init(logLevel)

	logger.Info("dynamosa: loading program adapter %q from %q", cfg.Search.ProgramAdapter, cfg.Search.ProgramSource)
	adapter, err := goalinput.New(cfg.Search.ProgramAdapter, cfg.Search.ProgramSource)
	if err != nil {
		return fmt.Errorf("failed to load program adapter: %w", err)
	}

	goals := adapter.Goals()
	logger.Info("dynamosa: loaded %d goals", len(goals))

	scores, err := defectscore.Load(cfg.Search.DPDir)
	if err != nil {
		return fmt.Errorf("failed to load defect-prediction scores: %w", err)
	}
	if missing := defectscore.ApplyBuggyLabels(scores, goals); len(missing) > 0 {
		logger.Warn("dynamosa: %d defect-score entries matched no goal: %v", len(missing), missing)
	}

	arc := archive.New(cfg.Search.MaxArchiveStatements)
	reg := registry.New()

	variant := goalmanager.VariantDynaMOSA
	if cfg.Search.Variant == string(goalmanager.VariantPreMOSA) {
		variant = goalmanager.VariantPreMOSA
	}

	mgr := goalmanager.Build(goals, adapter.ControlFlow(), adapter.Controlling(), adapter.Paths(), arc, reg, goalmanager.Params{
		Variant:                      variant,
		IterationsWithoutImprovement: cfg.Search.IterationsWithoutImprovement,
		ZeroCoverageTrigger:          cfg.Search.ZeroCoverageTrigger,
	})

	breeder, err := buildBreeder(cfg)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Search.ExecutionTimeoutSeconds) * time.Second
	exec := sandbox.NewExecutor(timeout)

	var stopping []search.StoppingCondition
	if cfg.Search.MaxGenerations > 0 {
		stopping = append(stopping, search.MaxGenerations(cfg.Search.MaxGenerations))
	}
	if cfg.Search.MaxEvaluations > 0 {
		stopping = append(stopping, search.MaxEvaluations(cfg.Search.MaxEvaluations))
	}
	if cfg.Search.TimeBudgetSeconds > 0 {
		stopping = append(stopping, search.TimeBudget(time.Duration(cfg.Search.TimeBudgetSeconds)*time.Second))
	}
	stopping = append(stopping, search.ArchiveBudget())

	engine := search.NewEngine(mgr, exec, breeder, cfg.Search.Population, stopping...)

	logger.Info("dynamosa: starting %s search", variant)
	result := engine.Run(context.Background())

	fmt.Printf("generations: %d\n", result.Generations)
	fmt.Printf("evaluations: %d\n", result.Evaluations)
	fmt.Printf("stopped_by: %s\n", result.StoppedBy)
	fmt.Printf("archived_tests: %d\n", len(result.Tests))
	fmt.Printf("covered_goals: %d\n", mgr.Archive().CoveredCount())
	fmt.Printf("uncovered_goals: %d\n", len(mgr.Uncovered()))
	fmt.Printf("trigger_fired: %t\n", mgr.TriggerFired())

	return nil
}

func buildBreeder(cfg *config.Config) (search.Breeder, error) {
	switch cfg.Breeder.Backend {
	case "", "random":
		gen := breed.NewArgRandomGenerator(cfg.Search.TestCommand, cfg.Search.TestArgPool, 0, 4, 1)
		return breed.NewRandomBreeder(gen), nil
	case "llm":
		return breed.NewLLMBreeder(cfg.Breeder.LLM.APIKey, cfg.Breeder.LLM.Model, "", float32(cfg.Breeder.LLM.Temperature)), nil
	default:
		return nil, fmt.Errorf("unknown breeder.backend: %s", cfg.Breeder.Backend)
	}
}
