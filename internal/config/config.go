// Package config loads the search engine's configuration from a YAML file,
// with environment-variable interpolation and .env support.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/dynamosa/dynamosa/internal/dynerr"
)

func newConfigurationError(stage string, err error) error {
	return dynerr.NewConfigurationError(stage, err)
}

// Criterion is one of the coverage criteria spec.md §6 enumerates.
type Criterion string

const (
	CriterionBranch            Criterion = "branch"
	CriterionException         Criterion = "exception"
	CriterionLine              Criterion = "line"
	CriterionStatement         Criterion = "statement"
	CriterionWeakMutation      Criterion = "weak_mutation"
	CriterionStrongMutation    Criterion = "strong_mutation"
	CriterionMethod            Criterion = "method"
	CriterionMethodNoException Criterion = "method_no_exception"
	CriterionInput             Criterion = "input"
	CriterionOutput            Criterion = "output"
	CriterionTryCatch          Criterion = "try_catch"
	CriterionCBranch           Criterion = "cbranch"
)

// SearchConfig holds the many-objective search parameters of spec.md §6.
type SearchConfig struct {
	// Population is the target population size.
	Population int `mapstructure:"population"`

	// Criterion lists coverage criteria by name; Validate rejects unknown
	// names. The goal set is not filtered by it: every goal the program
	// adapter supplies is used, whatever this list holds.
	Criterion []Criterion `mapstructure:"criterion"`

	// Variant selects "dynamosa" or "premosa" (spec.md §4.8).
	Variant string `mapstructure:"variant"`

	// IterationsWithoutImprovement is PreMOSA's stagnation trigger threshold.
	IterationsWithoutImprovement int `mapstructure:"iterations_wo_improvement"`

	// ZeroCoverageTrigger is PreMOSA's generation index trigger when nothing
	// has ever been covered.
	ZeroCoverageTrigger int `mapstructure:"zero_coverage_trigger"`

	// MaxArchiveStatements is the cumulative statement budget for the archive.
	MaxArchiveStatements int `mapstructure:"max_archive_statements"`

	// DPDir is the directory holding per-class defect-score CSVs.
	DPDir string `mapstructure:"dp_dir"`

	// MaxGenerations bounds the search loop (0 = unlimited).
	MaxGenerations int `mapstructure:"max_generations"`

	// MaxEvaluations bounds the number of fitness evaluations (0 = unlimited).
	MaxEvaluations int `mapstructure:"max_evaluations"`

	// TimeBudgetSeconds bounds wall-clock time (0 = unlimited).
	TimeBudgetSeconds int `mapstructure:"time_budget_seconds"`

	// ProgramAdapter names the goalinput.ProgramAdapter that supplies
	// the goal set, structural graph, dependency attachment, call
	// graph, and path counts for one program under test (spec.md §1's
	// external bytecode/CFG extractor).
	ProgramAdapter string `mapstructure:"program_adapter"`

	// ProgramSource is passed verbatim to the named adapter's factory
	// (a file path for the bundled "json" adapter).
	ProgramSource string `mapstructure:"program_source"`

	// ExecutionTimeoutSeconds bounds each test case's wall-clock
	// execution time in internal/sandbox's reference executor.
	ExecutionTimeoutSeconds int `mapstructure:"execution_timeout_seconds"`

	// TestCommand is the subprocess internal/breed's reference random
	// generator invokes to run a candidate test case (spec.md's opaque
	// TestCase is, for this reference wiring, "run this command with
	// these arguments").
	TestCommand string `mapstructure:"test_command"`

	// TestArgPool is the vocabulary internal/breed's ArgRandomGenerator
	// draws arguments from.
	TestArgPool []string `mapstructure:"test_arg_pool"`
}

// BreederConfig selects and configures the outer search driver's breeding
// backend. This is an external collaborator per spec.md §1; dynamosa ships
// a reference backend selectable here.
type BreederConfig struct {
	// Backend is "random" or "llm".
	Backend string `mapstructure:"backend"`
	LLM     LLMConfig `mapstructure:"llm"`
}

// LLMConfig configures the optional LLM-guided breeder backend.
type LLMConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Temperature float64 `mapstructure:"temperature"`
}

// Config is the top-level application configuration.
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	LogDir   string        `mapstructure:"log_dir"`
	Search   SearchConfig  `mapstructure:"search"`
	Breeder  BreederConfig `mapstructure:"breeder"`
}

// envVarPattern matches environment variable placeholders: ${VAR_NAME} or $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// resolveEnvVars replaces environment variable placeholders in a string with
// their values. Unset variables are left as-is.
func resolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			varName = match[2 : len(match)-1]
		} else if strings.HasPrefix(match, "$") {
			varName = match[1:]
		}
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}

// LoadEnvFromDotEnv loads KEY=value pairs from a .env file in dir, if present.
func LoadEnvFromDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("invalid line in .env file at line %d: missing '='", lineNum+1)
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		} else if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
			value = value[1 : len(value)-1]
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// resolveInMap recursively resolves environment variables in map values.
func resolveInMap(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if resolved := resolveEnvVars(val); resolved != val {
				m[k] = resolved
			}
		case map[string]interface{}:
			resolveInMap(val)
		case []interface{}:
			resolveInSlice(val)
		}
	}
}

func resolveInSlice(s []interface{}) {
	for i, v := range s {
		switch val := v.(type) {
		case string:
			s[i] = resolveEnvVars(val)
		case map[string]interface{}:
			resolveInMap(val)
		}
	}
}

// Load reads config.yaml (searched in "configs", "../configs",
// "../../configs", and the given extra paths) and unmarshals it into Config,
// resolving ${VAR}/$VAR placeholders against the environment first.
func Load(extraPaths ...string) (*Config, error) {
	_ = LoadEnvFromDotEnv(".")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range extraPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetDefault("search.population", 50)
	v.SetDefault("search.variant", "dynamosa")
	v.SetDefault("search.iterations_wo_improvement", 5)
	v.SetDefault("search.zero_coverage_trigger", 10)
	v.SetDefault("search.max_archive_statements", 0)
	v.SetDefault("search.program_adapter", "json")
	v.SetDefault("search.execution_timeout_seconds", 30)
	v.SetDefault("breeder.backend", "random")

	if err := v.ReadInConfig(); err != nil {
		return nil, newConfigurationError("reading config file", err)
	}

	settings := v.AllSettings()
	resolveInMap(settings)
	resolved := viper.New()
	for key, value := range settings {
		resolved.Set(key, value)
	}

	var cfg Config
	if err := resolved.Unmarshal(&cfg); err != nil {
		return nil, newConfigurationError("unmarshaling config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// knownCriteria is the set valid per spec.md §6.
var knownCriteria = map[Criterion]bool{
	CriterionBranch: true, CriterionException: true, CriterionLine: true,
	CriterionStatement: true, CriterionWeakMutation: true, CriterionStrongMutation: true,
	CriterionMethod: true, CriterionMethodNoException: true, CriterionInput: true,
	CriterionOutput: true, CriterionTryCatch: true, CriterionCBranch: true,
}

// Validate checks invariants a malformed config.yaml could violate. A
// ConfigurationError here is fatal at startup per spec.md §7.
func (c *Config) Validate() error {
	if c.Search.DPDir == "" {
		return newConfigurationError("validating config", fmt.Errorf("search.dp_dir must be set"))
	}
	if c.Search.ProgramSource == "" {
		return newConfigurationError("validating config", fmt.Errorf("search.program_source must be set"))
	}
	for _, crit := range c.Search.Criterion {
		if !knownCriteria[crit] {
			return newConfigurationError("validating config", fmt.Errorf("unknown criterion: %s", crit))
		}
	}
	if c.Search.Variant != "dynamosa" && c.Search.Variant != "premosa" {
		return newConfigurationError("validating config", fmt.Errorf("unknown search.variant: %s", c.Search.Variant))
	}
	return nil
}
