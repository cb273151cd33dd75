package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfigs creates a temporary "configs" directory and chdirs into
// its parent, matching how viper's relative AddConfigPath entries resolve.
func setupTestConfigs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	configDir := filepath.Join(root, "configs")
	require.NoError(t, os.Mkdir(configDir, 0755))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(oldWd) })

	return configDir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
}

func TestLoad_Success(t *testing.T) {
	dir := setupTestConfigs(t)
	writeConfig(t, dir, `
log_level: debug
search:
  population: 40
  criterion: [branch, line, exception]
  dp_dir: /tmp/defect-scores
  program_source: /tmp/program.json
  variant: premosa
  iterations_wo_improvement: 3
breeder:
  backend: random
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 40, cfg.Search.Population)
	assert.Equal(t, []Criterion{CriterionBranch, CriterionLine, CriterionException}, cfg.Search.Criterion)
	assert.Equal(t, "/tmp/defect-scores", cfg.Search.DPDir)
	assert.Equal(t, "premosa", cfg.Search.Variant)
	assert.Equal(t, 3, cfg.Search.IterationsWithoutImprovement)
}

func TestLoad_Defaults(t *testing.T) {
	dir := setupTestConfigs(t)
	writeConfig(t, dir, `
search:
  dp_dir: /tmp/defect-scores
  program_source: /tmp/program.json
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.Population)
	assert.Equal(t, "dynamosa", cfg.Search.Variant)
	assert.Equal(t, 5, cfg.Search.IterationsWithoutImprovement)
	assert.Equal(t, 10, cfg.Search.ZeroCoverageTrigger)
	assert.Equal(t, "random", cfg.Breeder.Backend)
	assert.Equal(t, "json", cfg.Search.ProgramAdapter)
	assert.Equal(t, 30, cfg.Search.ExecutionTimeoutSeconds)
}

func TestLoad_MissingDPDir(t *testing.T) {
	dir := setupTestConfigs(t)
	writeConfig(t, dir, `
search:
  population: 10
  program_source: /tmp/program.json
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dp_dir")
}

func TestLoad_MissingProgramSource(t *testing.T) {
	dir := setupTestConfigs(t)
	writeConfig(t, dir, `
search:
  dp_dir: /tmp/x
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program_source")
}

func TestLoad_UnknownCriterion(t *testing.T) {
	dir := setupTestConfigs(t)
	writeConfig(t, dir, `
search:
  dp_dir: /tmp/x
  program_source: /tmp/program.json
  criterion: [not_a_real_criterion]
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown criterion")
}

func TestLoad_MissingFile(t *testing.T) {
	setupTestConfigs(t)
	_, err := Load()
	require.Error(t, err)
}

func TestResolveEnvVars(t *testing.T) {
	os.Setenv("DYNAMOSA_TEST_VAR", "resolved")
	defer os.Unsetenv("DYNAMOSA_TEST_VAR")

	assert.Equal(t, "resolved", resolveEnvVars("${DYNAMOSA_TEST_VAR}"))
	assert.Equal(t, "resolved", resolveEnvVars("$DYNAMOSA_TEST_VAR"))
	assert.Equal(t, "$NOT_SET_XYZ", resolveEnvVars("$NOT_SET_XYZ"))
}
