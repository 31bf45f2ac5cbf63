package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autodev/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8081", cfg.Planner.Server)
	assert.Equal(t, 0.7, cfg.Planner.Temperature)
	assert.Equal(t, 2048, cfg.Planner.MaxTokens)
	assert.Equal(t, 180*time.Second, cfg.Planner.Timeout)

	assert.Equal(t, "http://localhost:8080", cfg.Executor.Server)
	assert.Equal(t, 0.2, cfg.Executor.Temperature)
	assert.Equal(t, 8192, cfg.Executor.MaxTokens)
	assert.Equal(t, 300*time.Second, cfg.Executor.Timeout)

	assert.Equal(t, 60*time.Second, cfg.Tools.CommandTimeout)
	assert.Equal(t, "output", cfg.Workspace.Root)
	assert.Zero(t, cfg.Budget.MaxIterations)
	assert.Zero(t, cfg.Budget.TimeBudget)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
planner:
  server: http://10.0.0.5:9000
  temperature: 0.5
workspace:
  root: build
budget:
  max_iterations: 12
  time_budget: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000", cfg.Planner.Server)
	assert.Equal(t, 0.5, cfg.Planner.Temperature)
	// untouched keys keep their defaults
	assert.Equal(t, 2048, cfg.Planner.MaxTokens)
	assert.Equal(t, "http://localhost:8080", cfg.Executor.Server)
	assert.Equal(t, "build", cfg.Workspace.Root)
	assert.Equal(t, 12, cfg.Budget.MaxIterations)
	assert.Equal(t, 30*time.Minute, cfg.Budget.TimeBudget)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor:\n  model: from-file\n"), 0o600))

	t.Setenv("AUTODEV_EXECUTOR_MODEL", "from-env")
	t.Setenv("AUTODEV_EXECUTOR_MAX_TOKENS", "4096")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Executor.Model)
	assert.Equal(t, 4096, cfg.Executor.MaxTokens)
}

func TestLoadGitTokenFallsBackToGithubToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ghp_test", cfg.Git.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodeConfigLoad, agentErr.Code)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner: [unbalanced"), 0o600))

	_, err := Load(path)
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodeConfigLoad, agentErr.Code)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty planner server", func(c *Config) { c.Planner.Server = "" }},
		{"bad executor url", func(c *Config) { c.Executor.Server = "not a url" }},
		{"temperature out of range", func(c *Config) { c.Planner.Temperature = 3.5 }},
		{"zero max tokens", func(c *Config) { c.Executor.MaxTokens = 0 }},
		{"zero timeout", func(c *Config) { c.Planner.Timeout = 0 }},
		{"zero command timeout", func(c *Config) { c.Tools.CommandTimeout = 0 }},
		{"empty workspace root", func(c *Config) { c.Workspace.Root = "" }},
		{"negative iterations", func(c *Config) { c.Budget.MaxIterations = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var agentErr *errors.AgentError
			require.ErrorAs(t, err, &agentErr)
			assert.Equal(t, errors.ErrCodeConfigInvalid, agentErr.Code)
		})
	}
}
