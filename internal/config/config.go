// Package config loads agent configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/felixgeelhaar/autodev/internal/errors"
)

// envPrefix is stripped from environment variables before mapping them onto
// config keys: AUTODEV_PLANNER_SERVER -> planner.server.
const envPrefix = "AUTODEV_"

// RoleConfig describes one LLM collaborator endpoint. The planner and the
// executor are both OpenAI-compatible chat-completion servers, but they run
// with different sampling settings: the planner needs room to explore, the
// executor needs to be deterministic.
type RoleConfig struct {
	// Server is the base URL of the OpenAI-compatible endpoint.
	Server string `koanf:"server"`

	// Model is the model identifier sent in each completion request.
	Model string `koanf:"model"`

	// Temperature controls sampling randomness.
	Temperature float64 `koanf:"temperature"`

	// MaxTokens caps the completion length per request.
	MaxTokens int `koanf:"max_tokens"`

	// Timeout bounds a single completion round trip.
	Timeout time.Duration `koanf:"timeout"`
}

// ToolsConfig controls how shell commands from plans are executed.
type ToolsConfig struct {
	// CommandTimeout bounds a single command execution. A command that
	// exceeds it is treated like any other failing command.
	CommandTimeout time.Duration `koanf:"command_timeout"`
}

// WorkspaceConfig describes where the agent reads its task and writes the
// generated project.
type WorkspaceConfig struct {
	// Root is the directory holding the generated project tree.
	Root string `koanf:"root"`

	// TaskFile is the path of the task description, relative to the
	// working directory unless absolute.
	TaskFile string `koanf:"task_file"`
}

// GitConfig controls version control integration. Commits are always made
// locally; pushing is opt-in and best effort.
type GitConfig struct {
	Remote      string `koanf:"remote"`
	Token       string `koanf:"token"`
	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`
	Push        bool   `koanf:"push"`
}

// BudgetConfig bounds the per-feature retry loop. Zero values mean
// unbounded: the loop then only exits on success or an external stop.
type BudgetConfig struct {
	// MaxIterations is the maximum number of attempts per feature before
	// it is abandoned. Zero disables the limit.
	MaxIterations int `koanf:"max_iterations"`

	// TimeBudget is the maximum wall-clock time per feature before it is
	// abandoned. Zero disables the limit.
	TimeBudget time.Duration `koanf:"time_budget"`
}

// LogConfig holds logging settings as strings so they can come from YAML or
// environment without import cycles; internal/log parses them.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the complete, immutable agent configuration. Build it with Load;
// nothing mutates it after that.
type Config struct {
	Planner   RoleConfig      `koanf:"planner"`
	Executor  RoleConfig      `koanf:"executor"`
	Tools     ToolsConfig     `koanf:"tools"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Git       GitConfig       `koanf:"git"`
	Budget    BudgetConfig    `koanf:"budget"`
	Log       LogConfig       `koanf:"log"`
}

// defaultYAML carries the built-in defaults. Loading them through the same
// parser as user files keeps one source of truth for key names.
const defaultYAML = `
planner:
  server: http://localhost:8081
  model: planner
  temperature: 0.7
  max_tokens: 2048
  timeout: 180s
executor:
  server: http://localhost:8080
  model: executor
  temperature: 0.2
  max_tokens: 8192
  timeout: 300s
tools:
  command_timeout: 60s
workspace:
  root: output
  task_file: task.txt
git:
  author_name: autodev
  author_email: autodev@localhost
  push: false
budget:
  max_iterations: 0
  time_budget: 0s
log:
  level: info
  format: json
`

// Load builds the configuration from built-in defaults, an optional YAML
// file, and AUTODEV_* environment variables, in ascending precedence.
// An empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "built-in defaults are invalid", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, fmt.Sprintf("cannot read config file %s", path), err).
				WithSuggestion("Check the path passed with --config")
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, fmt.Sprintf("cannot parse config file %s", path), err).
				WithSuggestion("The config file must be valid YAML")
		}
	}

	// AUTODEV_PLANNER_SERVER -> planner.server
	// AUTODEV_EXECUTOR_MAX_TOKENS -> executor.max_tokens
	// The first underscore after the prefix separates section from key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "cannot read environment overrides", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "cannot decode configuration", err)
	}

	if cfg.Git.Token == "" {
		cfg.Git.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures deep inside the feature loop.
func (c *Config) Validate() error {
	if err := validateRole("planner", c.Planner); err != nil {
		return err
	}
	if err := validateRole("executor", c.Executor); err != nil {
		return err
	}
	if c.Tools.CommandTimeout <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "tools.command_timeout must be positive")
	}
	if c.Workspace.Root == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "workspace.root must not be empty")
	}
	if c.Budget.MaxIterations < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "budget.max_iterations must not be negative")
	}
	if c.Budget.TimeBudget < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "budget.time_budget must not be negative")
	}
	return nil
}

func validateRole(name string, role RoleConfig) error {
	if role.Server == "" {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.server must not be empty", name))
	}
	u, err := url.Parse(role.Server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.server is not a valid URL: %s", name, role.Server)).
			WithSuggestion("Use the form http://host:port")
	}
	if role.Model == "" {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.model must not be empty", name))
	}
	if role.Temperature < 0 || role.Temperature > 2 {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.temperature must be between 0 and 2", name))
	}
	if role.MaxTokens <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.max_tokens must be positive", name))
	}
	if role.Timeout <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s.timeout must be positive", name))
	}
	return nil
}
