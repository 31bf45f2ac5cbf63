// Package cmd wires the configuration, collaborators, and orchestrator into
// the autodev command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autodev/internal/codegen"
	"github.com/felixgeelhaar/autodev/internal/config"
	"github.com/felixgeelhaar/autodev/internal/docs"
	"github.com/felixgeelhaar/autodev/internal/log"
	"github.com/felixgeelhaar/autodev/internal/orchestrator"
	"github.com/felixgeelhaar/autodev/internal/planner"
	"github.com/felixgeelhaar/autodev/internal/provider"
	"github.com/felixgeelhaar/autodev/internal/tools"
	"github.com/felixgeelhaar/autodev/internal/ux"
	"github.com/felixgeelhaar/autodev/internal/vcs"
	"github.com/felixgeelhaar/autodev/internal/workspace"
)

var flags struct {
	configPath    string
	taskFile      string
	outputDir     string
	logLevel      string
	logFormat     string
	maxIterations int
	timeBudget    time.Duration
	noGit         bool
}

var rootCmd = &cobra.Command{
	Use:   "autodev",
	Short: "Autonomous planner/executor development agent",
	Long: `autodev reads a task description and builds the project it describes by
driving two LLM collaborators in a loop: a planner that decides what to do
next and an executor that writes the code. Every feature is tested, checked
for cross-file coherence, documented, and committed before the next one
starts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

// ExecuteContext runs the root command under the given context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML configuration file")
	rootCmd.Flags().StringVar(&flags.taskFile, "task", "", "path to the task description (overrides workspace.task_file)")
	rootCmd.Flags().StringVar(&flags.outputDir, "output", "", "workspace directory for the generated project (overrides workspace.root)")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&flags.logFormat, "log-format", "", "log format: json or text")
	rootCmd.Flags().IntVar(&flags.maxIterations, "max-iterations", -1, "attempts per feature before abandoning it (0 = unbounded)")
	rootCmd.Flags().DurationVar(&flags.timeBudget, "time-budget", -1, "wall-clock time per feature before abandoning it (0 = unbounded)")
	rootCmd.Flags().BoolVar(&flags.noGit, "no-git", false, "disable version control integration")
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.Log.Level),
		Format: log.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
	log.SetDefault(logger)

	plannerClient := provider.NewHTTPClient(provider.RolePlanner, cfg.Planner, logger)
	executorClient := provider.NewHTTPClient(provider.RoleExecutor, cfg.Executor, logger)

	// Both collaborators must be reachable before anything is planned;
	// failing here beats failing three actions into a feature.
	if err := plannerClient.Health(ctx); err != nil {
		return err
	}
	if err := executorClient.Health(ctx); err != nil {
		return err
	}

	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return err
	}

	var repo orchestrator.Committer
	var gitRepo *vcs.Repository
	if !flags.noGit {
		r, err := vcs.EnsureRepository(ws.Root(), cfg.Git, logger)
		if err != nil {
			// A broken git setup degrades to a run without commits.
			logger.WithError(err).Warn("version control disabled")
		} else {
			repo = r
			gitRepo = r
		}
	}

	o := orchestrator.New(orchestrator.Deps{
		Config:    cfg,
		Workspace: ws,
		Planner:   planner.New(plannerClient, logger),
		Generator: codegen.New(executorClient, logger),
		Runner:    tools.NewRunner(ws.Root(), cfg.Tools.CommandTimeout, logger),
		Repo:      repo,
		Docs:      docs.NewWriter(ws),
		Reporter:  ux.New(os.Stdout),
		Logger:    logger,
	})

	if err := o.Run(ctx); err != nil {
		return err
	}

	if gitRepo != nil {
		if head := gitRepo.Head(); head != "" {
			fmt.Fprintf(os.Stdout, "Generated project: %s (at %s)\n", ws.Root(), head)
			return nil
		}
	}
	fmt.Fprintf(os.Stdout, "Generated project: %s\n", ws.Root())
	return nil
}

// loadConfig layers the command-line flags over the file and environment
// configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.taskFile != "" {
		cfg.Workspace.TaskFile = flags.taskFile
	}
	if flags.outputDir != "" {
		cfg.Workspace.Root = flags.outputDir
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if flags.maxIterations >= 0 {
		cfg.Budget.MaxIterations = flags.maxIterations
	}
	if flags.timeBudget >= 0 {
		cfg.Budget.TimeBudget = flags.timeBudget
	}

	return cfg, cfg.Validate()
}
