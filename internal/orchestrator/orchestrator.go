// Package orchestrator drives the feature loop: plan, generate, test,
// validate, document, commit. It owns the lifecycle of every feature and the
// retry policy around failures.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/autodev/internal/codegen"
	"github.com/felixgeelhaar/autodev/internal/config"
	"github.com/felixgeelhaar/autodev/internal/docs"
	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/log"
	"github.com/felixgeelhaar/autodev/internal/plan"
	"github.com/felixgeelhaar/autodev/internal/planner"
	"github.com/felixgeelhaar/autodev/internal/tools"
	"github.com/felixgeelhaar/autodev/internal/workspace"
)

// Status is a feature's position in its lifecycle. Statuses only move
// forward within an attempt; a retry resets the feature to planned.
type Status string

const (
	StatusPlanned        Status = "planned"
	StatusTestWritten    Status = "test_written"
	StatusCodeWritten    Status = "code_written"
	StatusFeatureTestRun Status = "feature_tests_run"
	StatusRegressionRun  Status = "regression_run"
	StatusDocumented     Status = "documented"
	StatusCommitted      Status = "committed"
	StatusAbandoned      Status = "abandoned"
)

// Feature tracks one unit of work through the loop.
type Feature struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Status      Status `yaml:"status"`
	Attempts    int    `yaml:"attempts"`
}

// PlanSource produces feature lists and action plans.
type PlanSource interface {
	Plan(ctx context.Context, req planner.Request) (plan.Plan, error)
	Features(ctx context.Context, task string) ([]planner.FeatureSpec, error)
}

// ContentSource produces file content from instructions.
type ContentSource interface {
	Generate(ctx context.Context, req codegen.Request) (string, error)
}

// CommandRunner executes shell commands in the workspace.
type CommandRunner interface {
	Run(ctx context.Context, command string) tools.Result
}

// Committer records finished features in version control. A nil Committer
// disables version control entirely.
type Committer interface {
	Commit(message string) error
	Push(ctx context.Context) error
}

// Reporter receives progress events for the console. Implementations must
// tolerate being called from a single goroutine only.
type Reporter interface {
	RunStarted(task string, features int)
	FeatureStarted(name string, index, total int)
	AttemptStarted(name string, attempt int)
	AttemptFailed(name string, attempt int, reason string)
	FeatureCompleted(name string)
	FeatureAbandoned(name string, attempts int)
	RunCompleted(completed, abandoned int)
}

type nopReporter struct{}

func (nopReporter) RunStarted(string, int)            {}
func (nopReporter) FeatureStarted(string, int, int)   {}
func (nopReporter) AttemptStarted(string, int)        {}
func (nopReporter) AttemptFailed(string, int, string) {}
func (nopReporter) FeatureCompleted(string)           {}
func (nopReporter) FeatureAbandoned(string, int)      {}
func (nopReporter) RunCompleted(int, int)             {}

// Deps are the orchestrator's collaborators. Config, Workspace, Planner,
// Generator, Runner, and Logger are required; the rest are optional.
type Deps struct {
	Config    *config.Config
	Workspace *workspace.Workspace
	Planner   PlanSource
	Generator ContentSource
	Runner    CommandRunner
	Repo      Committer
	Docs      *docs.Writer
	Reporter  Reporter
	Logger    *log.Logger
}

// Orchestrator runs the feature loop to completion.
type Orchestrator struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	planner  PlanSource
	gen      ContentSource
	runner   CommandRunner
	repo     Committer
	docs     *docs.Writer
	reporter Reporter
	logger   *log.Logger
	state    *runState
}

// New assembles an Orchestrator from its collaborators.
func New(d Deps) *Orchestrator {
	if d.Reporter == nil {
		d.Reporter = nopReporter{}
	}
	if d.Docs == nil {
		d.Docs = docs.NewWriter(d.Workspace)
	}
	return &Orchestrator{
		cfg:      d.Config,
		ws:       d.Workspace,
		planner:  d.Planner,
		gen:      d.Generator,
		runner:   d.Runner,
		repo:     d.Repo,
		docs:     d.Docs,
		reporter: d.Reporter,
		logger:   d.Logger,
	}
}

// Run executes the whole task: break it into features, drive each feature
// through the loop, then write the final documentation. It returns an error
// only for unrecoverable conditions; individual feature failures end in
// abandonment, not a run error.
func (o *Orchestrator) Run(ctx context.Context) error {
	task, err := o.loadTask()
	if err != nil {
		return err
	}

	specs, err := o.planner.Features(ctx, task)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		// A planner that cannot decompose still gets one shot at the whole
		// thing.
		specs = []planner.FeatureSpec{{Name: "initial implementation", Description: task}}
	}

	features := make([]*Feature, len(specs))
	for i, s := range specs {
		features[i] = &Feature{Name: s.Name, Description: s.Description, Status: StatusPlanned}
	}

	o.state = newRunState(task, features)
	o.logger.Info("run started", "run_id", o.state.RunID, "features", len(features))
	o.reporter.RunStarted(task, len(features))

	completed, abandoned := 0, 0
	for i, feat := range features {
		if err := ctx.Err(); err != nil {
			return err
		}

		o.reporter.FeatureStarted(feat.Name, i+1, len(features))
		if err := o.runFeature(ctx, task, feat, i == 0); err != nil {
			return err
		}

		switch feat.Status {
		case StatusAbandoned:
			abandoned++
			o.reporter.FeatureAbandoned(feat.Name, feat.Attempts)
		default:
			completed++
			o.reporter.FeatureCompleted(feat.Name)
		}
		o.saveState()
	}

	if _, err := o.docs.WriteProjectReadme(task); err != nil {
		o.logger.WithError(err).Warn("final documentation failed")
	} else {
		o.commit(ctx, "Final documentation and project completion")
	}

	o.logger.Info("run finished",
		"run_id", o.state.RunID,
		"completed", completed,
		"abandoned", abandoned,
		"elapsed", time.Since(o.state.StartedAt).Round(time.Second))
	o.reporter.RunCompleted(completed, abandoned)
	return nil
}

// loadTask reads the task description file named in the configuration.
func (o *Orchestrator) loadTask() (string, error) {
	path := o.cfg.Workspace.TaskFile
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewTaskMissingError(path)
	}
	task := strings.TrimSpace(string(content))
	if task == "" {
		return "", errors.NewTaskMissingError(path)
	}
	return task, nil
}

// commit records a milestone in version control. Version control failures
// are logged, never propagated: finished work stays finished.
func (o *Orchestrator) commit(ctx context.Context, message string) {
	if o.repo == nil {
		return
	}
	if err := o.repo.Commit(message); err != nil {
		o.logger.WithError(err).Warn("commit failed", "message", message)
		return
	}
	if err := o.repo.Push(ctx); err != nil {
		o.logger.WithError(err).Warn("push failed")
	}
}

// retryable reports whether an error should become planner feedback instead
// of ending the run.
func retryable(err error) bool {
	var agentErr *errors.AgentError
	if stderrors.As(err, &agentErr) {
		return agentErr.IsRetryable()
	}
	return false
}

// commitMessage is the fixed per-feature commit format.
func commitMessage(feature string) string {
	return fmt.Sprintf("Feature: %s - implemented and tested", feature)
}
