package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/autodev/internal/codegen"
	"github.com/felixgeelhaar/autodev/internal/extract"
	"github.com/felixgeelhaar/autodev/internal/plan"
	"github.com/felixgeelhaar/autodev/internal/planner"
	"github.com/felixgeelhaar/autodev/internal/validate"
	"github.com/felixgeelhaar/autodev/internal/workspace"
)

// testCommand runs every test in the workspace. The same command serves
// feature tests and regression, since the test tree is flat.
const testCommand = "python -m unittest discover -s tests"

// attemptOutcome is what one pass through the plan produced. An empty
// failure means the attempt succeeded end to end, including the coherence
// gate.
type attemptOutcome struct {
	failure   string
	warnings  []string
	srcFiles  []string
	testFiles []string
	testsRan  bool
}

// runFeature drives one feature until it is committed or abandoned. Every
// failure becomes accumulated planner feedback; the loop is unbounded unless
// the budget configuration says otherwise.
func (o *Orchestrator) runFeature(ctx context.Context, task string, feat *Feature, first bool) error {
	start := time.Now()
	var feedback []string
	var planWarnings []string
	var prevIndex *workspace.Index
	lastFailure := ""
	repeats := 0

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.cfg.Budget.MaxIterations > 0 && attempt > o.cfg.Budget.MaxIterations {
			o.logger.Warn("feature abandoned: iteration budget exhausted",
				"feature", feat.Name, "attempts", attempt-1)
			feat.Status = StatusAbandoned
			return nil
		}
		if o.cfg.Budget.TimeBudget > 0 && time.Since(start) > o.cfg.Budget.TimeBudget {
			o.logger.Warn("feature abandoned: time budget exhausted",
				"feature", feat.Name, "elapsed", time.Since(start).Round(time.Second))
			feat.Status = StatusAbandoned
			return nil
		}

		feat.Status = StatusPlanned
		feat.Attempts = attempt
		o.reporter.AttemptStarted(feat.Name, attempt)
		o.saveState()

		outcome, err := o.attempt(ctx, task, feat, feedback, planWarnings)
		if err != nil {
			if !retryable(err) {
				return err
			}
			outcome.failure = err.Error()
		}
		planWarnings = outcome.warnings

		if outcome.failure == "" {
			if err := o.runChecks(ctx, feat, &outcome, first); err != nil {
				return err
			}
		}

		if outcome.failure == "" {
			o.finishFeature(ctx, feat, outcome)
			return nil
		}

		o.reporter.AttemptFailed(feat.Name, attempt, outcome.failure)
		if outcome.failure == lastFailure {
			repeats++
			o.logger.Warn("same failure repeated",
				"feature", feat.Name, "repeats", repeats)
		} else {
			repeats = 0
			lastFailure = outcome.failure
		}
		if idx, err := o.ws.BuildIndex(); err == nil {
			if prevIndex != nil {
				if idx.Fingerprint() == prevIndex.Fingerprint() {
					o.logger.Warn("attempt changed no files",
						"feature", feat.Name, "attempt", attempt)
				} else {
					o.logger.Info("files changed since last attempt",
						"feature", feat.Name, "paths", strings.Join(idx.ChangedSince(prevIndex), ", "))
				}
			}
			prevIndex = idx
		}
		feedback = append(feedback, outcome.failure)
	}
}

// attempt plans and executes one iteration. It returns an error only for
// conditions the caller must classify; plan-level failures come back inside
// the outcome.
func (o *Orchestrator) attempt(ctx context.Context, task string, feat *Feature, feedback, prevWarnings []string) (attemptOutcome, error) {
	var out attemptOutcome

	index, err := o.ws.BuildIndex()
	if err != nil {
		return out, err
	}
	artifacts, err := o.ws.Artifacts()
	if err != nil {
		return out, err
	}

	report := ""
	if len(artifacts) > 0 {
		if text := validate.Code(index, artifacts).Feedback(); text != "" {
			report = "COHERENCE ANALYSIS OF CURRENT CODE:\n" + text
		}
	}

	featureName := feat.Name
	if feat.Description != "" {
		featureName = fmt.Sprintf("%s (%s)", feat.Name, feat.Description)
	}

	p, err := o.planner.Plan(ctx, planner.Request{
		Task:            task,
		FeatureName:     featureName,
		FileSummaries:   planner.BuildFileSummaries(extract.New(index), artifacts),
		CoherenceReport: report,
		Feedback:        feedback,
		PlanWarnings:    prevWarnings,
	})
	if err != nil {
		return out, err
	}

	// Advisory only: warnings annotate the next planning call but never
	// block this one.
	warnings := validate.NewPlanValidator(index).Check(p)
	out.warnings = warnings
	for _, w := range warnings {
		o.logger.Warn("plan warning", "feature", feat.Name, "warning", w)
	}

	for _, a := range p.Actions {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		done, err := o.executeAction(ctx, task, feat, a, &out)
		if err != nil || done {
			return out, err
		}
	}

	return out, nil
}

// executeAction runs one planned step. done means the attempt should stop
// here with whatever the outcome says.
func (o *Orchestrator) executeAction(ctx context.Context, task string, feat *Feature, a plan.Action, out *attemptOutcome) (bool, error) {
	switch a.Type {
	case plan.ActionWriteFile:
		rel := o.ws.NormalizePath(a.Target)
		isTest := strings.HasPrefix(rel, workspace.TestsDir+"/")

		existing := ""
		if content, err := o.ws.ReadFile(rel); err == nil {
			existing = string(content)
		}

		content, err := o.gen.Generate(ctx, codegen.Request{
			Target:      rel,
			Instruction: a.ContentInstruction,
			Task:        task,
			Existing:    existing,
			IsTest:      isTest,
		})
		if err != nil {
			if !retryable(err) {
				return true, err
			}
			out.failure = err.Error()
			return true, nil
		}
		if err := o.ws.WriteFile(rel, []byte(content)); err != nil {
			return true, err
		}

		if isTest {
			out.testFiles = append(out.testFiles, rel)
			feat.Status = StatusTestWritten
		} else {
			out.srcFiles = append(out.srcFiles, rel)
			feat.Status = StatusCodeWritten
		}
		o.logger.Info("file written", "feature", feat.Name, "path", rel, "bytes", len(content))

	case plan.ActionReadFile:
		rel := o.ws.NormalizePath(a.Target)
		if !o.ws.Exists(rel) {
			o.logger.Warn("read_file target missing", "path", rel)
		}

	case plan.ActionExecuteCommand:
		command := o.ws.NormalizeCommand(a.Command())
		result := o.runner.Run(ctx, command)
		if !result.Passed() {
			out.failure = result.Feedback()
			return true, nil
		}
		if looksLikeTestCommand(command) {
			out.testsRan = true
			feat.Status = StatusFeatureTestRun
		}

	case plan.ActionRunRegression, plan.ActionGenerateDocs, plan.ActionEndTask:
		// Regression, documentation, and completion are owned by the loop,
		// not the plan; the markers are accepted and ignored.
	}

	return false, nil
}

// runChecks closes out a clean attempt: it makes sure the tests actually
// ran, runs regression against prior features, and applies the coherence
// gate. Any failure lands in the outcome as planner feedback.
func (o *Orchestrator) runChecks(ctx context.Context, feat *Feature, out *attemptOutcome, first bool) error {
	if len(out.testFiles) > 0 && !out.testsRan {
		result := o.runner.Run(ctx, testCommand)
		if !result.Passed() {
			out.failure = result.Feedback()
			return nil
		}
		out.testsRan = true
		feat.Status = StatusFeatureTestRun
	}

	if !first && len(o.ws.TestFiles()) > 0 {
		result := o.runner.Run(ctx, testCommand)
		if !result.Passed() {
			out.failure = "Regression tests failed:\n" + result.Feedback()
			return nil
		}
		feat.Status = StatusRegressionRun
	}

	index, err := o.ws.BuildIndex()
	if err != nil {
		return err
	}
	artifacts, err := o.ws.Artifacts()
	if err != nil {
		return err
	}
	if res := validate.Code(index, artifacts); !res.OK {
		out.failure = "Coherence validation failed:\n" + res.Feedback()
	}
	return nil
}

// finishFeature documents and commits a feature that passed every gate.
func (o *Orchestrator) finishFeature(ctx context.Context, feat *Feature, out attemptOutcome) {
	if rel, err := o.docs.WriteFeatureDoc(feat.Name, out.srcFiles, out.testFiles); err != nil {
		o.logger.WithError(err).Warn("feature documentation failed", "feature", feat.Name)
	} else {
		o.logger.Info("feature documented", "feature", feat.Name, "path", rel)
	}
	feat.Status = StatusDocumented

	o.commit(ctx, commitMessage(feat.Name))
	if o.repo != nil {
		feat.Status = StatusCommitted
	}
	o.saveState()
}

func looksLikeTestCommand(command string) bool {
	lower := strings.ToLower(command)
	for _, kw := range []string{"test", "phpunit", "pytest", "unittest"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
