// Package planner turns task context into action plans by prompting the
// planner collaborator and parsing its response.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/log"
	"github.com/felixgeelhaar/autodev/internal/plan"
	"github.com/felixgeelhaar/autodev/internal/provider"
)

const systemPrompt = "You are a Senior Software Architect. Respond with JSON arrays only. " +
	"Keep content_instruction fields SHORT (max 300 chars). NO code in responses."

const planSchema = `[{"step": int, "action": "write_file"|"read_file"|"execute_command"|"run_regression_tests"|"generate_docs"|"end_task", "target": str, "content_instruction": str, "feature_name": str}]`

// Request carries everything the planner sees for one planning call.
// Feedback accumulates across retries, most recent failure last, so the
// planner never plans against stale error state.
type Request struct {
	Task            string
	FeatureName     string
	FileSummaries   string
	CoherenceReport string
	Feedback        []string
	PlanWarnings    []string
}

// Planner asks the planning collaborator for plans.
type Planner struct {
	client provider.Client
	logger *log.Logger
}

// New creates a Planner over a completion client.
func New(client provider.Client, logger *log.Logger) *Planner {
	return &Planner{client: client, logger: logger}
}

// Plan requests and parses an action plan. A malformed response comes back
// as a plan-parse error the orchestrator feeds into the retry loop.
func (p *Planner) Plan(ctx context.Context, req Request) (plan.Plan, error) {
	messages := []provider.Message{
		provider.System(systemPrompt),
		provider.User(buildContext(req)),
	}

	response, err := p.client.Complete(ctx, messages)
	if err != nil {
		return plan.Plan{}, err
	}

	parsed, err := plan.Parse(response)
	if err != nil {
		p.logger.WithError(err).Warn("planner response could not be parsed")
		return plan.Plan{}, err
	}

	p.logger.Info("plan received",
		"feature", req.FeatureName,
		"declared_feature", parsed.FeatureName(),
		"actions", len(parsed.Actions))
	for _, a := range parsed.Actions {
		p.logger.Debug("planned action", "type", string(a.Type), "target", a.Target)
	}

	return parsed, nil
}

// FeatureSpec is one feature the planner wants built, in build order.
type FeatureSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Features asks the planner to break the task into an ordered feature list.
func (p *Planner) Features(ctx context.Context, task string) ([]FeatureSpec, error) {
	prompt := fmt.Sprintf(`TASK:
%s

Break this task into a short ordered list of features to implement one at a time.
Each feature must be independently testable. Start with foundations (data layer)
before things that depend on them.

Respond with a JSON array only. Schema: [{"name": str, "description": str}]`, task)

	response, err := p.client.Complete(ctx, []provider.Message{
		provider.System(systemPrompt),
		provider.User(prompt),
	})
	if err != nil {
		return nil, err
	}

	var features []FeatureSpec
	if err := plan.DecodeArray(response, &features); err != nil {
		return nil, err
	}

	// Drop unnamed entries rather than failing the run over one bad row.
	valid := features[:0]
	for _, f := range features {
		if strings.TrimSpace(f.Name) != "" {
			valid = append(valid, f)
		}
	}

	p.logger.Info("feature list received", "features", len(valid))
	return valid, nil
}

// buildContext assembles the user message for a planning call. Sections
// with no content are omitted entirely to keep the prompt small.
func buildContext(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK:\n%s\n", req.Task)

	if req.FeatureName != "" {
		fmt.Fprintf(&b, "\nCURRENT FEATURE: %s\n", req.FeatureName)
	}

	if req.FileSummaries != "" {
		fmt.Fprintf(&b, "\nEXISTING FILES:\n%s\n", req.FileSummaries)
	}

	if req.CoherenceReport != "" {
		fmt.Fprintf(&b, "\n%s\n", req.CoherenceReport)
	}

	if len(req.PlanWarnings) > 0 {
		b.WriteString("\nWARNINGS FROM PREVIOUS PLAN:\n")
		for _, w := range req.PlanWarnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	if len(req.Feedback) > 0 {
		b.WriteString("\nPREVIOUS ATTEMPTS FAILED. Most recent failure last. Fix the root cause:\n")
		for i, f := range req.Feedback {
			fmt.Fprintf(&b, "--- attempt %d ---\n%s\n", i+1, f)
		}
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("1. Write tests before or together with the code they test.\n")
	b.WriteString("2. After writing test files, include an execute_command action to run them.\n")
	b.WriteString("3. File paths: source under src/, tests under tests/, docs under docs/.\n")
	b.WriteString("4. Reference only files that exist or that this plan writes.\n")

	fmt.Fprintf(&b, "\nOUTPUT FORMAT: Respond with a VALID, COMPLETE JSON array only. No markdown. Schema: %s", planSchema)

	return b.String()
}
