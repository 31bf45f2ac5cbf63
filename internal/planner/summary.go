package planner

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/extract"
)

// BuildFileSummaries renders a compact per-file digest of the current
// artifact set for the planning prompt: which endpoints exist, what the
// frontend calls, and whether references resolve. This is the planner's
// only view of the code, so it carries interface facts, not content.
func BuildFileSummaries(extractor *extract.Extractor, artifacts []extract.Artifact) string {
	var b strings.Builder

	for _, a := range artifacts {
		res := extractor.Scan(a)

		fmt.Fprintf(&b, "%s (%d lines)\n", a.Path, 1+strings.Count(a.Content, "\n"))

		for _, ep := range res.Endpoints {
			fmt.Fprintf(&b, "  endpoint %s (%s)", ep.Action, ep.Method)
			if len(ep.Parameters) > 0 {
				fmt.Fprintf(&b, " params: %s", strings.Join(ep.Parameters, ", "))
			}
			if len(ep.ResponseKeys) > 0 {
				fmt.Fprintf(&b, " returns: %s", strings.Join(ep.ResponseKeys, ", "))
			}
			b.WriteString("\n")
		}

		for _, call := range res.Calls {
			fmt.Fprintf(&b, "  calls %s (%s)", call.Action, call.Method)
			if len(call.ExpectedResponseKeys) > 0 {
				fmt.Fprintf(&b, " expects: %s", strings.Join(call.ExpectedResponseKeys, ", "))
			}
			b.WriteString("\n")
		}

		for _, dep := range res.Dependencies {
			if dep.Resolved {
				fmt.Fprintf(&b, "  references %s (exists)\n", dep.Target)
			} else {
				fmt.Fprintf(&b, "  references %s (MISSING)\n", dep.Target)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
