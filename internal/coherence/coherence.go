// Package coherence cross-references the backend endpoint surface with the
// frontend caller surface and reports mismatches as typed findings.
package coherence

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/extract"
)

// Severity splits findings into commit-blocking and advisory.
type Severity string

const (
	// SeverityCritical blocks progression to commit.
	SeverityCritical Severity = "critical"
	// SeverityWarning is advisory only.
	SeverityWarning Severity = "warning"
)

// Category classifies what kind of mismatch a finding reports.
type Category string

const (
	CategoryMissingDependency      Category = "missing_dependency"
	CategoryMissingEndpoint        Category = "missing_endpoint"
	CategoryMethodMismatch         Category = "method_mismatch"
	CategoryRequestFormatMismatch  Category = "request_format_mismatch"
	CategoryParameterMismatch      Category = "parameter_mismatch"
	CategoryResponseFormatMismatch Category = "response_format_mismatch"
	CategoryUnusedEndpoint         Category = "unused_endpoint"
)

// categoryOrder fixes the grouping order of the analysis output. Within a
// category, findings keep the order their artifacts were supplied in, which
// makes the whole report deterministic for a fixed snapshot.
var categoryOrder = []Category{
	CategoryMissingDependency,
	CategoryMissingEndpoint,
	CategoryMethodMismatch,
	CategoryRequestFormatMismatch,
	CategoryParameterMismatch,
	CategoryResponseFormatMismatch,
	CategoryUnusedEndpoint,
}

// Finding is one detected mismatch. Findings are produced fresh on every
// analysis run and never persisted across runs.
type Finding struct {
	Severity Severity
	Category Category
	Message  string
	Evidence []extract.Location
}

// Snapshot is the full descriptor state of the project at one instant,
// rebuilt from current file contents before every analysis.
type Snapshot struct {
	Endpoints    []extract.Endpoint
	Calls        []extract.FrontendCall
	Dependencies []extract.Dependency
}

// Analyze cross-references the snapshot and returns the ordered finding
// list. It is a pure function: same snapshot, same findings, same order.
func Analyze(s Snapshot) []Finding {
	byCategory := make(map[Category][]Finding)
	add := func(f Finding) {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	for _, dep := range s.Dependencies {
		if dep.Resolved {
			continue
		}
		msg := fmt.Sprintf("%s references '%s' but the file does not exist", dep.File, dep.Target)
		if len(dep.Suggestions) > 0 {
			msg += fmt.Sprintf(". Did you mean '%s'?", strings.Join(dep.Suggestions, "' or '"))
		}
		add(Finding{
			Severity: SeverityCritical,
			Category: CategoryMissingDependency,
			Message:  msg,
			Evidence: []extract.Location{dep.Location},
		})
	}

	endpoints := make(map[string]extract.Endpoint, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		if _, exists := endpoints[ep.Action]; !exists {
			endpoints[ep.Action] = ep
		}
	}

	for _, call := range s.Calls {
		ep, exists := endpoints[call.Action]
		if !exists {
			add(Finding{
				Severity: SeverityCritical,
				Category: CategoryMissingEndpoint,
				Message:  fmt.Sprintf("frontend calls action '%s' but the backend has no handler for it", call.Action),
				Evidence: []extract.Location{call.Location},
			})
			continue
		}

		methodConflict := methodsConflict(call.Method, ep.Method)
		if methodConflict {
			add(Finding{
				Severity: SeverityCritical,
				Category: CategoryMethodMismatch,
				Message:  fmt.Sprintf("'%s': frontend uses %s but the backend expects %s", call.Action, call.Method, ep.Method),
				Evidence: []extract.Location{call.Location, ep.Location},
			})
		}

		// A method conflict already explains any payload difference; the
		// format check only applies when both sides agree on the method.
		if !methodConflict && formatsConflict(call.RequestFormat, ep.RequestFormat) {
			add(Finding{
				Severity: SeverityCritical,
				Category: CategoryRequestFormatMismatch,
				Message:  fmt.Sprintf("'%s': frontend sends a %s payload but the backend reads %s input", call.Action, call.RequestFormat, ep.RequestFormat),
				Evidence: []extract.Location{call.Location, ep.Location},
			})
		}

		if unknown := missingFrom(call.Parameters, ep.Parameters); len(unknown) > 0 {
			add(Finding{
				Severity: SeverityCritical,
				Category: CategoryParameterMismatch,
				Message:  fmt.Sprintf("'%s': frontend sends parameters [%s] the backend does not read", call.Action, strings.Join(unknown, ", ")),
				Evidence: []extract.Location{call.Location, ep.Location},
			})
		}

		if missing := missingFrom(call.ExpectedResponseKeys, ep.ResponseKeys); len(missing) > 0 {
			add(Finding{
				Severity: SeverityWarning,
				Category: CategoryResponseFormatMismatch,
				Message:  fmt.Sprintf("'%s': frontend expects response keys [%s] the backend does not return", call.Action, strings.Join(missing, ", ")),
				Evidence: []extract.Location{call.Location, ep.Location},
			})
		}
	}

	called := make(map[string]bool, len(s.Calls))
	for _, call := range s.Calls {
		called[call.Action] = true
	}
	for _, ep := range s.Endpoints {
		if !called[ep.Action] {
			add(Finding{
				Severity: SeverityWarning,
				Category: CategoryUnusedEndpoint,
				Message:  fmt.Sprintf("backend endpoint '%s' has no frontend caller", ep.Action),
				Evidence: []extract.Location{ep.Location},
			})
		}
	}

	var findings []Finding
	for _, cat := range categoryOrder {
		findings = append(findings, byCategory[cat]...)
	}
	return findings
}

// methodsConflict reports whether the call and handler methods are
// incompatible. MethodAny handlers read both query and body and accept
// either side.
func methodsConflict(callMethod, epMethod string) bool {
	if callMethod == "" || epMethod == "" {
		return false
	}
	if callMethod == extract.MethodAny || epMethod == extract.MethodAny {
		return false
	}
	return callMethod != epMethod
}

// formatsConflict only fires when both sides were classified; an unknown
// format means the extractor could not tell and must not guess.
func formatsConflict(callFormat, epFormat extract.RequestFormat) bool {
	if callFormat == extract.FormatUnknown || epFormat == extract.FormatUnknown {
		return false
	}
	return callFormat != epFormat
}

// missingFrom returns the members of want that are absent from have,
// preserving want's order.
func missingFrom(want, have []string) []string {
	haveSet := make(map[string]bool, len(have))
	for _, h := range have {
		haveSet[h] = true
	}
	var missing []string
	for _, w := range want {
		if !haveSet[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

// CriticalCount returns how many findings block a commit.
func CriticalCount(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// Report renders findings as the plain-text block handed to the planner as
// feedback and embedded in its context. An empty finding list yields "".
func Report(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("COHERENCE ANALYSIS:\n")
	fmt.Fprintf(&b, "Found %d critical issues and %d warnings:\n",
		CriticalCount(findings), len(findings)-CriticalCount(findings))
	for _, f := range findings {
		label := "WARNING"
		if f.Severity == SeverityCritical {
			label = "CRITICAL"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", label, f.Message)
	}
	return b.String()
}
