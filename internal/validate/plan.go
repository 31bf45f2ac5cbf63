// Package validate holds the two coherence gates around plan execution: an
// advisory pre-execution check on the proposed plan and the authoritative
// post-test check on the generated artifact set.
package validate

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/extract"
	"github.com/felixgeelhaar/autodev/internal/plan"
)

// dataFileExts are things that can never be code dependencies. A plan that
// requires one of these has misunderstood how to reach the data.
var dataFileExts = []string{".sqlite", ".sqlite3", ".db", ".json", ".txt", ".log", ".csv"}

// PlanValidator inspects a proposed plan before any generation happens. It
// can only see references the planner names explicitly in its instructions,
// so everything it reports is advisory: it annotates the log and the
// planner feedback but never blocks execution.
type PlanValidator struct {
	index extract.FileIndex
}

// NewPlanValidator creates a validator over the current known-file index.
func NewPlanValidator(index extract.FileIndex) *PlanValidator {
	return &PlanValidator{index: index}
}

// Check scans each write_file instruction for dependency references and
// returns the unresolved ones as warnings. Files the plan itself writes
// count as resolved, since they will exist by the time the reference
// matters. Warnings never block execution.
func (v *PlanValidator) Check(p plan.Plan) []string {
	var warnings []string

	idx := &planIndex{base: v.index, plannedSet: make(map[string]bool)}
	for _, a := range p.Actions {
		if a.Type != plan.ActionWriteFile {
			continue
		}
		name := baseName(a.Target)
		if !idx.plannedSet[name] {
			idx.plannedSet[name] = true
			idx.planned = append(idx.planned, name)
		}
	}

	extractor := extract.New(idx)

	for _, a := range p.Actions {
		if a.Type != plan.ActionWriteFile || a.ContentInstruction == "" {
			continue
		}
		artifact := extract.Artifact{
			Path:    a.Target,
			Kind:    kindForPath(a.Target),
			Content: a.ContentInstruction,
		}
		for _, dep := range extractor.Scan(artifact).Dependencies {
			if isDataFile(dep.Target) {
				warnings = append(warnings, fmt.Sprintf(
					"plan writes %s requiring '%s' which is a data file; connect to it instead of including it",
					a.Target, dep.Target))
				continue
			}
			if dep.Resolved {
				continue
			}
			msg := fmt.Sprintf("plan writes %s referencing '%s' which does not exist and is not written by this plan",
				a.Target, dep.Target)
			if len(dep.Suggestions) > 0 {
				msg += fmt.Sprintf(". Did you mean '%s'?", strings.Join(dep.Suggestions, "' or '"))
			}
			warnings = append(warnings, msg)
		}
	}

	if p.WritesTests() && !p.RunsTests() {
		warnings = append(warnings, "plan writes test files but has no execute_command action to run them")
	}

	return warnings
}

// planIndex layers the plan's own write targets over the workspace index,
// preserving a stable name order so suggestions stay deterministic.
type planIndex struct {
	base       extract.FileIndex
	planned    []string
	plannedSet map[string]bool
}

func (i *planIndex) Has(name string) bool {
	if i.plannedSet[name] {
		return true
	}
	return i.base != nil && i.base.Has(name)
}

func (i *planIndex) Names() []string {
	var names []string
	if i.base != nil {
		names = append(names, i.base.Names()...)
	}
	return append(names, i.planned...)
}

// kindForPath guesses the artifact surface from the file extension.
func kindForPath(path string) extract.Kind {
	switch {
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".js"):
		return extract.KindFrontend
	default:
		return extract.KindBackend
	}
}

func isDataFile(target string) bool {
	lower := strings.ToLower(target)
	for _, ext := range dataFileExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
