package validate

import (
	"github.com/felixgeelhaar/autodev/internal/coherence"
	"github.com/felixgeelhaar/autodev/internal/extract"
)

// Result is the outcome of the post-test code validation gate.
type Result struct {
	OK       bool
	Findings []coherence.Finding
}

// Feedback renders the findings as planner feedback text.
func (r Result) Feedback() string {
	return coherence.Report(r.Findings)
}

// Criticals returns the number of commit-blocking findings.
func (r Result) Criticals() int {
	return coherence.CriticalCount(r.Findings)
}

// Code is the authoritative gate between passing tests and commit. It
// rescans the full current artifact set, cross-references the surfaces, and
// verifies every dependency reference resolves. Any critical finding makes
// OK false; to the retry logic that is the same as a failing test run.
// Warnings are surfaced but never block.
func Code(index extract.FileIndex, artifacts []extract.Artifact) Result {
	extractor := extract.New(index)

	var snap coherence.Snapshot
	for _, a := range artifacts {
		res := extractor.Scan(a)
		snap.Endpoints = append(snap.Endpoints, res.Endpoints...)
		snap.Calls = append(snap.Calls, res.Calls...)
		snap.Dependencies = append(snap.Dependencies, res.Dependencies...)
	}

	findings := coherence.Analyze(snap)
	return Result{
		OK:       coherence.CriticalCount(findings) == 0,
		Findings: findings,
	}
}
