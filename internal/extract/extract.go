// Package extract turns raw artifact text into structured descriptors using
// heuristic scanning. It recognizes a small, documented subset of idioms
// (switch/case action dispatch, fetch-style calls, require/include
// statements) and skips everything it cannot classify. It never fails:
// unrecognizable input yields empty descriptor sets.
package extract

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Kind declares which surface an artifact belongs to.
type Kind string

const (
	// KindBackend marks artifacts that expose endpoints (request dispatch).
	KindBackend Kind = "backend"
	// KindFrontend marks artifacts that call endpoints (outbound fetch).
	KindFrontend Kind = "frontend"
)

// HTTP methods as inferred from artifact text. MethodAny means the handler
// reads from both query and body and accepts either method.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
	MethodAny  = "ANY"
)

// RequestFormat classifies how a request carries its payload.
type RequestFormat string

const (
	FormatUnknown RequestFormat = ""
	FormatForm    RequestFormat = "form"
	FormatJSON    RequestFormat = "json"
)

// Location points at the line a descriptor was derived from.
type Location struct {
	File string
	Line int
}

// Endpoint describes one backend action handler.
type Endpoint struct {
	Action        string
	Method        string
	RequestFormat RequestFormat
	Parameters    []string
	ResponseKeys  []string
	Location      Location
}

// FrontendCall describes one outbound call site.
type FrontendCall struct {
	Action               string
	Method               string
	RequestFormat        RequestFormat
	Parameters           []string
	ExpectedResponseKeys []string
	Location             Location
}

// Dependency is a file reference found in an artifact, resolved against the
// known-file index at extraction time.
type Dependency struct {
	File        string
	Target      string
	Resolved    bool
	Suggestions []string
	Location    Location
}

// Artifact is one file handed to the extractor.
type Artifact struct {
	Path    string
	Kind    Kind
	Content string
}

// Result holds everything extracted from a single artifact. Backend
// artifacts fill Endpoints, frontend artifacts fill Calls; both may carry
// Dependencies.
type Result struct {
	Endpoints    []Endpoint
	Calls        []FrontendCall
	Dependencies []Dependency
}

// FileIndex answers whether a referenced file exists in the project.
// The workspace owns the authoritative index; the extractor only reads it.
type FileIndex interface {
	// Has reports whether a file with the given base name exists.
	Has(name string) bool
	// Names returns all known base names in a stable order.
	Names() []string
}

// Extractor scans artifacts against a known-file index.
type Extractor struct {
	index FileIndex
}

// New creates an Extractor. A nil index means every dependency reference is
// unresolved with no suggestions.
func New(index FileIndex) *Extractor {
	return &Extractor{index: index}
}

// Scan extracts all descriptors relevant to the artifact's kind. It is a
// pure function of the artifact text and the index; it never returns an
// error, because absence of recognizable constructs is a valid outcome.
func (e *Extractor) Scan(artifact Artifact) Result {
	var res Result
	switch artifact.Kind {
	case KindBackend:
		res.Endpoints = scanEndpoints(artifact.Path, artifact.Content)
	case KindFrontend:
		res.Calls = scanCalls(artifact.Path, artifact.Content)
	}
	res.Dependencies = e.scanDependencies(artifact)
	return res
}

// resolve checks a dependency target against the index and, when missing,
// attaches up to two nearest-name suggestions.
func (e *Extractor) resolve(dep *Dependency) {
	if e.index == nil {
		return
	}
	name := baseName(dep.Target)
	if e.index.Has(name) {
		dep.Resolved = true
		return
	}
	dep.Suggestions = suggest(name, e.index.Names())
}

// maxSuggestions caps how many alternatives a missing dependency carries.
const maxSuggestions = 2

// suggest finds the known file names closest to a missing target. Matching
// is case-insensitive over extension-stripped stems: substring containment
// in either direction ranks first, then fuzzy subsequence matches. The
// result order is deterministic for a fixed index.
func suggest(target string, known []string) []string {
	targetStem := stem(target)
	if targetStem == "" {
		return nil
	}

	var subs []string
	seen := make(map[string]bool)
	for _, name := range known {
		if name == target {
			continue
		}
		s := stem(name)
		if s == "" {
			continue
		}
		if strings.Contains(targetStem, s) || strings.Contains(s, targetStem) {
			if !seen[name] {
				subs = append(subs, name)
				seen[name] = true
			}
		}
	}
	sort.Strings(subs)

	if len(subs) >= maxSuggestions {
		return subs[:maxSuggestions]
	}

	// Fall back to fuzzy subsequence matching for the remaining slots. The
	// subsequence check runs in both directions: a misremembered long name
	// (database.php) still matches a shorter existing one (db.php), where
	// only the existing stem is a subsequence of the target.
	stems := make([]string, len(known))
	for i, name := range known {
		stems[i] = stem(name)
	}
	for _, m := range fuzzy.Find(targetStem, stems) {
		name := known[m.Index]
		if name == target || seen[name] {
			continue
		}
		subs = append(subs, name)
		seen[name] = true
		if len(subs) == maxSuggestions {
			break
		}
	}
	for i, name := range known {
		if len(subs) == maxSuggestions {
			break
		}
		if name == target || seen[name] || stems[i] == "" {
			continue
		}
		if len(fuzzy.Find(stems[i], []string{targetStem})) > 0 {
			subs = append(subs, name)
			seen[name] = true
		}
	}
	return subs
}

func stem(name string) string {
	name = strings.ToLower(baseName(name))
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// lineAt returns the 1-based line number of a byte offset.
func lineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return 1 + strings.Count(text[:offset], "\n")
}

// appendUnique appends value if the slice does not already contain it,
// preserving first-appearance order.
func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
