package extract

import (
	"regexp"
	"strings"
)

// Dependency references are include/require-like statements. Backend
// artifacts use require/include, frontend artifacts use script tags and ES
// imports. Every reference is resolved against the known-file index.

var (
	requireRe   = regexp.MustCompile(`(?:require|include)(?:_once)?\s*\(?\s*['"]([^'"]+)['"]`)
	scriptSrcRe = regexp.MustCompile(`<script[^>]*\bsrc\s*=\s*['"]([^'"]+)['"]`)
	esImportRe  = regexp.MustCompile(`import\s+(?:[\w{},*\s]+\s+from\s+)?['"]([^'"]+)['"]`)
)

func (e *Extractor) scanDependencies(artifact Artifact) []Dependency {
	var patterns []*regexp.Regexp
	switch artifact.Kind {
	case KindBackend:
		patterns = []*regexp.Regexp{requireRe}
	case KindFrontend:
		patterns = []*regexp.Regexp{scriptSrcRe, esImportRe}
	}

	var deps []Dependency
	seen := make(map[string]bool)
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(artifact.Content, -1) {
			target := artifact.Content[m[2]:m[3]]
			if target == "" || isExternalRef(target) || seen[target] {
				continue
			}
			seen[target] = true

			dep := Dependency{
				File:     artifact.Path,
				Target:   target,
				Location: Location{File: artifact.Path, Line: lineAt(artifact.Content, m[0])},
			}
			e.resolve(&dep)
			deps = append(deps, dep)
		}
	}
	return deps
}

// isExternalRef filters references that point outside the project tree.
func isExternalRef(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//")
}
