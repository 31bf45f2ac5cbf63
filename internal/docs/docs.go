// Package docs renders the per-feature documentation pages and the final
// project README. Generation is deterministic from the file lists, not
// another model call: documentation of what was built should not depend on
// what a model remembers about it.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/workspace"
)

// featuresDir is where per-feature pages live inside the docs tree.
const featuresDir = "features"

// Summary is the one-line digest of a documented feature, reused when the
// final README is assembled.
type Summary struct {
	Name        string
	Description string
}

// Writer renders documentation into the workspace.
type Writer struct {
	ws       *workspace.Workspace
	features []Summary
}

// NewWriter creates a Writer over a workspace.
func NewWriter(ws *workspace.Workspace) *Writer {
	return &Writer{ws: ws}
}

// Features returns the summaries of everything documented so far.
func (w *Writer) Features() []Summary {
	return w.features
}

// WriteFeatureDoc renders the page for one completed feature and returns its
// workspace-relative path. srcFiles and testFiles are the paths the feature
// touched.
func (w *Writer) WriteFeatureDoc(name string, srcFiles, testFiles []string) (string, error) {
	overview := fmt.Sprintf("This feature implements %s. It was developed test first: "+
		"the files below were written, exercised by their tests, and checked for "+
		"cross-file consistency before being committed.", strings.ToLower(name))

	var b strings.Builder
	fmt.Fprintf(&b, "# Feature: %s\n\n", name)
	fmt.Fprintf(&b, "## Overview\n\n%s\n\n", overview)

	src := dedupeSorted(srcFiles)
	tests := dedupeSorted(testFiles)

	if len(src) > 0 {
		b.WriteString("## Implementation Files\n\n")
		for _, f := range src {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	if len(tests) > 0 {
		b.WriteString("## Test Files\n\n")
		for _, f := range tests {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Status\n\n")
	b.WriteString("- Feature tests passing\n")
	b.WriteString("- Regression tests passing\n")
	b.WriteString("- Coherence checks clean\n")

	rel := filepath.Join(workspace.DocsDir, featuresDir, slug(name)+".md")
	if err := w.ws.WriteFile(rel, []byte(b.String())); err != nil {
		return "", err
	}

	w.features = append(w.features, Summary{Name: name, Description: truncate(overview, 150)})
	return rel, nil
}

// WriteProjectReadme renders the final README.md at the workspace root from
// the task description, the documented features, and the tree as it exists
// on disk. It returns the workspace-relative path.
func (w *Writer) WriteProjectReadme(task string) (string, error) {
	var b strings.Builder

	b.WriteString("# Project Documentation\n\n")
	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(task))

	if len(w.features) > 0 {
		b.WriteString("## Implemented Features\n\n")
		for i, f := range w.features {
			fmt.Fprintf(&b, "### %d. %s\n\n%s\n\n", i+1, f.Name, f.Description)
			fmt.Fprintf(&b, "See [docs/%s/%s.md](docs/%s/%s.md).\n\n", featuresDir, slug(f.Name), featuresDir, slug(f.Name))
		}
	}

	src, tests := w.treeListing()
	b.WriteString("## Project Structure\n\n")
	if len(src) > 0 {
		b.WriteString("### Source Files\n\n")
		for _, f := range src {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}
	if len(tests) > 0 {
		b.WriteString("### Test Files\n\n")
		for _, f := range tests {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Running the Tests\n\n")
	b.WriteString("```bash\npython -m unittest discover tests\n```\n")

	const rel = "README.md"
	if err := w.ws.WriteFile(rel, []byte(b.String())); err != nil {
		return "", err
	}
	return rel, nil
}

// treeListing walks the workspace and splits files into source and test
// lists, both sorted. Hidden files and the state directory are skipped.
func (w *Writer) treeListing() (src, tests []string) {
	root := w.ws.Root()
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name := info.Name()
		if info.IsDir() {
			if name == ".git" || name == workspace.StateDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if strings.HasPrefix(rel, workspace.TestsDir+string(filepath.Separator)) {
			tests = append(tests, filepath.ToSlash(rel))
		} else if strings.HasPrefix(rel, workspace.SrcDir+string(filepath.Separator)) {
			src = append(src, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(src)
	sort.Strings(tests)
	return src, tests
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
