// Package workspace owns the generated project tree: its layout, path
// normalization for planner-supplied targets, and the known-file index the
// validators resolve dependency references against.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/extract"
)

// Standard subdirectories of the generated tree.
const (
	SrcDir   = "src"
	TestsDir = "tests"
	DocsDir  = "docs"
	StateDir = ".autodev"
)

var sourceExts = []string{".php", ".py", ".js", ".html", ".css", ".java", ".cpp", ".c", ".h", ".sql"}
var docExts = []string{".md", ".txt", ".yml", ".yaml"}

// Workspace is the root of the generated project. All paths handed to its
// methods are relative to that root unless stated otherwise.
type Workspace struct {
	root string
}

// New creates the workspace layout on disk if it does not exist yet.
func New(root string) (*Workspace, error) {
	for _, dir := range []string{root, filepath.Join(root, SrcDir), filepath.Join(root, TestsDir), filepath.Join(root, DocsDir), filepath.Join(root, StateDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("cannot create %s", dir), err)
		}
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Abs converts a workspace-relative path to a filesystem path.
func (w *Workspace) Abs(rel string) string {
	return filepath.Join(w.root, rel)
}

// NormalizePath maps a planner-supplied target onto the workspace layout.
// Planners routinely prefix targets with the output directory, scatter
// source files at the root, or invent subdirectories; normalization keeps
// the tree flat and predictable:
//
//   - the output-directory prefix is stripped
//   - paths already under src/, tests/, docs/ or config/ stay put
//   - source files go to src/, test-looking source files to tests/
//   - README.md stays at the root, other documents go to docs/
//
// The result is always relative to the workspace root.
func (w *Workspace) NormalizePath(path string) string {
	path = strings.TrimPrefix(path, w.root+"/")
	path = strings.TrimPrefix(path, "output/")
	path = strings.TrimLeft(path, "/")

	for _, dir := range []string{SrcDir, TestsDir, DocsDir, "config", ".git"} {
		if strings.HasPrefix(path, dir+"/") {
			return path
		}
	}

	base := filepath.Base(path)
	lower := strings.ToLower(path)

	if hasExt(path, sourceExts) {
		if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
			return filepath.Join(TestsDir, base)
		}
		return filepath.Join(SrcDir, base)
	}

	if hasExt(path, docExts) {
		if strings.Contains(strings.ToUpper(base), "README") {
			return "README.md"
		}
		if strings.HasPrefix(base, "LICENSE") {
			return base
		}
		return filepath.Join(DocsDir, base)
	}

	return path
}

// NormalizeCommand strips the output-directory prefix from paths inside a
// command, since commands always run with the workspace root as their
// working directory.
func (w *Workspace) NormalizeCommand(command string) string {
	command = strings.ReplaceAll(command, w.root+"/", "")
	return strings.ReplaceAll(command, "output/", "")
}

// WriteFile writes content to a workspace-relative path, creating parent
// directories as needed.
func (w *Workspace) WriteFile(rel string, content []byte) error {
	abs := w.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("cannot create directory for %s", rel), err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("cannot write %s", rel), err)
	}
	return nil
}

// ReadFile reads a workspace-relative path.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	content, err := os.ReadFile(w.Abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, fmt.Sprintf("%s does not exist", rel), err)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("cannot read %s", rel), err)
	}
	return content, nil
}

// Exists reports whether a workspace-relative path exists.
func (w *Workspace) Exists(rel string) bool {
	_, err := os.Stat(w.Abs(rel))
	return err == nil
}

// Artifacts loads every recognizable source artifact under src/ for a
// coherence pass. Classification is by extension: .php is a backend
// surface, .html and .js are frontend surfaces; anything else is skipped.
func (w *Workspace) Artifacts() ([]extract.Artifact, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, SrcDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "cannot list source directory", err)
	}

	var artifacts []extract.Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var kind extract.Kind
		switch filepath.Ext(entry.Name()) {
		case ".php":
			kind = extract.KindBackend
		case ".html", ".js":
			kind = extract.KindFrontend
		default:
			continue
		}

		rel := filepath.Join(SrcDir, entry.Name())
		content, err := w.ReadFile(rel)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, extract.Artifact{Path: rel, Kind: kind, Content: string(content)})
	}
	return artifacts, nil
}

// TestFiles lists the python test files under tests/ in name order.
func (w *Workspace) TestFiles() []string {
	entries, err := os.ReadDir(filepath.Join(w.root, TestsDir))
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".py") && strings.Contains(strings.ToLower(name), "test") {
			files = append(files, filepath.Join(TestsDir, name))
		}
	}
	return files
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
