package workspace

import (
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// IndexEntry records one known file with a content hash, so the orchestrator
// can tell whether an iteration actually changed anything.
type IndexEntry struct {
	Name string // base name, the unit dependency references resolve against
	Path string // workspace-relative path
	Hash string // blake3 of the content
	Size int64
}

// Index is the known-file index. It is always rebuilt from disk, never
// patched incrementally, so it can never disagree with the file state that
// produced it. It satisfies the resolver interface the extractor needs.
type Index struct {
	entries []IndexEntry
	byName  map[string]IndexEntry
}

// BuildIndex walks the workspace tree and hashes every regular file.
// Internal state and VCS directories are excluded.
func (w *Workspace) BuildIndex() (*Index, error) {
	idx := &Index{byName: make(map[string]IndexEntry)}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", StateDir:
				if path != w.root {
					return filepath.SkipDir
				}
			}
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sum := blake3.Sum256(content)

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}

		entry := IndexEntry{
			Name: d.Name(),
			Path: rel,
			Hash: hex.EncodeToString(sum[:]),
			Size: int64(len(content)),
		}
		idx.entries = append(idx.entries, entry)
		if _, exists := idx.byName[entry.Name]; !exists {
			idx.byName[entry.Name] = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(idx.entries, func(i, j int) bool { return idx.entries[i].Path < idx.entries[j].Path })
	return idx, nil
}

// Has reports whether a file with the given base name exists anywhere in
// the tree. Dependency references name files without directories, so
// resolution is by base name.
func (i *Index) Has(name string) bool {
	_, ok := i.byName[name]
	return ok
}

// Names returns all known base names sorted, for deterministic suggestion
// ranking.
func (i *Index) Names() []string {
	names := make([]string, 0, len(i.byName))
	for name := range i.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all indexed files ordered by path.
func (i *Index) Entries() []IndexEntry {
	return i.entries
}

// Fingerprint combines all content hashes into one value for the whole
// tree. Two identical fingerprints mean no file changed between passes.
func (i *Index) Fingerprint() string {
	h := blake3.New()
	for _, e := range i.entries {
		h.WriteString(e.Path)
		h.WriteString(e.Hash)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ChangedSince lists the paths whose hash differs from a previous index,
// including files that only exist on one side.
func (i *Index) ChangedSince(prev *Index) []string {
	if prev == nil {
		paths := make([]string, 0, len(i.entries))
		for _, e := range i.entries {
			paths = append(paths, e.Path)
		}
		return paths
	}

	prevByPath := make(map[string]string, len(prev.entries))
	for _, e := range prev.entries {
		prevByPath[e.Path] = e.Hash
	}

	var changed []string
	seen := make(map[string]bool)
	for _, e := range i.entries {
		seen[e.Path] = true
		if prevByPath[e.Path] != e.Hash {
			changed = append(changed, e.Path)
		}
	}
	for _, e := range prev.entries {
		if !seen[e.Path] {
			changed = append(changed, e.Path+" (removed)")
		}
	}
	sort.Strings(changed)
	return changed
}
