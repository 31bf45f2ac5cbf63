package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autodev/internal/extract"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(filepath.Join(t.TempDir(), "output"))
	require.NoError(t, err)
	return w
}

func TestNewCreatesLayout(t *testing.T) {
	w := newTestWorkspace(t)
	for _, dir := range []string{SrcDir, TestsDir, DocsDir, StateDir} {
		assert.True(t, w.Exists(dir), "missing %s", dir)
	}
}

func TestNormalizePath(t *testing.T) {
	w := newTestWorkspace(t)

	tests := []struct {
		in   string
		want string
	}{
		{"src/api.php", "src/api.php"},
		{"output/src/api.php", "src/api.php"},
		{"api.php", "src/api.php"},
		{"nested/deep/app.js", "src/app.js"},
		{"test_api.py", "tests/test_api.py"},
		{"tests/test_api.py", "tests/test_api.py"},
		{"README.md", "README.md"},
		{"docs/readme.md", "docs/readme.md"},
		{"notes.md", "docs/notes.md"},
		{"setup.sql", "src/setup.sql"},
		{"config/settings.yaml", "config/settings.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, w.NormalizePath(tt.in))
		})
	}
}

func TestNormalizeCommand(t *testing.T) {
	w := newTestWorkspace(t)
	got := w.NormalizeCommand("python3 output/tests/test_api.py")
	assert.Equal(t, "python3 tests/test_api.py", got)
}

func TestWriteReadRoundTrip(t *testing.T) {
	w := newTestWorkspace(t)

	require.NoError(t, w.WriteFile("src/db.php", []byte("<?php // connection")))
	content, err := w.ReadFile("src/db.php")
	require.NoError(t, err)
	assert.Equal(t, "<?php // connection", string(content))

	_, err = w.ReadFile("src/missing.php")
	assert.Error(t, err)
}

func TestArtifacts(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.WriteFile("src/api.php", []byte("<?php")))
	require.NoError(t, w.WriteFile("src/index.html", []byte("<html>")))
	require.NoError(t, w.WriteFile("src/app.js", []byte("fetch()")))
	require.NoError(t, w.WriteFile("src/data.csv", []byte("a,b")))

	artifacts, err := w.Artifacts()
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	kinds := map[string]extract.Kind{}
	for _, a := range artifacts {
		kinds[a.Path] = a.Kind
	}
	assert.Equal(t, extract.KindBackend, kinds["src/api.php"])
	assert.Equal(t, extract.KindFrontend, kinds["src/index.html"])
	assert.Equal(t, extract.KindFrontend, kinds["src/app.js"])
}

func TestBuildIndex(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.WriteFile("src/db.php", []byte("<?php // v1")))
	require.NoError(t, w.WriteFile("tests/test_api.py", []byte("import unittest")))

	idx, err := w.BuildIndex()
	require.NoError(t, err)

	assert.True(t, idx.Has("db.php"))
	assert.True(t, idx.Has("test_api.py"))
	assert.False(t, idx.Has("missing.php"))
	assert.Equal(t, []string{"db.php", "test_api.py"}, idx.Names())
	require.Len(t, idx.Entries(), 2)
	assert.NotEmpty(t, idx.Entries()[0].Hash)
}

func TestIndexFingerprintChangesWithContent(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.WriteFile("src/db.php", []byte("<?php // v1")))

	first, err := w.BuildIndex()
	require.NoError(t, err)

	again, err := w.BuildIndex()
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint(), again.Fingerprint())

	require.NoError(t, w.WriteFile("src/db.php", []byte("<?php // v2")))
	changed, err := w.BuildIndex()
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint(), changed.Fingerprint())
}

func TestChangedSince(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.WriteFile("src/db.php", []byte("v1")))

	before, err := w.BuildIndex()
	require.NoError(t, err)

	require.NoError(t, w.WriteFile("src/db.php", []byte("v2")))
	require.NoError(t, w.WriteFile("src/api.php", []byte("new")))

	after, err := w.BuildIndex()
	require.NoError(t, err)

	changed := after.ChangedSince(before)
	assert.ElementsMatch(t, []string{"src/db.php", "src/api.php"}, changed)

	assert.Empty(t, after.ChangedSince(after))
}

func TestTestFiles(t *testing.T) {
	w := newTestWorkspace(t)
	require.NoError(t, w.WriteFile("tests/test_api.py", []byte("x")))
	require.NoError(t, w.WriteFile("tests/helper.py", []byte("x")))
	require.NoError(t, w.WriteFile("tests/test_db.py", []byte("x")))

	files := w.TestFiles()
	assert.Equal(t, []string{"tests/test_api.py", "tests/test_db.py"}, files)
}
