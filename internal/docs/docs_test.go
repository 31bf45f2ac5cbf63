package docs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autodev/internal/workspace"
)

func testWriter(t *testing.T) (*Writer, *workspace.Workspace) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return NewWriter(ws), ws
}

func TestWriteFeatureDoc(t *testing.T) {
	w, ws := testWriter(t)

	rel, err := w.WriteFeatureDoc("Seat Booking",
		[]string{"src/api.php", "src/db.php", "src/api.php"},
		[]string{"tests/test_api.py"})
	require.NoError(t, err)
	assert.Equal(t, "docs/features/seat_booking.md", rel)

	content, err := ws.ReadFile(rel)
	require.NoError(t, err)

	page := string(content)
	assert.Contains(t, page, "# Feature: Seat Booking")
	assert.Contains(t, page, "- `src/api.php`")
	assert.Contains(t, page, "- `src/db.php`")
	assert.Contains(t, page, "- `tests/test_api.py`")
	// Duplicate src entry collapsed.
	assert.Equal(t, 1, strings.Count(page, "- `src/api.php`"))

	require.Len(t, w.Features(), 1)
	assert.Equal(t, "Seat Booking", w.Features()[0].Name)
	assert.NotEmpty(t, w.Features()[0].Description)
}

func TestWriteProjectReadme(t *testing.T) {
	w, ws := testWriter(t)

	require.NoError(t, ws.WriteFile("src/api.php", []byte("<?php")))
	require.NoError(t, ws.WriteFile("tests/test_api.py", []byte("import unittest")))

	_, err := w.WriteFeatureDoc("Seat Booking", []string{"src/api.php"}, []string{"tests/test_api.py"})
	require.NoError(t, err)

	rel, err := w.WriteProjectReadme("Build a seat booking web app.")
	require.NoError(t, err)
	assert.Equal(t, "README.md", rel)

	content, err := ws.ReadFile(rel)
	require.NoError(t, err)

	readme := string(content)
	assert.Contains(t, readme, "Build a seat booking web app.")
	assert.Contains(t, readme, "### 1. Seat Booking")
	assert.Contains(t, readme, "docs/features/seat_booking.md")
	assert.Contains(t, readme, "- `src/api.php`")
	assert.Contains(t, readme, "- `tests/test_api.py`")
}

func TestWriteProjectReadmeWithoutFeatures(t *testing.T) {
	w, _ := testWriter(t)

	rel, err := w.WriteProjectReadme("Empty project.")
	require.NoError(t, err)
	assert.Equal(t, "README.md", rel)
}
