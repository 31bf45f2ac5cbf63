package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIndex is a known-file index backed by a slice.
type stubIndex struct {
	names []string
}

func (s *stubIndex) Has(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s *stubIndex) Names() []string {
	return s.names
}

const backendAPI = `<?php
require_once 'db.php';

header('Content-Type: application/json');

$input = json_decode(file_get_contents('php://input'), true);

switch ($input['action']) {
    case 'get_seats':
        getSeats($pdo, $input['room_id']);
        break;
    case 'book_seat':
        bookSeat($pdo, $input['seat_id'], $input['user_name']);
        break;
}

function getSeats($pdo, $roomId) {
    $seats = $pdo->query('SELECT * FROM seats')->fetchAll();
    echo json_encode(['status' => 'ok', 'seats' => $seats]);
}

function bookSeat($pdo, $seatId, $userName) {
    echo json_encode(['status' => 'ok', 'seat_id' => $seatId]);
}
`

func TestScanBackendEndpoints(t *testing.T) {
	e := New(&stubIndex{names: []string{"db.php", "api.php"}})
	res := e.Scan(Artifact{Path: "src/api.php", Kind: KindBackend, Content: backendAPI})

	require.Len(t, res.Endpoints, 2)

	seats := res.Endpoints[0]
	assert.Equal(t, "get_seats", seats.Action)
	assert.Equal(t, MethodPost, seats.Method)
	assert.Equal(t, FormatJSON, seats.RequestFormat)
	assert.Equal(t, []string{"room_id"}, seats.Parameters)
	assert.Equal(t, []string{"status", "seats"}, seats.ResponseKeys)
	assert.Equal(t, "src/api.php", seats.Location.File)
	assert.Positive(t, seats.Location.Line)

	book := res.Endpoints[1]
	assert.Equal(t, "book_seat", book.Action)
	assert.Equal(t, []string{"seat_id", "user_name"}, book.Parameters)
	assert.Contains(t, book.ResponseKeys, "seat_id")
}

func TestScanBackendMethodInference(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			"explicit GET check",
			`<?php if ($_SERVER['REQUEST_METHOD'] === 'GET') {} switch($_GET['action']) { case 'list': break; }`,
			MethodGet,
		},
		{
			"only GET reads",
			`<?php switch($_GET['action']) { case 'list': echo $_GET['page']; break; }`,
			MethodGet,
		},
		{
			"GET and POST reads",
			`<?php switch($_GET['action']) { case 'list': echo $_POST['page']; break; }`,
			MethodAny,
		},
		{
			"json body defaults to POST",
			`<?php $input = json_decode(file_get_contents('php://input'), true); switch($input['action']) { case 'list': break; }`,
			MethodPost,
		},
	}

	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Scan(Artifact{Path: "api.php", Kind: KindBackend, Content: tt.content})
			require.NotEmpty(t, res.Endpoints)
			assert.Equal(t, tt.want, res.Endpoints[0].Method)
		})
	}
}

func TestScanBackendNoDispatch(t *testing.T) {
	e := New(nil)
	inputs := []string{
		"",
		"<?php echo 'hello'; ?>",
		"complete garbage {{{ ((( not php at all",
		`<?php switch ($color) { case 'red': break; }`, // subject is not an action
	}
	for _, content := range inputs {
		res := e.Scan(Artifact{Path: "x.php", Kind: KindBackend, Content: content})
		assert.Empty(t, res.Endpoints, "content %q", content)
	}
}

const frontendPage = `<!DOCTYPE html>
<html>
<script src="app.js"></script>
<script>
async function loadSeats() {
    const response = await fetch('api.php?action=get_seats&room_id=1');
    const data = await response.json();
    data.seats.forEach(seat => render(seat));
    if (data.status !== 'ok') showError();
}

async function bookSeat(seatId, userName) {
    const response = await fetch('api.php', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({action: 'book_seat', seat_id: seatId, user_name: userName}),
    });
    const result = await response.json();
    return result.status;
}

// no action: not cross-referenceable
fetch('https://cdn.example.com/lib.js');
</script>
</html>
`

func TestScanFrontendCalls(t *testing.T) {
	e := New(&stubIndex{names: []string{"api.php", "app.js"}})
	res := e.Scan(Artifact{Path: "src/index.html", Kind: KindFrontend, Content: frontendPage})

	require.Len(t, res.Calls, 2)

	get := res.Calls[0]
	assert.Equal(t, "get_seats", get.Action)
	assert.Equal(t, MethodGet, get.Method)
	assert.Equal(t, FormatForm, get.RequestFormat)
	assert.Equal(t, []string{"room_id"}, get.Parameters)
	assert.ElementsMatch(t, []string{"seats", "status"}, get.ExpectedResponseKeys)

	book := res.Calls[1]
	assert.Equal(t, "book_seat", book.Action)
	assert.Equal(t, MethodPost, book.Method)
	assert.Equal(t, FormatJSON, book.RequestFormat)
	assert.ElementsMatch(t, []string{"seat_id", "user_name"}, book.Parameters)
	assert.Equal(t, []string{"status"}, book.ExpectedResponseKeys)
}

func TestScanFrontendNoCalls(t *testing.T) {
	e := New(nil)
	res := e.Scan(Artifact{Path: "x.html", Kind: KindFrontend, Content: "<p>static page</p>"})
	assert.Empty(t, res.Calls)
	assert.Empty(t, res.Dependencies)
}

func TestScanDependencies(t *testing.T) {
	index := &stubIndex{names: []string{"db.php", "api.php", "index.html"}}
	e := New(index)

	res := e.Scan(Artifact{Path: "src/api.php", Kind: KindBackend, Content: backendAPI})
	require.Len(t, res.Dependencies, 1)
	dep := res.Dependencies[0]
	assert.Equal(t, "db.php", dep.Target)
	assert.True(t, dep.Resolved)
	assert.Empty(t, dep.Suggestions)
}

func TestScanDependencyNearMiss(t *testing.T) {
	index := &stubIndex{names: []string{"db.php", "api.php"}}
	e := New(index)

	content := `<?php require_once 'database.php';`
	res := e.Scan(Artifact{Path: "src/api.php", Kind: KindBackend, Content: content})

	require.Len(t, res.Dependencies, 1)
	dep := res.Dependencies[0]
	assert.False(t, dep.Resolved)
	assert.Contains(t, dep.Suggestions, "db.php")
}

func TestScanFrontendScriptDependencies(t *testing.T) {
	index := &stubIndex{names: []string{"api.php"}}
	e := New(index)

	res := e.Scan(Artifact{Path: "src/index.html", Kind: KindFrontend, Content: frontendPage})
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "app.js", res.Dependencies[0].Target)
	assert.False(t, res.Dependencies[0].Resolved)
}

func TestScanSkipsExternalRefs(t *testing.T) {
	e := New(&stubIndex{})
	content := `<script src="https://cdn.example.com/lib.js"></script><script src="//cdn.example.com/x.js"></script>`
	res := e.Scan(Artifact{Path: "index.html", Kind: KindFrontend, Content: content})
	assert.Empty(t, res.Dependencies)
}

func TestSuggest(t *testing.T) {
	known := []string{"db.php", "api.php", "index.html", "seat_map.js"}

	tests := []struct {
		target string
		want   []string
	}{
		{"database.php", []string{"db.php"}},
		{"seatmap.js", []string{"seat_map.js"}},
		{"totally_unrelated.xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got := suggest(tt.target, known)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			assert.LessOrEqual(t, len(got), maxSuggestions)
		})
	}
}

func TestSuggestShorterExistingName(t *testing.T) {
	// Only the existing stem is a subsequence of the missing target, so
	// the match has to run in that direction.
	got := suggest("database.php", []string{"db.php", "seat_map.js"})
	require.NotEmpty(t, got)
	assert.Equal(t, "db.php", got[0])
}

func TestSuggestDeterministic(t *testing.T) {
	known := []string{"db.php", "dbase.php", "data.php", "database_helper.php"}
	first := suggest("database.php", known)
	for range 10 {
		assert.Equal(t, first, suggest("database.php", known))
	}
	assert.Len(t, first, maxSuggestions)
}
