package editor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) (*Editor, string) {
	t.Helper()
	root := t.TempDir()
	e, err := New(root)
	require.NoError(t, err)
	return e, e.Root()
}

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	full := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func readFile(t *testing.T, full string) string {
	t.Helper()
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	return string(data)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func exec(t *testing.T, e *Editor, req Request) Response {
	t.Helper()
	resp, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestNewRequiresExistingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrSandboxRootMissing)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	require.ErrorIs(t, err, ErrSandboxRootMissing)
}

func TestExecuteFailsWhenRootRemoved(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	e, err := New(root)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root))
	_, err = e.Execute(context.Background(), Request{Command: CommandView, Path: "/"})
	require.ErrorIs(t, err, ErrSandboxRootMissing)
}

func TestViewEmptyRoot(t *testing.T) {
	e, _ := newTestEditor(t)

	resp := exec(t, e, Request{Command: CommandView, Path: "/"})
	assert.False(t, resp.IsError)
	assert.Equal(t, "", resp.Content)
}

func TestViewDirectoryListing(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "index.html", "<p></p>")
	writeFile(t, root, "notes.txt", "skip me")
	writeFile(t, root, "page.html.liquid", "{{ x }}")
	writeFile(t, root, "styles/site.scss", "a{}")
	writeFile(t, root, "app.js", "1")
	writeFile(t, root, "image.png", "png")

	resp := exec(t, e, Request{Command: CommandView, Path: "/"})
	require.False(t, resp.IsError, resp.Content)

	lines := strings.Split(resp.Content, "\n")
	require.Len(t, lines, 4)
	names := make([]string, 0, len(lines))
	for i, line := range lines {
		prefix := strconv.Itoa(i+1) + ": "
		require.True(t, strings.HasPrefix(line, prefix), "line %q should start with %q", line, prefix)
		names = append(names, strings.TrimPrefix(line, prefix))
	}
	assert.ElementsMatch(t, []string{"index.html", "page.html.liquid", "styles/", "app.js"}, names)

	resp = exec(t, e, Request{Command: CommandView, Path: "styles/"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "1: site.scss", resp.Content)
}

func TestViewDirectoryErrors(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "a.html", "x")

	resp := exec(t, e, Request{Command: CommandView, Path: "nope/"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "does not exist")

	resp = exec(t, e, Request{Command: CommandView, Path: "a.html/"})
	assert.True(t, resp.IsError)
}

func TestViewFileNumbersLines(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "a.html", "one\ntwo\nthree")

	resp := exec(t, e, Request{Command: CommandView, Path: "a.html"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "1: one\n2: two\n3: three", resp.Content)
}

func TestViewFileRange(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "a.html", "one\ntwo\nthree\nfour")

	resp := exec(t, e, Request{Command: CommandView, Path: "a.html", ViewRange: []int{2, 3}})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "2: two\n3: three", resp.Content)

	resp = exec(t, e, Request{Command: CommandView, Path: "a.html", ViewRange: []int{3, -1}})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "3: three\n4: four", resp.Content)

	for _, r := range [][]int{{0, 2}, {5, -1}, {3, 2}, {1, 9}, {1}, {1, 2, 3}} {
		resp = exec(t, e, Request{Command: CommandView, Path: "a.html", ViewRange: r})
		assert.True(t, resp.IsError, "range %v should be rejected", r)
	}
}

func TestViewFileErrors(t *testing.T) {
	e, root := newTestEditor(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	resp := exec(t, e, Request{Command: CommandView, Path: "missing.html"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "File not found")

	resp = exec(t, e, Request{Command: CommandView, Path: "dir"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "directory, not a file")
}

func TestStrReplaceSingleMatch(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "hello foo world")

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr("foo"), NewStr: strPtr("bar")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully replaced text at exactly one location.", resp.Content)
	assert.Equal(t, "hello bar world", readFile(t, full))
}

func TestStrReplaceIsLiteral(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.js", "x = a.*b; y = aXXb;")

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "a.js", OldStr: strPtr("a.*b"), NewStr: strPtr("$1\\n")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "x = $1\\n; y = aXXb;", readFile(t, full))
}

func TestStrReplaceMultipleMatchesRequiresAcknowledgment(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "foo and foo")

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr("foo"), NewStr: strPtr("bar")})
	assert.True(t, resp.IsError)
	assert.True(t, strings.HasPrefix(resp.Content, "Error: Found 2 matches"), resp.Content)
	assert.Equal(t, "foo and foo", readFile(t, full))

	resp = exec(t, e, Request{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr("foo"), NewStr: strPtr("bar"), MatchCount: intPtr(2)})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully replaced text at 2 locations.", resp.Content)
	assert.Equal(t, "bar and bar", readFile(t, full))
}

func TestStrReplaceNoMatchLeavesFileUntouched(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "unchanged\n")

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr("missing"), NewStr: strPtr("x")})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "No match found")
	assert.Equal(t, "unchanged\n", readFile(t, full))
}

func TestStrReplaceEmptyNewStr(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.css", "a { color: red; }")

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "a.css", OldStr: strPtr(" color: red;"), NewStr: strPtr("")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "a { }", readFile(t, full))
}

func TestStrReplaceMissingParameters(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "a.html", "x")

	cases := []Request{
		{Command: CommandStrReplace, OldStr: strPtr("x"), NewStr: strPtr("y")},
		{Command: CommandStrReplace, Path: "a.html", NewStr: strPtr("y")},
		{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr(""), NewStr: strPtr("y")},
		{Command: CommandStrReplace, Path: "a.html", OldStr: strPtr("x")},
	}
	for _, req := range cases {
		resp := exec(t, e, req)
		assert.True(t, resp.IsError)
		assert.Equal(t, "Error: Missing required parameters for str_replace", resp.Content)
	}
}

func TestStrReplaceOnDirectory(t *testing.T) {
	e, root := newTestEditor(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "dir", OldStr: strPtr("x"), NewStr: strPtr("y")})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "is a directory")
}

func TestInsertPrependsLines(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "x\ny\nz")

	resp := exec(t, e, Request{Command: CommandInsert, Path: "a.html", InsertLine: intPtr(0), NewStr: strPtr("a\nb")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully inserted 2 lines at position 0.", resp.Content)

	lines := strings.Split(readFile(t, full), "\n")
	assert.Equal(t, []string{"a", "b", "x", "y", "z"}, lines)
}

func TestInsertAppendsAtLineCount(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "x\ny")

	resp := exec(t, e, Request{Command: CommandInsert, Path: "a.html", InsertLine: intPtr(2), NewStr: strPtr("z")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully inserted 1 line at position 2.", resp.Content)
	assert.Equal(t, "x\ny\nz", readFile(t, full))
}

func TestInsertOutOfBounds(t *testing.T) {
	e, root := newTestEditor(t)
	full := writeFile(t, root, "a.html", "x\ny")

	for _, at := range []int{-1, 3, 100} {
		resp := exec(t, e, Request{Command: CommandInsert, Path: "a.html", InsertLine: intPtr(at), NewStr: strPtr("z")})
		assert.True(t, resp.IsError)
		assert.Contains(t, resp.Content, "out of bounds (file has 2 lines)")
	}
	assert.Equal(t, "x\ny", readFile(t, full))
}

func TestInsertMissingParameters(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "a.html", "x")

	resp := exec(t, e, Request{Command: CommandInsert, Path: "a.html"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Missing required parameters for insert", resp.Content)

	resp = exec(t, e, Request{Command: CommandInsert, Path: "missing.html", NewStr: strPtr("x")})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "File not found")
}

func TestDeleteFileAndDirectory(t *testing.T) {
	e, root := newTestEditor(t)
	file := writeFile(t, root, "a.html", "x")
	writeFile(t, root, "dir/nested/b.css", "y")

	resp := exec(t, e, Request{Command: CommandDelete, Path: "a.html"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully deleted file: a.html", resp.Content)
	assert.NoFileExists(t, file)

	resp = exec(t, e, Request{Command: CommandDelete, Path: "dir"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully deleted directory: dir", resp.Content)
	assert.NoDirExists(t, filepath.Join(root, "dir"))
}

func TestDeleteMissingPath(t *testing.T) {
	e, root := newTestEditor(t)
	keep := writeFile(t, root, "keep.html", "x")

	resp := exec(t, e, Request{Command: CommandDelete, Path: "gone.html"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "File not found")
	assert.FileExists(t, keep)

	resp = exec(t, e, Request{Command: CommandDelete})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "Missing required path")
}

func TestDeleteRefusesRoot(t *testing.T) {
	e, root := newTestEditor(t)

	resp := exec(t, e, Request{Command: CommandDelete, Path: "/"})
	assert.True(t, resp.IsError)
	assert.DirExists(t, root)
}

func TestReservedCommands(t *testing.T) {
	e, _ := newTestEditor(t)

	resp := exec(t, e, Request{Command: CommandCreate, Path: "a.html"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "create not yet implemented", resp.Content)

	resp = exec(t, e, Request{Command: CommandUndoEdit, Path: "a.html"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "undo_edit not yet implemented", resp.Content)

	resp = exec(t, e, Request{Command: "rename", Path: "a.html"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Unknown command: rename", resp.Content)
}

func TestTraversalStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	outside := filepath.Join(parent, "secret.html")
	require.NoError(t, os.WriteFile(outside, []byte("secret foo"), 0o644))
	inside := writeFile(t, root, "secret.html", "inside foo")

	e, err := New(root)
	require.NoError(t, err)

	for _, p := range []string{"../secret.html", "../../secret.html", "/../secret.html", "a/../../secret.html"} {
		full, err := e.resolve(p)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(full, e.Root()+string(filepath.Separator)), "%s resolved to %s", p, full)
	}

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "../secret.html", OldStr: strPtr("foo"), NewStr: strPtr("bar")})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "inside bar", readFile(t, inside))
	assert.Equal(t, "secret foo", readFile(t, outside))

	resp = exec(t, e, Request{Command: CommandDelete, Path: "../"})
	assert.True(t, resp.IsError)
	assert.DirExists(t, root)
}

func TestSymlinkEscapeStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	outside := filepath.Join(parent, "target.html")
	require.NoError(t, os.WriteFile(outside, []byte("outside"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.html")))

	e, err := New(root)
	require.NoError(t, err)

	full, err := e.resolve("link.html")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, e.Root()), full)

	exec(t, e, Request{Command: CommandInsert, Path: "link.html", NewStr: strPtr("x")})
	assert.Equal(t, "outside", readFile(t, outside))
}

func TestDeleteSymlinkRemovesLinkOnly(t *testing.T) {
	e, root := newTestEditor(t)
	target := writeFile(t, root, "real/a.css", "body {}")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "style.css")))

	resp := exec(t, e, Request{Command: CommandDelete, Path: "alias"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "Successfully deleted file: alias", resp.Content)
	_, err := os.Lstat(filepath.Join(root, "alias"))
	assert.True(t, os.IsNotExist(err), "link should be gone")
	assert.FileExists(t, target)

	resp = exec(t, e, Request{Command: CommandDelete, Path: "style.css"})
	require.False(t, resp.IsError, resp.Content)
	assert.FileExists(t, target)

	// A dangling link is still an entry that can be deleted.
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")))
	resp = exec(t, e, Request{Command: CommandDelete, Path: "dangling"})
	require.False(t, resp.IsError, resp.Content)
}

func TestDeleteThroughLinkedParentStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	outside := filepath.Join(parent, "outside")
	require.NoError(t, os.Mkdir(outside, 0o755))
	victim := filepath.Join(outside, "a.css")
	require.NoError(t, os.WriteFile(victim, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	e, err := New(root)
	require.NoError(t, err)

	resp := exec(t, e, Request{Command: CommandDelete, Path: "escape/a.css"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "File not found")
	assert.FileExists(t, victim)
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
}

// chmod changes mode and restores 0o755 at cleanup so TempDir removal works.
func chmod(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.Chmod(path, mode))
	t.Cleanup(func() { _ = os.Chmod(path, 0o755) })
}

func TestPermissionDeniedOnRead(t *testing.T) {
	skipIfRoot(t)
	e, root := newTestEditor(t)
	locked := writeFile(t, root, "locked.html", "a\nb")
	chmod(t, locked, 0o000)

	for _, req := range []Request{
		{Command: CommandView, Path: "locked.html"},
		{Command: CommandStrReplace, Path: "locked.html", OldStr: strPtr("a"), NewStr: strPtr("b")},
		{Command: CommandInsert, Path: "locked.html", InsertLine: intPtr(0), NewStr: strPtr("x")},
	} {
		resp := exec(t, e, req)
		assert.True(t, resp.IsError, req.Command)
		assert.Equal(t, "Error: Permission denied. Cannot read file.", resp.Content, req.Command)
	}
}

func TestPermissionDeniedOnWrite(t *testing.T) {
	skipIfRoot(t)
	e, root := newTestEditor(t)
	readOnly := writeFile(t, root, "ro.css", "a {}")
	chmod(t, readOnly, 0o444)

	resp := exec(t, e, Request{Command: CommandStrReplace, Path: "ro.css", OldStr: strPtr("a"), NewStr: strPtr("b")})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Permission denied. Cannot write to file.", resp.Content)

	resp = exec(t, e, Request{Command: CommandInsert, Path: "ro.css", InsertLine: intPtr(1), NewStr: strPtr("b {}")})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Permission denied. Cannot write to file.", resp.Content)
	chmod(t, readOnly, 0o644)
	assert.Equal(t, "a {}", readFile(t, readOnly))
}

func TestPermissionDeniedOnDirectory(t *testing.T) {
	skipIfRoot(t)
	e, root := newTestEditor(t)
	writeFile(t, root, "locked/a.js", "x")
	chmod(t, filepath.Join(root, "locked"), 0o000)

	resp := exec(t, e, Request{Command: CommandView, Path: "locked/"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Permission denied. Cannot read directory.", resp.Content)
}

func TestPermissionDeniedOnDelete(t *testing.T) {
	skipIfRoot(t)
	e, root := newTestEditor(t)
	file := writeFile(t, root, "sealed/a.js", "x")
	chmod(t, filepath.Join(root, "sealed"), 0o555)

	resp := exec(t, e, Request{Command: CommandDelete, Path: "sealed/a.js"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Permission denied. Cannot delete sealed/a.js", resp.Content)
	assert.FileExists(t, file)
}

func TestDotsInsideFileNamesAreKept(t *testing.T) {
	e, root := newTestEditor(t)
	writeFile(t, root, "v1..2.json", "{}")

	resp := exec(t, e, Request{Command: CommandView, Path: "v1..2.json"})
	require.False(t, resp.IsError, resp.Content)
	assert.Equal(t, "1: {}", resp.Content)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(map[string]any{
		"command":     "insert",
		"path":        "a.html",
		"new_str":     "",
		"insert_line": float64(3),
		"view_range":  []any{float64(1), float64(-1)},
	})
	require.NoError(t, err)
	assert.Equal(t, CommandInsert, req.Command)
	assert.Equal(t, "a.html", req.Path)
	require.NotNil(t, req.NewStr)
	assert.Equal(t, "", *req.NewStr)
	require.NotNil(t, req.InsertLine)
	assert.Equal(t, 3, *req.InsertLine)
	assert.Equal(t, []int{1, -1}, req.ViewRange)
	assert.Nil(t, req.OldStr)
	assert.Nil(t, req.MatchCount)
}

func TestClearEmptiesRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	outside := filepath.Join(parent, "keep.css")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	e, err := New(root)
	require.NoError(t, err)
	writeFile(t, root, "a.html", "x")
	writeFile(t, root, "styles/main.scss", "y")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.css")))

	removed, err := e.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.DirExists(t, root)
	assert.FileExists(t, outside)

	resp := exec(t, e, Request{Command: CommandView, Path: "/"})
	assert.False(t, resp.IsError)
	assert.Empty(t, resp.Content)

	require.NoError(t, os.RemoveAll(root))
	_, err = e.Clear(context.Background())
	assert.ErrorIs(t, err, ErrSandboxRootMissing)
}
