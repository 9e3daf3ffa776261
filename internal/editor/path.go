package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// viewableExtensions are the file suffixes a directory listing shows.
var viewableExtensions = []string{".html", ".html.liquid", ".scss", ".css", ".js", ".json"}

// resolve maps a sandbox-relative path to an absolute path that is always
// inside the root. Parent segments and symlinks are evaluated against the
// root, so "../" can never climb out of it.
func (e *Editor) resolve(p string) (string, error) {
	resolved, err := securejoin.SecureJoin(e.root, p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", p, err)
	}
	return resolved, nil
}

// resolveEntry is resolve for operations on the directory entry itself:
// the parent is resolved inside the root but the last element is not
// followed, so a symlink names the link rather than its target.
func (e *Editor) resolveEntry(p string) (string, error) {
	clean := filepath.Clean("/" + p)
	if clean == "/" {
		return e.root, nil
	}
	dir, base := filepath.Split(clean)
	parent, err := e.resolve(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, base), nil
}

func isDirectoryPath(p string) bool {
	return p == "" || p == "/" || strings.HasSuffix(p, "/")
}

func isViewable(name string) bool {
	for _, ext := range viewableExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// statTarget resolves p and stats it. A non-nil Response means the caller
// should return it as is.
func (e *Editor) statTarget(p string) (string, fs.FileInfo, *Response) {
	full, err := e.resolve(p)
	if err != nil {
		resp := failure("Error: %v", err)
		return "", nil, &resp
	}
	info, err := os.Stat(full)
	if err != nil {
		resp := statFailure(p, err)
		return "", nil, &resp
	}
	return full, info, nil
}

func statFailure(p string, err error) Response {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failure("Error: File not found at %s", p)
	case errors.Is(err, fs.ErrPermission):
		return failure("Error: Permission denied. Cannot access file.")
	}
	return failure("Error accessing %s: %v", p, err)
}

// readRegularFile resolves p and reads it. A directory yields onDir.
func (e *Editor) readRegularFile(p string, onDir Response) (string, fs.FileInfo, string, *Response) {
	full, info, resp := e.statTarget(p)
	if resp != nil {
		return "", nil, "", resp
	}
	if info.IsDir() {
		return "", nil, "", &onDir
	}
	data, err := os.ReadFile(full)
	if err != nil {
		var r Response
		if errors.Is(err, fs.ErrPermission) {
			r = failure("Error: Permission denied. Cannot read file.")
		} else {
			r = failure("Error reading file: %v", err)
		}
		return "", nil, "", &r
	}
	return full, info, string(data), nil
}

func writeFailure(err error) Response {
	if errors.Is(err, fs.ErrPermission) {
		return failure("Error: Permission denied. Cannot write to file.")
	}
	return failure("Error performing file write: %v", err)
}
