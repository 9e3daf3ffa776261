package editor

import (
	"errors"
	"io/fs"
	"os"
)

func (e *Editor) delete(req Request) Response {
	if req.Path == "" {
		return failure("Error: Missing required path parameter for delete")
	}

	full, err := e.resolveEntry(req.Path)
	if err != nil {
		return failure("Error: %v", err)
	}
	if full == e.root {
		return failure("Error: Cannot delete the sandbox root directory.")
	}
	// Lstat so a symlink is removed as an entry, never through its target.
	info, err := os.Lstat(full)
	if err != nil {
		return statFailure(req.Path, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(full); err != nil {
			return deleteFailure(req.Path, err)
		}
		return success("Successfully deleted directory: %s", req.Path)
	}
	if err := os.Remove(full); err != nil {
		return deleteFailure(req.Path, err)
	}
	return success("Successfully deleted file: %s", req.Path)
}

func deleteFailure(p string, err error) Response {
	if errors.Is(err, fs.ErrPermission) {
		return failure("Error: Permission denied. Cannot delete %s", p)
	}
	return failure("Error deleting %s: %v", p, err)
}
