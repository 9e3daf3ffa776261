// Package editor implements the str_replace_editor tool: line-oriented file
// viewing and editing confined to a single sandbox root directory.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ToolName is the function name the assistant uses to reach the editor.
const ToolName = "str_replace_editor"

// ErrSandboxRootMissing is returned when the sandbox root does not exist.
// It is a deployment error, not something the assistant can recover from.
var ErrSandboxRootMissing = errors.New("sandbox root directory does not exist")

// Editor executes editor requests against one sandbox root.
type Editor struct {
	root string
}

// New returns an Editor rooted at root. The directory must already exist.
func New(root string) (*Editor, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root is empty", ErrSandboxRootMissing)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root %q: %w", root, err)
	}
	e := &Editor{root: abs}
	if err := e.checkRoot(); err != nil {
		return nil, err
	}
	return e, nil
}

// Root returns the absolute sandbox root.
func (e *Editor) Root() string {
	return e.root
}

// Execute runs one request. Every validation, lookup and I/O failure is
// reported in the Response; the error return is reserved for a missing
// sandbox root.
func (e *Editor) Execute(ctx context.Context, req Request) (Response, error) {
	if err := e.checkRoot(); err != nil {
		return Response{}, err
	}
	if err := ctx.Err(); err != nil {
		return failure("Error: %v", err), nil
	}

	cmd, err := ParseCommand(req.Command)
	if err != nil {
		return failure("Unknown command: %s", req.Command), nil
	}

	log := logrus.WithFields(logrus.Fields{"command": cmd, "path": req.Path})
	log.Debug("executing editor command")

	var resp Response
	switch cmd {
	case CommandView:
		resp = e.view(req)
	case CommandStrReplace:
		resp = e.strReplace(req)
	case CommandInsert:
		resp = e.insert(req)
	case CommandDelete:
		resp = e.delete(req)
	case CommandCreate:
		resp = failure("create not yet implemented")
	case CommandUndoEdit:
		resp = failure("undo_edit not yet implemented")
	}
	if resp.IsError {
		log.WithField("content", resp.Content).Debug("editor command failed")
	}
	return resp, nil
}

func (e *Editor) checkRoot() error {
	info, err := os.Stat(e.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s (create it before starting)", ErrSandboxRootMissing, e.root)
		}
		return fmt.Errorf("failed to stat sandbox root %s: %w", e.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSandboxRootMissing, e.root)
	}
	return nil
}
