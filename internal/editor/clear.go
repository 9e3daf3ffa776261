package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Clear removes everything inside the sandbox root and keeps the root
// itself. It returns the number of top-level entries removed. Symlinks are
// removed as links.
func (e *Editor) Clear(ctx context.Context) (int, error) {
	if err := e.checkRoot(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read sandbox root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(filepath.Join(e.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
