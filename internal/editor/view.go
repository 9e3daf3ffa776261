package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

func (e *Editor) view(req Request) Response {
	if isDirectoryPath(req.Path) {
		return e.viewDirectory(req.Path)
	}
	return e.viewFile(req)
}

func (e *Editor) viewDirectory(p string) Response {
	if p == "" {
		p = "/"
	}
	full, err := e.resolve(p)
	if err != nil {
		return failure("Error: %v", err)
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return failure("Error: Permission denied. Cannot read directory.")
		}
		return failure("Directory '%s' does not exist. Please check the path and try again.", p)
	}
	if !info.IsDir() {
		return failure("Error: %s is a file, not a directory. Remove the trailing slash to view it.", p)
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return failure("Error: Permission denied. Cannot read directory.")
		}
		return failure("Error reading directory: %v", err)
	}

	var lines []string
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			lines = append(lines, fmt.Sprintf("%d: %s/", len(lines)+1, entry.Name()))
		case isViewable(entry.Name()):
			lines = append(lines, fmt.Sprintf("%d: %s", len(lines)+1, entry.Name()))
		}
	}
	return success("%s", strings.Join(lines, "\n"))
}

func (e *Editor) viewFile(req Request) Response {
	_, _, content, resp := e.readRegularFile(req.Path,
		failure("Error: This is a directory, not a file. Use a trailing slash to view directory contents."))
	if resp != nil {
		return *resp
	}

	lines := strings.Split(content, "\n")
	start, end := 1, len(lines)
	if req.ViewRange != nil {
		var msg string
		start, end, msg = normalizeRange(req.ViewRange, len(lines))
		if msg != "" {
			return failure("%s", msg)
		}
	}

	numbered := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		numbered = append(numbered, fmt.Sprintf("%d: %s", i, lines[i-1]))
	}
	return success("%s", strings.Join(numbered, "\n"))
}

// normalizeRange validates an inclusive 1-based view range. A non-empty
// message means the range was rejected.
func normalizeRange(r []int, lineCount int) (int, int, string) {
	if len(r) != 2 {
		return 0, 0, fmt.Sprintf("Error: view_range must have exactly two elements [start, end], got %d", len(r))
	}
	start, end := r[0], r[1]
	if start < 1 || start > lineCount {
		return 0, 0, fmt.Sprintf("Error: Invalid view_range [%d, %d]: start must be between 1 and %d", start, end, lineCount)
	}
	if end == -1 {
		return start, lineCount, ""
	}
	if end < start || end > lineCount {
		return 0, 0, fmt.Sprintf("Error: Invalid view_range [%d, %d]: end must be -1 or between %d and %d", start, end, start, lineCount)
	}
	return start, end, ""
}
