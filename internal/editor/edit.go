package editor

import (
	"os"
	"slices"
	"strings"
)

func (e *Editor) strReplace(req Request) Response {
	if req.Path == "" || req.OldStr == nil || *req.OldStr == "" || req.NewStr == nil {
		return failure("Error: Missing required parameters for str_replace")
	}

	full, info, content, resp := e.readRegularFile(req.Path, isDirectoryFailure(req.Path))
	if resp != nil {
		return *resp
	}

	// Literal search: old_str is never interpreted as a pattern.
	matches := strings.Count(content, *req.OldStr)
	switch {
	case matches == 0:
		return failure("Error: No match found for replacement. Please check your text and try again.")
	case matches > 1 && !acknowledged(req.MatchCount):
		return failure("Error: Found %d matches for replacement text. Please provide more context to make a unique match.", matches)
	}

	updated := strings.ReplaceAll(content, *req.OldStr, *req.NewStr)
	if err := os.WriteFile(full, []byte(updated), info.Mode().Perm()); err != nil {
		return writeFailure(err)
	}

	if matches == 1 {
		return success("Successfully replaced text at exactly one location.")
	}
	return success("Successfully replaced text at %d locations.", matches)
}

// acknowledged reports whether the caller opted into a multi-match replace.
func acknowledged(matchCount *int) bool {
	return matchCount != nil && *matchCount != 0
}

func (e *Editor) insert(req Request) Response {
	if req.Path == "" || req.NewStr == nil {
		return failure("Error: Missing required parameters for insert")
	}
	at := 0
	if req.InsertLine != nil {
		at = *req.InsertLine
	}

	full, info, content, resp := e.readRegularFile(req.Path, isDirectoryFailure(req.Path))
	if resp != nil {
		return *resp
	}

	lines := strings.Split(content, "\n")
	if at < 0 || at > len(lines) {
		return failure("Error: Line number %d is out of bounds (file has %d lines)", at, len(lines))
	}

	inserted := strings.Split(*req.NewStr, "\n")
	lines = slices.Insert(lines, at, inserted...)

	if err := os.WriteFile(full, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return writeFailure(err)
	}

	plural := "s"
	if len(inserted) == 1 {
		plural = ""
	}
	return success("Successfully inserted %d line%s at position %d.", len(inserted), plural, at)
}

func isDirectoryFailure(p string) Response {
	return failure("Error: %s is a directory, not a file.", p)
}
