package editor

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Command is an editor command name.
type Command string

const (
	CommandView       Command = "view"
	CommandStrReplace Command = "str_replace"
	CommandInsert     Command = "insert"
	CommandCreate     Command = "create"
	CommandDelete     Command = "delete"
	CommandUndoEdit   Command = "undo_edit"
)

// ParseCommand maps a raw command name to a Command. An empty name means view.
func ParseCommand(raw Command) (Command, error) {
	switch raw {
	case "":
		return CommandView, nil
	case CommandView, CommandStrReplace, CommandInsert, CommandCreate, CommandDelete, CommandUndoEdit:
		return raw, nil
	}
	return "", fmt.Errorf("unknown command %q", raw)
}

// Request is the operand of every editor call. Pointer fields distinguish
// "not provided" from a zero value.
type Request struct {
	Command    Command `json:"command" mapstructure:"command" jsonschema:"enum=view,enum=str_replace,enum=insert,enum=create,enum=delete,enum=undo_edit,description=The editor command to run"`
	Path       string  `json:"path,omitempty" mapstructure:"path" jsonschema:"description=Path relative to the sandbox root. A trailing slash views a directory"`
	OldStr     *string `json:"old_str,omitempty" mapstructure:"old_str" jsonschema:"description=Exact text to replace (str_replace)"`
	NewStr     *string `json:"new_str,omitempty" mapstructure:"new_str" jsonschema:"description=Replacement text (str_replace) or text to insert (insert). May be empty"`
	ViewRange  []int   `json:"view_range,omitempty" mapstructure:"view_range" jsonschema:"description=Inclusive 1-based [start end] line range for view. end -1 reads to the end of file,minItems=2,maxItems=2"`
	InsertLine *int    `json:"insert_line,omitempty" mapstructure:"insert_line" jsonschema:"description=0-based line index to insert before (insert)"`
	MatchCount *int    `json:"match_count,omitempty" mapstructure:"match_count" jsonschema:"description=Set to acknowledge and replace every occurrence when old_str matches more than once"`
}

// DecodeRequest builds a Request from decoded tool-call arguments.
func DecodeRequest(args map[string]any) (Request, error) {
	var req Request
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Request{}, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return Request{}, fmt.Errorf("failed to decode editor arguments: %w", err)
	}
	return req, nil
}

// Response is the uniform result of an editor call.
type Response struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

func success(format string, args ...any) Response {
	return Response{Content: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) Response {
	return Response{Content: fmt.Sprintf(format, args...), IsError: true}
}
