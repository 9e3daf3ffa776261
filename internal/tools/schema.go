package tools

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
)

// EditorDescription is advertised to the assistant with the editor schema.
const EditorDescription = "View and edit files inside the sandbox. Commands: view (a file, or a directory when the path ends with /), " +
	"str_replace (replace exact text; set match_count to replace every occurrence), insert (add lines after insert_line, 0 prepends), " +
	"delete (a file or directory)."

// FunctionDefinition is the function part of a tool definition.
type FunctionDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// ToolDefinition is a tool as registered with an assistant.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// EditorDefinition returns the str_replace_editor tool definition.
func EditorDefinition() ToolDefinition {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}
	schema := r.Reflect(&editor.Request{})
	schema.Version = ""
	schema.ID = ""
	// The editor reads a missing path as the sandbox root.
	if p := getProp(schema.Properties, "path"); p != nil {
		p.Default = "/"
	}
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        editor.ToolName,
			Description: EditorDescription,
			Parameters:  schema,
		},
	}
}

func getProp(props *orderedmap.OrderedMap[string, *jsonschema.Schema], key string) *jsonschema.Schema {
	if props == nil {
		return nil
	}
	value, ok := props.Get(key)
	if !ok {
		return nil
	}
	return value
}
