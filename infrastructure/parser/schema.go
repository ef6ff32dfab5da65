package parser

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ScriptSchema returns the JSON Schema (Draft 2020-12) of the script format,
// for editors that validate YAML against a schema.
func ScriptSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(&scriptFile{})
	schema.Title = "hostcall script"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
