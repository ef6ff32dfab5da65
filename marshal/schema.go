package marshal

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/wireformat"
)

var valueType = reflect.TypeOf(entities.Value{})

// paramSchema returns the JSON Schema of a single argument slot.
func paramSchema(kind entities.ParamKind) *jsonschema.Schema {
	switch kind {
	case entities.ParamNumber:
		return &jsonschema.Schema{Type: "number"}
	case entities.ParamString:
		return &jsonschema.Schema{Type: "string"}
	case entities.ParamBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case entities.ParamObject:
		return &jsonschema.Schema{Type: "object"}
	case entities.ParamArray:
		return &jsonschema.Schema{Type: "array"}
	default:
		return &jsonschema.Schema{Description: "any value"}
	}
}

// ArgumentSchema describes the argument list accepted by sig as a JSON
// Schema array with one prefix item per declared parameter.
func ArgumentSchema(sig entities.Signature) *jsonschema.Schema {
	items := make([]*jsonschema.Schema, len(sig.Params))
	for i, kind := range sig.Params {
		items[i] = paramSchema(kind)
	}

	minItems := uint64(len(sig.Params))
	s := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       sig.Name,
		Description: sig.String(),
		Type:        "array",
		PrefixItems: items,
		MinItems:    &minItems,
	}
	if sig.Strict {
		maxItems := minItems
		s.MaxItems = &maxItems
	}
	return s
}

// ArgumentSchemas returns the argument schema of every registered operation,
// keyed by name.
func (m *Marshaller) ArgumentSchemas() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(m.names))
	for _, name := range m.names {
		out[name] = ArgumentSchema(m.ops[name].sig)
	}
	return out
}

// GenerateRequestSchema creates the JSON Schema of the wire call request.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateRequestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == valueType {
				return &jsonschema.Schema{Description: "host value: number, string, boolean, object, array or null"}
			}
			return nil
		},
	}
	schema := reflector.Reflect(&wireformat.CallRequestWire{})

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}
