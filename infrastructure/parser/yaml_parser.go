// Package parser reads call scripts.
//
// A script constructs one object and issues calls against it:
//
//	constructor: [foo]
//	parallel: 0
//	calls:
//	  - name: numberTest
//	    args: [1.5, 1000]
//	    expect:
//	      value: 1001.5
//	  - name: numberTest
//	    args: [1.5, "1000"]
//	    expect:
//	      error: TYPE_MISMATCH
//
// YAML scalars keep their own type: "1000" is a String and never reaches a
// Number parameter.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/domain/ports"
	"gopkg.in/yaml.v3"
)

type scriptFile struct {
	Constructor []any      `yaml:"constructor,omitempty" jsonschema:"description=Constructor arguments"`
	Calls       []callFile `yaml:"calls" validate:"required,min=1,dive" jsonschema:"minItems=1"`
	Parallel    int        `yaml:"parallel,omitempty" validate:"gte=0" jsonschema:"minimum=0,description=Maximum concurrent calls; 0 runs them in order"`
}

type callFile struct {
	Expect *expectFile `yaml:"expect,omitempty"`
	Name   string      `yaml:"name" validate:"required" jsonschema:"minLength=1"`
	Args   []any       `yaml:"args,omitempty"`
}

type expectFile struct {
	Value    any    `yaml:"value,omitempty"`
	Error    string `yaml:"error,omitempty" validate:"omitempty,oneof=NOT_FOUND ARITY_MISMATCH TYPE_MISMATCH NATIVE_ERROR CANCELED TIMEOUT FORBIDDEN VALIDATION_ERROR INTERNAL_ERROR" jsonschema:"enum=NOT_FOUND,enum=ARITY_MISMATCH,enum=TYPE_MISMATCH,enum=NATIVE_ERROR,enum=CANCELED,enum=TIMEOUT,enum=FORBIDDEN,enum=VALIDATION_ERROR,enum=INTERNAL_ERROR"`
	hasValue bool
}

// UnmarshalYAML records whether "value" was present, so that an explicit
// null can be expected.
func (e *expectFile) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for key, v := range raw {
		switch key {
		case "value":
			e.Value, e.hasValue = v, true
		case "error":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("line %d: expect.error must be a string", node.Line)
			}
			e.Error = s
		default:
			return fmt.Errorf("line %d: unknown expectation %q", node.Line, key)
		}
	}
	if e.hasValue && e.Error != "" {
		return fmt.Errorf("line %d: expect has both value and error", node.Line)
	}
	return nil
}

var validate = newScriptValidator()

func newScriptValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// YamlScriptParser implements ScriptParser for YAML.
type YamlScriptParser struct{}

// NewYamlScriptParser creates a new YamlScriptParser.
func NewYamlScriptParser() ports.ScriptParser {
	return &YamlScriptParser{}
}

// Parse decodes a YAML script. Unknown keys are rejected.
func (p *YamlScriptParser) Parse(data []byte) (*entities.Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file scriptFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domainerrors.ConfigError{Field: "calls", Err: errors.New("script is empty")}
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if err := validate.Struct(file); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &domainerrors.ConfigError{Field: verrs[0].Namespace(), Err: err}
		}
		return nil, &domainerrors.ConfigError{Err: err}
	}

	return file.toScript()
}

func (f scriptFile) toScript() (*entities.Script, error) {
	ctor, err := toValues(f.Constructor)
	if err != nil {
		return nil, fmt.Errorf("constructor: %w", err)
	}

	script := &entities.Script{
		Constructor: ctor,
		Calls:       make([]entities.ScriptCall, len(f.Calls)),
		Parallel:    f.Parallel,
	}
	for i, c := range f.Calls {
		args, err := toValues(c.Args)
		if err != nil {
			return nil, fmt.Errorf("calls[%d] %s: %w", i, c.Name, err)
		}
		call := entities.ScriptCall{Request: entities.NewCallRequest(c.Name, args...)}

		if c.Expect != nil {
			expect := &entities.Expectation{Error: c.Expect.Error}
			if c.Expect.hasValue {
				v, err := entities.FromInterface(c.Expect.Value)
				if err != nil {
					return nil, fmt.Errorf("calls[%d] %s: expect.value: %w", i, c.Name, err)
				}
				expect.Value = &v
			}
			call.Expect = expect
		}
		script.Calls[i] = call
	}
	return script, nil
}

func toValues(raw []any) ([]entities.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]entities.Value, len(raw))
	for i, r := range raw {
		v, err := entities.FromInterface(r)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
