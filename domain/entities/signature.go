package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamKind is the declared kind of one signature slot.
type ParamKind int

const (
	ParamAny ParamKind = iota
	ParamNumber
	ParamString
	ParamBoolean
	ParamObject
	ParamArray
)

var paramKindNames = [...]string{
	ParamAny:     "Any",
	ParamNumber:  "Number",
	ParamString:  "String",
	ParamBoolean: "Boolean",
	ParamObject:  "Object",
	ParamArray:   "Array",
}

func (k ParamKind) String() string {
	if !k.Valid() {
		return "ParamKind(" + strconv.Itoa(int(k)) + ")"
	}
	return paramKindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k ParamKind) Valid() bool {
	return k >= 0 && int(k) < len(paramKindNames)
}

// Accepts reports whether v may occupy a slot of kind k. No coercion is
// performed: a String never satisfies a Number slot.
func (k ParamKind) Accepts(v Value) bool {
	switch k {
	case ParamAny:
		return true
	case ParamNumber:
		return v.Kind() == KindNumber
	case ParamString:
		return v.Kind() == KindString
	case ParamBoolean:
		return v.Kind() == KindBoolean
	case ParamObject:
		return v.Kind() == KindObject
	case ParamArray:
		return v.Kind() == KindArray
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ParamKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid param kind %d", int(k))
	}
	return []byte(strings.ToLower(paramKindNames[k])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ParamKind) UnmarshalText(text []byte) error {
	parsed, err := ParseParamKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseParamKind parses a case-insensitive kind name such as "number".
func ParseParamKind(s string) (ParamKind, error) {
	for i, name := range paramKindNames {
		if strings.EqualFold(s, name) {
			return ParamKind(i), nil
		}
	}
	return ParamAny, fmt.Errorf("unknown param kind %q", s)
}

// Signature describes one exposed operation. Signatures are defined once when
// the marshaller is built and are never mutated afterwards.
type Signature struct {
	// Name is the operation name hosts call.
	Name string `json:"name" yaml:"name" validate:"required,operation_name"`

	// Params lists the required argument kinds in order.
	Params []ParamKind `json:"params" yaml:"params" validate:"dive,param_kind"`

	// Strict rejects trailing arguments beyond Params instead of dropping them.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// NewSignature builds a Signature. Trailing arguments beyond params are
// accepted and ignored unless the signature is made Strict.
func NewSignature(name string, params ...ParamKind) Signature {
	return Signature{Name: name, Params: append([]ParamKind(nil), params...)}
}

// Required returns the minimum number of arguments a call must supply.
func (s Signature) Required() int {
	return len(s.Params)
}

// Clone returns a copy of s that shares no memory with it.
func (s Signature) Clone() Signature {
	s.Params = append([]ParamKind(nil), s.Params...)
	return s
}

// AsStrict returns a copy of s that rejects trailing arguments.
func (s Signature) AsStrict() Signature {
	s = s.Clone()
	s.Strict = true
	return s
}

// MaxArgs returns the largest accepted argument count, or -1 when trailing
// arguments are tolerated.
func (s Signature) MaxArgs() int {
	if s.Strict {
		return len(s.Params)
	}
	return -1
}

// String renders s as name(Kind, Kind, ...).
func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	if !s.Strict {
		parts = append(parts, "...")
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}
