package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	// KindUndefined is the zero Value. Hosts send it for missing or null slots.
	KindUndefined ValueKind = iota
	KindNumber
	KindString
	KindBoolean
	KindObject
	KindArray
)

var valueKindNames = [...]string{
	KindUndefined: "Undefined",
	KindNumber:    "Number",
	KindString:    "String",
	KindBoolean:   "Boolean",
	KindObject:    "Object",
	KindArray:     "Array",
}

func (k ValueKind) String() string {
	if k < 0 || int(k) >= len(valueKindNames) {
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
	return valueKindNames[k]
}

// Value is a dynamically-typed host value.
// The zero Value is Undefined. Values are immutable once constructed; Object and
// Array constructors copy their input.
type Value struct {
	obj  map[string]Value
	str  string
	arr  []Value
	num  float64
	kind ValueKind
	b    bool
}

// Undefined returns the zero Value.
func Undefined() Value { return Value{} }

// Number returns a Number value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// String returns a String value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Object returns an Object value holding a copy of m.
func Object(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// Array returns an Array value holding a copy of items.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsUndefined reports whether v is the zero Value.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// AsObject returns a copy of the mapping held by v.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	cp := make(map[string]Value, len(v.obj))
	for k, e := range v.obj {
		cp[k] = e
	}
	return cp, true
}

// AsArray returns a copy of the elements held by v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp, true
}

// Get looks up key in an Object value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	e, ok := v.obj[key]
	return e, ok
}

// Len returns the number of entries of an Object or Array, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.obj)
	case KindArray:
		return len(v.arr)
	default:
		return 0
	}
}

// Interface converts v into plain Go values: nil, float64, string, bool,
// map[string]any or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBoolean:
		return v.b
	case KindObject:
		m := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			m[k] = e.Interface()
		}
		return m
	case KindArray:
		s := make([]any, len(v.arr))
		for i, e := range v.arr {
			s[i] = e.Interface()
		}
		return s
	default:
		return nil
	}
}

// Equal reports whether v and other hold the same kind and contents.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	case KindString:
		return v.str == other.str
	case KindBoolean:
		return v.b == other.b
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, e := range v.obj {
			o, ok := other.obj[k]
			if !ok || !e.Equal(o) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders v the way a host console would print it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "undefined"
	}
}

// LogValue implements slog.LogValuer.
func (v Value) LogValue() slog.Value {
	switch v.kind {
	case KindNumber:
		return slog.Float64Value(v.num)
	case KindString:
		return slog.StringValue(v.str)
	case KindBoolean:
		return slog.BoolValue(v.b)
	case KindUndefined:
		return slog.StringValue("undefined")
	default:
		return slog.StringValue(v.String())
	}
}

// MarshalJSON encodes v as its natural JSON form. Undefined encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("number %v has no JSON representation", v.num)
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindObject:
		return json.Marshal(v.obj)
	case KindArray:
		return json.Marshal(v.arr)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	decoded, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// FromInterface converts plain Go data (as produced by encoding/json or
// gopkg.in/yaml.v3) into a Value.
func FromInterface(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int8:
		return Number(float64(x)), nil
	case int16:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint:
		return Number(float64(x)), nil
	case uint8:
		return Number(float64(x)), nil
	case uint16:
		return Number(float64(x)), nil
	case uint32:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case map[string]Value:
		return Object(x), nil
	case []Value:
		return Array(x...), nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = ev
		}
		return Value{kind: KindObject, obj: m}, nil
	case map[any]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("object key %v is not a string", k)
			}
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", ks, err)
			}
			m[ks] = ev
		}
		return Value{kind: KindObject, obj: m}, nil
	case []any:
		s := make([]Value, len(x))
		for i, e := range x {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			s[i] = ev
		}
		return Value{kind: KindArray, arr: s}, nil
	default:
		return Value{}, fmt.Errorf("unsupported host value of type %T", raw)
	}
}
