package marshal

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/hostcall/domain/entities"
)

// paramKindOf maps a native Go parameter type onto the host kind it accepts.
func paramKindOf[T any]() (entities.ParamKind, error) {
	var zero T
	switch any(&zero).(type) {
	case *float64, *float32,
		*int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64:
		return entities.ParamNumber, nil
	case *string:
		return entities.ParamString, nil
	case *bool:
		return entities.ParamBoolean, nil
	case *map[string]entities.Value:
		return entities.ParamObject, nil
	case *[]entities.Value:
		return entities.ParamArray, nil
	case *entities.Value:
		return entities.ParamAny, nil
	default:
		return entities.ParamAny, fmt.Errorf("unsupported native parameter type %T", zero)
	}
}

// fromValue converts a validated host value into its native representation.
// Numbers narrow the way a C conversion does: float32 rounds to nearest and
// integer types truncate toward zero.
func fromValue[T any](v entities.Value) T {
	var out T
	n, _ := v.AsNumber()
	switch p := any(&out).(type) {
	case *float64:
		*p = n
	case *float32:
		*p = float32(n)
	case *int:
		*p = int(n)
	case *int8:
		*p = int8(n)
	case *int16:
		*p = int16(n)
	case *int32:
		*p = int32(n)
	case *int64:
		*p = int64(n)
	case *uint:
		*p = uint(n)
	case *uint8:
		*p = uint8(n)
	case *uint16:
		*p = uint16(n)
	case *uint32:
		*p = uint32(n)
	case *uint64:
		*p = uint64(n)
	case *string:
		*p, _ = v.AsString()
	case *bool:
		*p, _ = v.AsBool()
	case *map[string]entities.Value:
		*p, _ = v.AsObject()
	case *[]entities.Value:
		*p, _ = v.AsArray()
	case *entities.Value:
		*p = v
	}
	return out
}

// ToValue converts a native result into a host-representable Value.
// Numbers and strings pass through; maps and structs become Objects keyed by
// their JSON field names.
func ToValue(out any) (entities.Value, error) {
	switch x := out.(type) {
	case nil:
		return entities.Undefined(), nil
	case entities.Value:
		return x, nil
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		string, bool, map[string]entities.Value, []entities.Value,
		map[string]any, []any:
		return entities.FromInterface(x)
	}

	// Structured results round-trip through JSON so field tags decide the keys.
	data, err := json.Marshal(out)
	if err != nil {
		return entities.Value{}, fmt.Errorf("cannot convert native result of type %T: %w", out, err)
	}
	var v entities.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return entities.Value{}, fmt.Errorf("cannot convert native result of type %T: %w", out, err)
	}
	return v, nil
}
