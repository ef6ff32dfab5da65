// Package simple is a small native object exposed through the marshaller.
// It exercises each conversion path: no arguments, numeric narrowing,
// strings, and structured results.
package simple

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/marshal"
)

// ClassName is the name hosts construct the object by.
const ClassName = "Simple"

var constructorSignature = entities.NewSignature(ClassName, entities.ParamString)

// Simple is a native object carrying a name.
type Simple struct {
	name string
}

// NewSimple creates a Simple from a native string.
func NewSimple(name string) *Simple {
	slog.Debug("Simple() constructor", "name", name)
	return &Simple{name: name}
}

// New constructs a Simple from host arguments. The first argument must be a
// String; further arguments are ignored.
func New(args []entities.Value) (*Simple, error) {
	checked, err := marshal.CheckArgs(constructorSignature, args)
	if err != nil {
		return nil, fmt.Errorf("argument to %s constructor must be a string: %w", ClassName, err)
	}
	return NewSimple(checked.String(0)), nil
}

// Name returns the name the object was constructed with.
func (s *Simple) Name() string {
	return s.name
}

// NoArgTest returns the object's name.
func (s *Simple) NoArgTest() string {
	slog.Debug("Simple::NoArgTest()", "name", s.name)
	return s.name
}

// NumberTest adds a single-precision float to a long integer.
func (s *Simple) NumberTest(a float32, b int64) float64 {
	return float64(a) + float64(b)
}

// StringTest appends its three arguments to the object's name.
func (s *Simple) StringTest(a, b, c string) string {
	return s.name + a + b + c
}

// ObjectTest returns a mapping holding num under key.
func (s *Simple) ObjectTest(key string, num float64) map[string]entities.Value {
	return map[string]entities.Value{key: entities.Number(num)}
}

// Bundle exposes the methods of s as noArgTest, numberTest, stringTest and
// objectTest.
func Bundle(s *Simple) marshal.Bundle {
	return marshal.NewBundle(
		marshal.Func0("noArgTest", func(_ context.Context) (string, error) {
			return s.NoArgTest(), nil
		}),
		marshal.Func2("numberTest", func(_ context.Context, a float32, b int64) (float64, error) {
			return s.NumberTest(a, b), nil
		}),
		marshal.Func3("stringTest", func(_ context.Context, a, b, c string) (string, error) {
			return s.StringTest(a, b, c), nil
		}),
		marshal.Func2("objectTest", func(_ context.Context, key string, num float64) (map[string]entities.Value, error) {
			return s.ObjectTest(key, num), nil
		}),
	)
}

// NewMarshaller constructs a Simple from ctorArgs and returns a Marshaller
// exposing its methods, with panic recovery and logging installed.
func NewMarshaller(ctorArgs []entities.Value, opts ...marshal.Option) (*Simple, *marshal.Marshaller, error) {
	s, err := New(ctorArgs)
	if err != nil {
		return nil, nil, err
	}

	base := []marshal.Option{
		marshal.WithMiddleware(marshal.LoggingMiddleware(nil), marshal.PanicRecoveryMiddleware()),
		marshal.WithBundle(Bundle(s)),
	}
	m, err := marshal.NewMarshaller(append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return s, m, nil
}
