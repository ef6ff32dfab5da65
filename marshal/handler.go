package marshal

import (
	"context"
	"fmt"

	"github.com/reglet-dev/hostcall/domain/entities"
)

// Args holds the validated arguments of one call. It has exactly as many
// entries as the signature declares parameters, each of the declared kind,
// so the typed accessors never need to report failure.
type Args []entities.Value

// Number returns argument i as a number.
func (a Args) Number(i int) float64 {
	n, _ := a[i].AsNumber()
	return n
}

// String returns argument i as a string.
func (a Args) String(i int) string {
	s, _ := a[i].AsString()
	return s
}

// Bool returns argument i as a boolean.
func (a Args) Bool(i int) bool {
	b, _ := a[i].AsBool()
	return b
}

// Object returns argument i as a mapping.
func (a Args) Object(i int) map[string]entities.Value {
	m, _ := a[i].AsObject()
	return m
}

// Array returns argument i as a list.
func (a Args) Array(i int) []entities.Value {
	s, _ := a[i].AsArray()
	return s
}

// NativeFunc is a native operation. It only ever runs with arguments that
// passed arity and type validation.
type NativeFunc func(ctx context.Context, args Args) (entities.Value, error)

// Handler is the unit middleware wraps: validation followed by native execution.
// The raw host arguments are passed in; the innermost handler validates them.
type Handler func(ctx context.Context, args []entities.Value) (entities.Value, error)

// Binding pairs a Signature with the native function it dispatches to.
type Binding struct {
	err       error
	native    NativeFunc
	Signature entities.Signature
}

// NewBinding binds an untyped NativeFunc to an explicit signature.
func NewBinding(sig entities.Signature, fn NativeFunc) Binding {
	if fn == nil {
		return Binding{Signature: sig, err: fmt.Errorf("operation %q has no native function", sig.Name)}
	}
	return Binding{Signature: sig, native: fn}
}

// Strict returns a copy of b whose signature rejects trailing arguments.
func (b Binding) Strict() Binding {
	b.Signature = b.Signature.AsStrict()
	return b
}

// Err reports a problem detected while deriving the binding, such as an
// unsupported parameter type.
func (b Binding) Err() error {
	return b.err
}

// Func0 binds a native function without parameters.
func Func0[R any](name string, fn func(context.Context) (R, error)) Binding {
	sig, err := signatureOf(name)
	if err != nil {
		return Binding{Signature: sig, err: err}
	}
	return NewBinding(sig, func(ctx context.Context, _ Args) (entities.Value, error) {
		out, err := fn(ctx)
		if err != nil {
			return entities.Value{}, err
		}
		return ToValue(out)
	})
}

// Func1 binds a native function of one parameter. The parameter kind is
// derived from A.
func Func1[A, R any](name string, fn func(context.Context, A) (R, error)) Binding {
	sig, err := signatureOf(name, paramKindOf[A])
	if err != nil {
		return Binding{Signature: sig, err: err}
	}
	return NewBinding(sig, func(ctx context.Context, args Args) (entities.Value, error) {
		out, err := fn(ctx, fromValue[A](args[0]))
		if err != nil {
			return entities.Value{}, err
		}
		return ToValue(out)
	})
}

// Func2 binds a native function of two parameters.
func Func2[A, B, R any](name string, fn func(context.Context, A, B) (R, error)) Binding {
	sig, err := signatureOf(name, paramKindOf[A], paramKindOf[B])
	if err != nil {
		return Binding{Signature: sig, err: err}
	}
	return NewBinding(sig, func(ctx context.Context, args Args) (entities.Value, error) {
		out, err := fn(ctx, fromValue[A](args[0]), fromValue[B](args[1]))
		if err != nil {
			return entities.Value{}, err
		}
		return ToValue(out)
	})
}

// Func3 binds a native function of three parameters.
func Func3[A, B, C, R any](name string, fn func(context.Context, A, B, C) (R, error)) Binding {
	sig, err := signatureOf(name, paramKindOf[A], paramKindOf[B], paramKindOf[C])
	if err != nil {
		return Binding{Signature: sig, err: err}
	}
	return NewBinding(sig, func(ctx context.Context, args Args) (entities.Value, error) {
		out, err := fn(ctx, fromValue[A](args[0]), fromValue[B](args[1]), fromValue[C](args[2]))
		if err != nil {
			return entities.Value{}, err
		}
		return ToValue(out)
	})
}

func signatureOf(name string, kinds ...func() (entities.ParamKind, error)) (entities.Signature, error) {
	params := make([]entities.ParamKind, len(kinds))
	for i, kindOf := range kinds {
		k, err := kindOf()
		if err != nil {
			return entities.Signature{Name: name}, fmt.Errorf("operation %q parameter %d: %w", name, i, err)
		}
		params[i] = k
	}
	return entities.NewSignature(name, params...), nil
}
