package marshal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
)

// Marshaller is an immutable dispatch table from operation name to Signature
// and native function. Once created via NewMarshaller, operations cannot be
// added or removed. This ensures thread safety and lock-free lookups during
// execution.
type Marshaller struct {
	ops          map[string]*operation
	newRequestID func() string
	names        []string // sorted for consistent iteration
}

type operation struct {
	handler Handler
	sig     entities.Signature
}

// builder accumulates configuration during marshaller construction.
type builder struct {
	bindings     map[string]Binding
	newRequestID func() string
	middleware   []Middleware
	errors       []error
}

// NewMarshaller creates an immutable Marshaller with the given options.
// Returns an error if any operation is invalid or registered twice.
//
// Example usage:
//
//	m, err := NewMarshaller(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(simple.Bundle(obj)),
//	    WithBinding(Func1("double", func(_ context.Context, n float64) (float64, error) {
//	        return n * 2, nil
//	    })),
//	)
func NewMarshaller(opts ...Option) (*Marshaller, error) {
	b := &builder{
		bindings:     make(map[string]Binding),
		newRequestID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0] // Return first error
	}

	names := make([]string, 0, len(b.bindings))
	for name := range b.bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make(map[string]*operation, len(b.bindings))
	for name, binding := range b.bindings {
		wrapped := dispatch(binding.Signature, binding.native)
		// Apply middleware in reverse order so first middleware wraps outermost
		for i := len(b.middleware) - 1; i >= 0; i-- {
			wrapped = b.middleware[i](wrapped)
		}
		ops[name] = &operation{sig: binding.Signature, handler: wrapped}
	}

	return &Marshaller{
		ops:          ops,
		names:        names,
		newRequestID: b.newRequestID,
	}, nil
}

// dispatch builds the innermost handler: the call is fully validated before
// the native function runs, so a rejected call never has side effects.
func dispatch(sig entities.Signature, native NativeFunc) Handler {
	return func(ctx context.Context, raw []entities.Value) (entities.Value, error) {
		args, err := CheckArgs(sig, raw)
		if err != nil {
			return entities.Value{}, err
		}
		if err := ctx.Err(); err != nil {
			return entities.Value{}, &domainerrors.CanceledError{Operation: sig.Name, Err: err}
		}

		v, err := native(ctx, args)
		if err != nil {
			var nativeErr *domainerrors.NativeError
			if errors.As(err, &nativeErr) {
				return entities.Value{}, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return entities.Value{}, &domainerrors.CanceledError{Operation: sig.Name, Err: err}
			}
			return entities.Value{}, &domainerrors.NativeError{Operation: sig.Name, Err: err}
		}
		return v, nil
	}
}

// Invoke validates args against the signature registered under name and, if
// they are acceptable, runs the native operation and returns its converted
// result. Failures are one of UnknownOperationError, ArityMismatchError,
// TypeMismatchError, CanceledError or NativeError.
func (m *Marshaller) Invoke(ctx context.Context, name string, args []entities.Value) (entities.Value, error) {
	op, ok := m.ops[name]
	if !ok {
		return entities.Value{}, &domainerrors.UnknownOperationError{Name: name}
	}

	requestID, ok := RequestIDFrom(ctx)
	if !ok {
		requestID = m.newRequestID()
	}
	return op.handler(NewCallContext(ctx, op.sig, requestID), args)
}

// Call runs a CallRequest and reports the outcome as a CallResult instead of
// an error, with timing metadata attached.
func (m *Marshaller) Call(ctx context.Context, req entities.CallRequest) entities.CallResult {
	requestID, ok := RequestIDFrom(ctx)
	if !ok {
		requestID = m.newRequestID()
		ctx = WithRequestID(ctx, requestID)
	}

	start := time.Now()
	v, err := m.Invoke(ctx, req.Name, req.Args)
	meta := entities.NewCallMetadata(start, time.Now()).WithRequestID(requestID)
	if err != nil {
		return entities.CallError(req.Name, domainerrors.ToErrorDetail(err)).WithMetadata(meta)
	}
	return entities.CallSuccess(req.Name, v).WithMetadata(meta)
}

// Has returns true if an operation with the given name is registered.
func (m *Marshaller) Has(name string) bool {
	_, ok := m.ops[name]
	return ok
}

// Names returns a sorted list of all registered operation names.
func (m *Marshaller) Names() []string {
	result := make([]string, len(m.names))
	copy(result, m.names)
	return result
}

// Signature returns the signature registered under name.
func (m *Marshaller) Signature(name string) (entities.Signature, bool) {
	op, ok := m.ops[name]
	if !ok {
		return entities.Signature{}, false
	}
	return op.sig.Clone(), true
}

// Signatures returns every registered signature, ordered by name.
func (m *Marshaller) Signatures() []entities.Signature {
	sigs := make([]entities.Signature, 0, len(m.names))
	for _, name := range m.names {
		sig, _ := m.Signature(name)
		sigs = append(sigs, sig)
	}
	return sigs
}

// addBinding registers a binding under its signature name.
// Returns an error if the binding is invalid or the name is already registered.
func (b *builder) addBinding(binding Binding) error {
	if binding.Signature.Name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if err := binding.Err(); err != nil {
		return err
	}
	if binding.native == nil {
		return fmt.Errorf("operation %q has no native function", binding.Signature.Name)
	}
	if err := ValidateSignature(binding.Signature); err != nil {
		return err
	}
	if _, exists := b.bindings[binding.Signature.Name]; exists {
		return fmt.Errorf("duplicate operation name: %q", binding.Signature.Name)
	}
	binding.Signature = binding.Signature.Clone()
	b.bindings[binding.Signature.Name] = binding
	return nil
}

// WithBinding registers one or more bindings.
func WithBinding(bindings ...Binding) Option {
	return func(b *builder) {
		for _, binding := range bindings {
			if err := b.addBinding(binding); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithOperation registers an untyped native function under an explicit signature.
// Use the FuncN helpers for type-safe registration with derived signatures.
func WithOperation(sig entities.Signature, fn NativeFunc) Option {
	return WithBinding(NewBinding(sig, fn))
}

// WithMiddleware adds middleware to the marshaller.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *builder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithRequestIDGenerator replaces the default UUID request ID generator.
func WithRequestIDGenerator(fn func() string) Option {
	return func(b *builder) {
		if fn != nil {
			b.newRequestID = fn
		}
	}
}
