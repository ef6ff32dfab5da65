package marshal

// Bundle is a pre-configured set of related operations, typically the methods
// of one native receiver. Bundles allow registering several bindings at once.
type Bundle interface {
	// Bindings returns the operations the bundle exposes.
	Bindings() []Binding
}

// staticBundle implements Bundle with a fixed set of bindings.
type staticBundle struct {
	bindings []Binding
}

func (b *staticBundle) Bindings() []Binding {
	return b.bindings
}

// NewBundle returns a Bundle exposing the given bindings.
func NewBundle(bindings ...Binding) Bundle {
	return &staticBundle{bindings: append([]Binding(nil), bindings...)}
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []Bundle
}

func (b *compositeBundle) Bindings() []Binding {
	var result []Binding
	for _, bundle := range b.bundles {
		result = append(result, bundle.Bindings()...)
	}
	return result
}

// CombineBundles returns a bundle containing the bindings of all given bundles.
// Name collisions surface as duplicate-operation errors when registered.
func CombineBundles(bundles ...Bundle) Bundle {
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers all bindings from a bundle.
func WithBundle(bundle Bundle) Option {
	return func(b *builder) {
		for _, binding := range bundle.Bindings() {
			if err := b.addBinding(binding); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}
