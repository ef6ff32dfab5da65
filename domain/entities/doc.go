// Package entities provides the core value types of the marshaller: host
// Values, operation Signatures, call requests and results, and the Scripts
// that batch calls against one constructed object.
// These types carry no behavior beyond their own invariants.
package entities
