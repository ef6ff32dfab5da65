package host

import (
	"log/slog"

	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
	"github.com/reglet-dev/hostcall/marshal"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithMarshaller configures the executor with the operations guests may call.
func WithMarshaller(m *marshal.Marshaller) Option {
	return func(e *Executor) {
		e.marshaller = m
	}
}

// WithLogger sets the logger guest log messages are written to.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithAdapterOptions passes options through to the host module adapter,
// e.g. an access policy or request size limit.
func WithAdapterOptions(opts ...hostwazero.AdapterOption) Option {
	return func(e *Executor) {
		e.adapterOpts = append(e.adapterOpts, opts...)
	}
}
