// Package runner executes call scripts against a constructed object and
// checks their expectations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/marshal"
)

// Factory constructs the object a script runs against and returns the
// marshaller exposing it.
type Factory func(ctorArgs []entities.Value) (*marshal.Marshaller, error)

// Outcome is the result of one scripted call.
type Outcome struct {
	// Mismatch describes how Result differs from the call's expectation.
	// Nil when the expectation holds or none was given.
	Mismatch error
	Result   entities.CallResult
}

// Report collects the outcomes of a script in call order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the number of calls whose expectation did not hold.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Mismatch != nil {
			n++
		}
	}
	return n
}

// Err joins every mismatch, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for i, o := range r.Outcomes {
		if o.Mismatch != nil {
			errs = append(errs, fmt.Errorf("call %d (%s): %w", i, o.Result.Name, o.Mismatch))
		}
	}
	return errors.Join(errs...)
}

// Runner runs scripts.
type Runner struct {
	factory Factory
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for expectation failures (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner that builds its marshaller with factory.
func New(factory Factory, opts ...Option) *Runner {
	r := &Runner{factory: factory, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run constructs the script's object and issues its calls. Calls run in
// order, or through InvokeBatch when the script sets Parallel. Rejected calls
// are outcomes, not errors; Run fails only when construction fails.
func (r *Runner) Run(ctx context.Context, script *entities.Script) (*Report, error) {
	m, err := r.factory(script.Constructor)
	if err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}

	reqs := script.Requests()
	var results []entities.CallResult
	if script.Parallel > 0 {
		results = m.InvokeBatch(ctx, reqs, script.Parallel)
	} else {
		results = make([]entities.CallResult, len(reqs))
		for i, req := range reqs {
			results[i] = m.Call(ctx, req)
		}
	}

	report := &Report{Outcomes: make([]Outcome, len(results))}
	for i, res := range results {
		out := Outcome{Result: res}
		if expect := script.Calls[i].Expect; expect != nil {
			out.Mismatch = expect.Check(res)
		}
		if out.Mismatch != nil {
			r.logger.WarnContext(ctx, "expectation failed",
				"index", i,
				"operation", res.Name,
				"error", out.Mismatch,
			)
		}
		report.Outcomes[i] = out
	}
	return report, nil
}
