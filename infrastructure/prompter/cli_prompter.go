// Package prompter asks an operator whether a guest may call an operation.
package prompter

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/domain/ports"
	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
)

var _ ports.Prompter = (*CliPrompter)(nil)

// CliPrompter asks on a terminal.
type CliPrompter struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

// NewCliPrompter creates a new CliPrompter.
func NewCliPrompter(in io.Reader, out io.Writer) *CliPrompter {
	return &CliPrompter{in: in, out: out, scanner: bufio.NewScanner(in)}
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PromptForCall asks whether guest may invoke operation. always reports that
// the answer should be remembered.
func (p *CliPrompter) PromptForCall(guest, operation string) (granted bool, always bool, err error) {
	_, _ = fmt.Fprintf(p.out, "Guest %q wants to call %q\n", guest, operation)
	_, _ = fmt.Fprintf(p.out, "Allow? [y/n/always]: ")

	if p.scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
		case "y", "yes":
			return true, false, nil
		case "a", "always":
			return true, true, nil
		default:
			return false, false, nil
		}
	}
	if err := p.scanner.Err(); err != nil {
		return false, false, err
	}
	return false, false, io.EOF
}

// GrantSaver persists grants remembered with "always".
type GrantSaver interface {
	Save(hostwazero.AllowList) error
}

// Policy is an access policy that falls back to asking the operator when the
// stored grants do not cover a call. Prompts are serialized.
type Policy struct {
	grants   hostwazero.AllowList
	prompter ports.Prompter
	store    GrantSaver
	logger   *slog.Logger
	mu       sync.Mutex
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithLogger sets the logger that reports grants which could not be saved.
func WithLogger(l *slog.Logger) PolicyOption {
	return func(pol *Policy) {
		if l != nil {
			pol.logger = l
		}
	}
}

// NewPolicy returns a Policy starting from grants. store may be nil, in which
// case "always" answers last for the life of the process.
func NewPolicy(grants hostwazero.AllowList, p ports.Prompter, store GrantSaver, opts ...PolicyOption) *Policy {
	copied := make(hostwazero.AllowList, len(grants))
	for guest, ops := range grants {
		copied[guest] = append([]string(nil), ops...)
	}
	pol := &Policy{grants: copied, prompter: p, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(pol)
	}
	return pol
}

// Allow implements hostwazero.AccessPolicy.
func (pol *Policy) Allow(guest, operation string) error {
	pol.mu.Lock()
	defer pol.mu.Unlock()

	if err := pol.grants.Allow(guest, operation); err == nil {
		return nil
	}

	granted, always, err := pol.prompter.PromptForCall(guest, operation)
	if err != nil || !granted {
		return &domainerrors.AccessDeniedError{Caller: guest, Operation: operation}
	}
	if always {
		// A failed save leaves the grant in memory only.
		pol.grants[guest] = append(pol.grants[guest], operation)
		if pol.store != nil {
			if err := pol.store.Save(pol.grants); err != nil {
				pol.logger.Warn("grant not saved, it lasts until exit",
					"guest", guest, "operation", operation, "error", err)
			}
		}
	}
	return nil
}

// FormatNonInteractiveError explains how to grant a call without a terminal.
func FormatNonInteractiveError(guest, operation, grantsPath string) error {
	return fmt.Errorf("guest %q needs permission to call %q in non-interactive mode; add it to %s", guest, operation, grantsPath)
}
