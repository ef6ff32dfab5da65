package ports

// Prompter handles interactive call authorization.
type Prompter interface {
	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool

	// PromptForCall asks the operator whether guest may invoke operation.
	// Returns: granted (allow this time), always (persist to store), error.
	PromptForCall(guest, operation string) (granted bool, always bool, err error)
}
