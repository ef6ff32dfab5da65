package ports

import "github.com/reglet-dev/hostcall/domain/entities"

// ScriptParser parses raw bytes into a call Script.
type ScriptParser interface {
	// Parse decodes and validates a script.
	Parse(data []byte) (*entities.Script, error)
}
