package cmd

import "time"

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags map[string]any

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "json"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "j")
	Type        string `json:"type"`              // "string", "bool", "int", "duration"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}

// String returns the string flag called name or "" when unset.
func (a *CommandArgs) String(name string) string {
	if v, ok := a.Flags[name].(string); ok {
		return v
	}
	return ""
}

func (a *CommandArgs) Bool(name string) bool {
	if v, ok := a.Flags[name].(bool); ok {
		return v
	}
	return false
}

func (a *CommandArgs) Int(name string) int64 {
	switch v := a.Flags[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (a *CommandArgs) Duration(name string) time.Duration {
	if v, ok := a.Flags[name].(time.Duration); ok {
		return v
	}
	return 0
}
