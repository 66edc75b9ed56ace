package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// CommandCenter handles command registration, parsing, and execution
type CommandCenter struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewCommandCenter() *CommandCenter {
	return &CommandCenter{
		cmds: make(map[string]Command),
	}
}

// Register registers a command
func (cc *CommandCenter) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, exists := cc.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	cc.cmds[name] = cmd
	return nil
}

// Unregister removes a registered command
func (cc *CommandCenter) Unregister(name string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, exists := cc.cmds[name]; !exists {
		return fmt.Errorf("command not found: %s", name)
	}

	delete(cc.cmds, name)
	return nil
}

// Get returns a command by name
func (cc *CommandCenter) Get(name string) (Command, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	cmd, exists := cc.cmds[name]
	if !exists {
		return nil, fmt.Errorf("command not found: %s", name)
	}

	return cmd, nil
}

// List returns all registered commands sorted by name
func (cc *CommandCenter) List() []Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	commands := make([]Command, 0, len(cc.cmds))
	for _, cmd := range cc.cmds {
		commands = append(commands, cmd)
	}

	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})
	return commands
}

// Execute parses the arguments of the named command and runs it.
func (cc *CommandCenter) Execute(ctx context.Context, api API, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no command specified")
	}

	cmd, err := cc.Get(args[0])
	if err != nil {
		return 1, err
	}

	parsedArgs, err := NewParser(cmd.GetFlags()).Parse(args[1:])
	if err != nil {
		return 1, fmt.Errorf("parse error: %w", err)
	}

	return cmd.Execute(ctx, api, parsedArgs, writer)
}
