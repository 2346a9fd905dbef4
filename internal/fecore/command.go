package fecore

import (
	"github.com/pkg/errors"

	"github.com/skyline93/fenda/internal/container"
	"github.com/skyline93/fenda/internal/memory"
)

// Command is one named action dispatchable by the CommandManager.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

// CommandManager is a registry of commands with deterministic listing
// order (registration order).
type CommandManager struct {
	alloc    memory.Allocator
	commands *container.VectorMap[string, *Command]
}

// NewCommandManager returns an empty registry drawing from alloc.
func NewCommandManager(alloc memory.Allocator) *CommandManager {
	return &CommandManager{
		alloc:    alloc,
		commands: container.NewVectorMap[string, *Command](alloc),
	}
}

// Register adds a command under its name.
func (m *CommandManager) Register(name, description string, run func(args []string) error) error {
	if name == "" {
		return errors.New("fecore: empty command name")
	}
	if run == nil {
		return errors.Errorf("fecore: command %q has no run function", name)
	}
	c := memory.New[Command](m.alloc, "fecore.Command")
	*c = Command{Name: name, Description: description, Run: run}
	if !m.commands.Add(name, c) {
		memory.Delete(m.alloc, c)
		return errors.Errorf("fecore: command %q already registered", name)
	}
	return nil
}

// Lookup returns the command registered under name, nil when absent.
func (m *CommandManager) Lookup(name string) *Command {
	c, ok := m.commands.Get(name)
	if !ok {
		return nil
	}
	return c
}

// Dispatch runs the command registered under name.
func (m *CommandManager) Dispatch(name string, args []string) error {
	c := m.Lookup(name)
	if c == nil {
		return errors.Errorf("fecore: unknown command %q", name)
	}
	return errors.Wrapf(c.Run(args), "command %q", name)
}

// Len returns the number of registered commands.
func (m *CommandManager) Len() int { return m.commands.Len() }

// Commands returns the commands in registration order. The slice aliases
// the manager's storage.
func (m *CommandManager) Commands() []*Command { return m.commands.Slice() }

// Free releases the registry and every command it owns.
func (m *CommandManager) Free() {
	for _, c := range m.commands.Slice() {
		memory.Delete(m.alloc, c)
	}
	m.commands.Free()
}
