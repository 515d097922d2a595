package commands

import (
	"sort"
	"sync"

	"github.com/rendis/stepflow/pkg/schema"
)

// Registry is the thread-safe name -> Command table.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// NewDefaultRegistry returns a registry holding the simulated reference
// commands and the expression-backed extended commands.
func NewDefaultRegistry() (*Registry, error) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	ext, err := ExtendedCommands()
	if err != nil {
		return nil, err
	}
	for _, c := range ext {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds a command. Nil commands, empty names and duplicates are rejected.
func (r *Registry) Register(cmd Command) error {
	if cmd == nil {
		return schema.NewError(schema.ErrCodeValidation, "command is nil")
	}
	name := cmd.Name()
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "command name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "command %q already registered", name)
	}

	r.commands[name] = cmd
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.commands[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeCommandUnavailable, "command %q not registered", name)
	}
	return cmd, nil
}

// Has checks if a command is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

// List returns info for all registered commands, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.commands))
	for _, c := range r.commands {
		info := c.Info()
		info.Name = c.Name()
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	infos := r.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Label returns the human label for a command step. Unregistered names get
// the generic "Execute <name>" label.
func (r *Registry) Label(name string) string {
	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return Info{Name: name}.StepLabel()
	}
	info := cmd.Info()
	info.Name = name
	return info.StepLabel()
}
