// Package validation holds the static checks run before a program executes:
// a lint pass over the parsed tree and a JSON Schema validator.
package validation

// CommandLookup reports whether a command name is registered.
// *commands.Registry satisfies it.
type CommandLookup interface {
	Has(name string) bool
}
