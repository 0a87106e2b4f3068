// Package check implements the two static passes run between parsing and
// execution: scope resolution for the sugar dialect and strict grammar
// checking for the core calculus.
package check

// Scope tracks which names are defined functions during resolution.
type Scope interface {
	// Define records name as a function. Local scopes ignore it.
	Define(name string)
	// IsDefined reports whether name is a function visible from this scope.
	IsDefined(name string) bool
}

// GlobalScope holds the functions defined at the top level of a program.
type GlobalScope struct {
	defined map[string]bool
}

// NewGlobalScope creates an empty global scope.
func NewGlobalScope() *GlobalScope {
	return &GlobalScope{defined: make(map[string]bool)}
}

// Clone returns an independent copy of the scope.
func (s *GlobalScope) Clone() *GlobalScope {
	c := NewGlobalScope()
	for name := range s.defined {
		c.defined[name] = true
	}
	return c
}

func (s *GlobalScope) Define(name string) { s.defined[name] = true }

func (s *GlobalScope) IsDefined(name string) bool { return s.defined[name] }

// LocalScope is the scope of a function body. Lookups go to the parent;
// functions defined inside a body are never exported.
type LocalScope struct {
	parent Scope
}

// NewLocalScope creates a scope chained to parent.
func NewLocalScope(parent Scope) *LocalScope {
	return &LocalScope{parent: parent}
}

func (s *LocalScope) Define(string) {}

func (s *LocalScope) IsDefined(name string) bool { return s.parent.IsDefined(name) }
