// Package types defines the values, register file and error types shared by
// the LOOP parser, checkers and evaluator.
package types

import (
	"fmt"
	"sort"

	"github.com/lemonberrylabs/looplang/pkg/ast"
)

// Value is the content of a register: a natural number, or a function.
type Value struct {
	num uint64
	fn  *ast.Lambda
}

// Zero is the value of every register that was never written.
var Zero = Value{}

// NewNat creates a number value.
func NewNat(n uint64) Value { return Value{num: n} }

// NewFunc creates a function value.
func NewFunc(fn *ast.Lambda) Value { return Value{fn: fn} }

// IsFunc returns true if the value holds a function.
func (v Value) IsFunc() bool { return v.fn != nil }

// AsNat returns the numeric value. Function values have no number and
// report ok=false.
func (v Value) AsNat() (n uint64, ok bool) {
	if v.fn != nil {
		return 0, false
	}
	return v.num, true
}

// AsFunc returns the held function, or nil.
func (v Value) AsFunc() *ast.Lambda { return v.fn }

// String renders a number in decimal and a function by its signature.
func (v Value) String() string {
	if v.fn != nil {
		return v.fn.String()
	}
	return fmt.Sprintf("%d", v.num)
}

// Equal compares two values; functions compare by identity.
func (v Value) Equal(other Value) bool {
	return v.num == other.num && v.fn == other.fn
}

// Registers is the register file: the only mutable state of a running
// program. It is shared by reference between the caller, the preamble and
// the main program, and between a caller and every function it invokes.
type Registers map[string]Value

// NewRegisters creates an empty register file.
func NewRegisters() Registers {
	return make(Registers)
}

// Get returns the register's value, or Zero if it was never written.
// It never mutates the file.
func (r Registers) Get(name string) Value {
	return r[name]
}

// Nat returns the register's numeric value; ok is false if the register
// holds a function.
func (r Registers) Nat(name string) (uint64, bool) {
	return r[name].AsNat()
}

// Set inserts or overwrites a register.
func (r Registers) Set(name string, v Value) {
	r[name] = v
}

// SetNat is Set for numbers.
func (r Registers) SetNat(name string, n uint64) {
	r[name] = NewNat(n)
}

// Materialize returns the register's value, first writing Zero to it if it
// was never written.
func (r Registers) Materialize(name string) Value {
	v, ok := r[name]
	if !ok {
		r[name] = Zero
	}
	return v
}

// Exists reports whether the register has been written.
func (r Registers) Exists(name string) bool {
	_, ok := r[name]
	return ok
}

// Names returns every written register name in sorted order.
func (r Registers) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Numbers returns a copy of the numeric registers, skipping functions.
func (r Registers) Numbers() map[string]uint64 {
	out := make(map[string]uint64, len(r))
	for name, v := range r {
		if n, ok := v.AsNat(); ok {
			out[name] = n
		}
	}
	return out
}

// Export returns a copy of the register file suitable for encoding:
// numbers stay uint64 and functions become their rendered signature.
func (r Registers) Export() map[string]any {
	out := make(map[string]any, len(r))
	for name, v := range r {
		if n, ok := v.AsNat(); ok {
			out[name] = n
		} else {
			out[name] = v.String()
		}
	}
	return out
}

// RegistersFromNumbers builds a register file seeded with the given values.
func RegistersFromNumbers(seed map[string]uint64) Registers {
	r := make(Registers, len(seed))
	for name, n := range seed {
		r[name] = NewNat(n)
	}
	return r
}
