package check

import (
	"testing"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

func parse(t *testing.T, src string, d parser.Dialect) *ast.Block {
	t.Helper()
	prog, err := parser.ParseString(src, d)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestStrictAccepts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"zero", "x = 0"},
		{"copy", "x = y"},
		{"increment", "x = x + 1"},
		{"loop", "LOOP n\nx = x + 1\nEND"},
		{"nested loops", "LOOP n\nLOOP m\ny = y + 1\nEND\nEND"},
		{"register loop body is not inspected", "LOOP n\nx = 5\nEND"},
		{"empty program", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, tt.input, parser.Dialect{})
			if err := Strict(prog); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStrictRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"non-zero constant", "x = 5", 1},
		{"increment of another register", "x = y + 1", 1},
		{"increment by two", "x = x + 2", 1},
		{"sum of registers", "x = x + y", 1},
		{"constant on the left", "x = 1 + x", 1},
		{"chained addition", "x = x + 1 + 1", 1},
		{"second line", "x = 0\ny = 3", 2},
		{"non-register loop count checks its body", "LOOP n + 1\nx = 7\nEND", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, tt.input, parser.Dialect{})
			err := Strict(prog)
			if !types.IsKind(err, types.KindStrictCheck) {
				t.Fatalf("expected StrictCheckError, got %v", err)
			}
			if le := err.(*types.LoopError); le.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, le.Line)
			}
		})
	}
}

func TestStrictAllowsError(t *testing.T) {
	prog := parse(t, `ERROR "stop"`, parser.Dialect{Enhanced: true})
	if err := Strict(prog); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStrictRejectsDiscard(t *testing.T) {
	prog := &ast.Block{Stmts: []ast.Stmt{
		&ast.Discard{Expr: &ast.Call{Name: "f"}, Line: 4},
	}}
	if err := Strict(prog); !types.IsKind(err, types.KindStrictCheck) {
		t.Errorf("expected StrictCheckError, got %v", err)
	}
}

func TestResolveAccepts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"define then call", "DEF f(a) =>> r\nr = a\nEND\nx = f(1)"},
		{"self recursion", "DEF f(n) =>> r\nLOOP n\nr = f(n - 1)\nEND\nEND"},
		{"call earlier function", "DEF g()\nEND\nDEF f()\ng()\nEND\nf()"},
		{"call in loop count", "DEF f() =>> r\nr = 3\nEND\nLOOP f()\nx = x + 1\nEND"},
		{"plain registers", "x = y * 2 - z"},
		{"nested definition is local", "DEF f()\nDEF g()\nEND\nEND\nDEF g()\nEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, tt.input, parser.Dialect{Sugar: true})
			if err := Resolve(prog); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"undefined call", "x = f(1)", 1},
		{"forward call", "DEF f()\ng()\nEND\nDEF g()\nEND", 2},
		{"redefinition", "DEF f()\nEND\nDEF f()\nEND", 3},
		{"function as value", "DEF f()\nEND\nx = f", 3},
		{"function in arithmetic", "DEF f()\nEND\nx = f + 1", 3},
		{"function as loop count", "DEF f()\nEND\nLOOP f\nEND", 3},
		{"undefined call in argument", "DEF f(a)\nEND\nf(g())", 3},
		{"function name inside body", "DEF f()\nx = f\nEND", 2},
		{"nested definition not visible outside", "DEF f()\nDEF g()\nEND\nEND\ng()", 5},
		{"undefined call inside loop", "LOOP n\nh()\nEND", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, tt.input, parser.Dialect{Sugar: true})
			err := Resolve(prog)
			if !types.IsKind(err, types.KindResolve) {
				t.Fatalf("expected ResolveError, got %v", err)
			}
			if le := err.(*types.LoopError); le.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, le.Line)
			}
		})
	}
}

func TestLocalScopeIgnoresDefine(t *testing.T) {
	global := NewGlobalScope()
	global.Define("f")
	local := NewLocalScope(global)
	local.Define("g")

	if !local.IsDefined("f") {
		t.Error("expected f to be visible from the local scope")
	}
	if local.IsDefined("g") || global.IsDefined("g") {
		t.Error("expected g to be dropped")
	}
}

func TestResolveInCarriesDefinitions(t *testing.T) {
	scope := NewGlobalScope()
	first := parse(t, "DEF f() =>> r\nr = 1\nEND", parser.Dialect{Sugar: true})
	if err := ResolveIn(first, scope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trial := scope.Clone()
	bad := parse(t, "DEF g()\nEND\nx = h()", parser.Dialect{Sugar: true})
	if err := ResolveIn(bad, trial); !types.IsKind(err, types.KindResolve) {
		t.Fatalf("expected ResolveError, got %v", err)
	}
	if scope.IsDefined("g") {
		t.Error("a failed trial must not leak into the original scope")
	}

	second := parse(t, "x = f()", parser.Dialect{Sugar: true})
	if err := ResolveIn(second, scope); err != nil {
		t.Errorf("expected f to stay visible, got %v", err)
	}
}
