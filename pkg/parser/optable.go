package parser

import (
	"github.com/lemonberrylabs/looplang/pkg/ast"
)

// Dialect selects the opt-in language extensions. The two flags are
// independent.
type Dialect struct {
	// Sugar enables '*', '-', parentheses, DEF and function calls, and
	// switches static checking from the strict checker to the resolver.
	Sugar bool
	// Enhanced enables the ERROR statement.
	Enhanced bool
}

// Operator precedences. Application binds tightest.
const (
	PrecAdd  = 1
	PrecMul  = 2
	PrecCall = 255
)

// PrefixRule parses a construct introduced by the symbol tok, which has
// already been consumed. It returns an ast.Expr or an ast.Stmt.
type PrefixRule func(p *Parser, tok Token) (ast.Node, error)

// Constructor folds a left operand and its right operands into a node.
type Constructor func(lhs ast.Expr, rhs ...ast.Expr) ast.Expr

// PostfixRule describes a symbol that continues an expression.
type PostfixRule struct {
	Prec  int
	Parse func(p *Parser, tok Token, prec int, lhs ast.Expr, build Constructor) (ast.Expr, error)
	Build Constructor
}

// Table is the operator table used by one parser. A symbol present in the
// prefix map with a nil rule can never start an expression or statement:
// it terminates statement lists.
type Table struct {
	prefix  map[string]PrefixRule
	postfix map[string]PostfixRule
}

// NewTable assembles the base rules overlaid with the rules of every
// extension active in d. The returned table is never modified.
func NewTable(d Dialect) *Table {
	t := &Table{
		prefix: map[string]PrefixRule{
			"=":    nil,
			"END":  nil,
			"LOOP": parseLoop,
		},
		postfix: map[string]PostfixRule{
			"+": {Prec: PrecAdd, Parse: parseInfix, Build: buildAdd},
		},
	}

	if d.Enhanced {
		t.prefix["ERROR"] = parseAbort
	}
	if d.Sugar {
		t.prefix["DEF"] = parseDef
		t.prefix["("] = parseGroup
		t.prefix[")"] = nil
		t.prefix[","] = nil
		t.postfix["*"] = PostfixRule{Prec: PrecMul, Parse: parseInfix, Build: buildMul}
		t.postfix["-"] = PostfixRule{Prec: PrecAdd, Parse: parseInfix, Build: buildSub}
		t.postfix["("] = PostfixRule{Prec: PrecCall, Parse: parseCall, Build: buildCall}
	}
	return t
}

// Prefix looks up the prefix rule for sym. ok is false when sym has no
// entry; a nil rule with ok=true marks a terminator.
func (t *Table) Prefix(sym string) (rule PrefixRule, ok bool) {
	rule, ok = t.prefix[sym]
	return rule, ok
}

// Postfix looks up the postfix rule for sym.
func (t *Table) Postfix(sym string) (PostfixRule, bool) {
	rule, ok := t.postfix[sym]
	return rule, ok
}

func buildAdd(lhs ast.Expr, rhs ...ast.Expr) ast.Expr { return &ast.Add{Left: lhs, Right: rhs[0]} }
func buildSub(lhs ast.Expr, rhs ...ast.Expr) ast.Expr { return &ast.Sub{Left: lhs, Right: rhs[0]} }
func buildMul(lhs ast.Expr, rhs ...ast.Expr) ast.Expr { return &ast.Mul{Left: lhs, Right: rhs[0]} }

func buildCall(lhs ast.Expr, args ...ast.Expr) ast.Expr {
	return &ast.Call{Name: lhs.(*ast.Register).Name, Args: args}
}
