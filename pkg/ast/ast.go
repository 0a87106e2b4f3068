// Package ast defines the syntax tree produced by the LOOP parser.
//
// The tree is made of two closed families: Expr nodes produce a natural
// number (or a function value) and Stmt nodes mutate the register file.
// Both families are sealed with unexported marker methods, so every type
// switch over them lives in this module.
package ast

import (
	"fmt"
	"strings"
)

// Node is implemented by every expression and statement.
type Node interface {
	String() string
}

// Expr is the interface for all expression nodes.
type Expr interface {
	exprNode()
	String() string
}

// Stmt is the interface for all statement nodes.
type Stmt interface {
	stmtNode()
	String() string
}

// Constant is a natural-number literal.
type Constant struct {
	Value uint64
}

func (*Constant) exprNode() {}

func (n *Constant) String() string { return fmt.Sprintf("%d", n.Value) }

// Register is a reference to a named register.
type Register struct {
	Name string
}

func (*Register) exprNode() {}

func (n *Register) String() string { return n.Name }

// Add is lhs + rhs.
type Add struct {
	Left  Expr
	Right Expr
}

func (*Add) exprNode() {}

func (n *Add) String() string { return fmt.Sprintf("%s + %s", n.Left, grouped(n.Right, false)) }

// Sub is truncated subtraction: max(lhs - rhs, 0).
type Sub struct {
	Left  Expr
	Right Expr
}

func (*Sub) exprNode() {}

func (n *Sub) String() string { return fmt.Sprintf("%s - %s", n.Left, grouped(n.Right, false)) }

// Mul is lhs * rhs.
type Mul struct {
	Left  Expr
	Right Expr
}

func (*Mul) exprNode() {}

func (n *Mul) String() string {
	return fmt.Sprintf("%s * %s", grouped(n.Left, false), grouped(n.Right, true))
}

// Lambda is a function value. Result is empty when the function declares
// no result register.
type Lambda struct {
	Name   string // the name it was defined under, for diagnostics only
	Params []string
	Result string
	Body   *Block
}

func (*Lambda) exprNode() {}

// Signature renders the function header, e.g. "f(a, b) =>> r".
func (n *Lambda) Signature() string {
	sig := fmt.Sprintf("%s(%s)", n.Name, strings.Join(n.Params, ", "))
	if n.Result != "" {
		sig += " =>> " + n.Result
	}
	return sig
}

func (n *Lambda) String() string { return "<function " + n.Signature() + ">" }

// Call applies the function held in register Name to Args.
type Call struct {
	Name string
	Args []Expr
}

func (*Call) exprNode() {}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

// Assign stores the value of Expr into register Target. Definition is set
// when the assignment was produced by a DEF block.
type Assign struct {
	Target     string
	Expr       Expr
	Definition bool
	Line       int
}

func (*Assign) stmtNode() {}

func (n *Assign) String() string {
	if n.Definition {
		if fn, ok := n.Expr.(*Lambda); ok {
			return "DEF " + fn.Signature()
		}
	}
	return fmt.Sprintf("%s = %s", n.Target, n.Expr)
}

// Discard evaluates Expr for its side effects and drops the result.
type Discard struct {
	Expr Expr
	Line int
}

func (*Discard) stmtNode() {}

func (n *Discard) String() string { return n.Expr.String() }

// Abort stops the running program. HasMessage distinguishes `ERROR "";`
// from a bare `ERROR;`.
type Abort struct {
	Message    string
	HasMessage bool
	Line       int
}

func (*Abort) stmtNode() {}

func (n *Abort) String() string {
	if n.HasMessage {
		return fmt.Sprintf("ERROR %q", n.Message)
	}
	return "ERROR"
}

// Loop runs Body Count times; Count is evaluated once, on entry.
type Loop struct {
	Count Expr
	Body  *Block
	Line  int
}

func (*Loop) stmtNode() {}

func (n *Loop) String() string { return fmt.Sprintf("LOOP %s", n.Count) }

// Block is an ordered list of statements sharing the one register file.
type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode() {}

func (n *Block) String() string { return fmt.Sprintf("block(%d statements)", len(n.Stmts)) }

// grouped parenthesizes a binary operand that would otherwise re-associate
// when the rendered text is parsed again.
func grouped(e Expr, mulToo bool) string {
	switch e.(type) {
	case *Add, *Sub:
		return "(" + e.String() + ")"
	case *Mul:
		if mulToo {
			return "(" + e.String() + ")"
		}
	}
	return e.String()
}
