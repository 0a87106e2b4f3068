package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Parser is a recursive descent, precedence climbing parser for LOOP.
type Parser struct {
	cur     cursor
	table   *Table
	dialect Dialect
}

// New creates a parser over an already tokenized program.
func New(tokens []Token, d Dialect) *Parser {
	return &Parser{
		cur:     cursor{tokens: tokens},
		table:   NewTable(d),
		dialect: d,
	}
}

// Parse tokenizes and parses a complete program.
func Parse(r io.Reader, d Dialect) (*ast.Block, error) {
	tokens, err := NewLexer(r).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(tokens, d).ParseProgram()
}

// ParseString parses a complete program held in a string.
func ParseString(src string, d Dialect) (*ast.Block, error) {
	return Parse(strings.NewReader(src), d)
}

// ParseProgram reads every statement and fails if any token is left over.
func (p *Parser) ParseProgram() (*ast.Block, error) {
	body, err := p.readStatements()
	if err != nil {
		return nil, err
	}
	if !p.cur.done() {
		tok := p.cur.peek()
		return nil, types.NewParseError(tok.Line, "unexpected trailing tokens: %s", tok)
	}
	return body, nil
}

// readStatements reads statements until one of them yields nothing, which
// happens at a terminator such as END or at the end of input.
func (p *Parser) readStatements() (*ast.Block, error) {
	block := &ast.Block{}
	for {
		stmt, err := p.tryReadStatement()
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			return block, nil
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

// tryReadStatement returns the next statement, or nil if the current token
// cannot start one. Empty statements are skipped.
func (p *Parser) tryReadStatement() (ast.Stmt, error) {
	for {
		tok := p.cur.peek()
		switch tok.Type {
		case TokenEOF:
			return nil, nil
		case TokenEOL:
			p.cur.pop()
			continue
		case TokenSymbol:
			if rule, ok := p.table.Prefix(tok.Value); ok {
				if rule == nil {
					return nil, nil
				}
				p.cur.pop()
				node, err := rule(p, tok)
				if err != nil {
					return nil, err
				}
				stmt, ok := node.(ast.Stmt)
				if !ok {
					return nil, types.NewParseError(tok.Line, "expression %s cannot be used as a statement", node)
				}
				return stmt, nil
			}
			if tok.IsIdent() {
				return p.readAssignOrDiscard()
			}
		}
		return nil, types.NewParseError(tok.Line, "unexpected token at start of statement: %s", tok)
	}
}

// readAssignOrDiscard parses `x = expr;` and, with sugar, `f(args);`.
func (p *Parser) readAssignOrDiscard() (ast.Stmt, error) {
	target := p.cur.pop()
	next := p.cur.peek()

	switch {
	case next.IsSymbol("="):
		p.cur.pop()
		expr, err := p.readExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.mustReadEndOfLine(); err != nil {
			return nil, err
		}
		return &ast.Assign{Target: target.Value, Expr: expr, Line: target.Line}, nil

	case p.dialect.Sugar && next.IsSymbol("("):
		// Re-read the callee so the whole call parses as one expression.
		p.cur.pushBack()
		expr, err := p.readExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.mustReadEndOfLine(); err != nil {
			return nil, err
		}
		return &ast.Discard{Expr: expr, Line: target.Line}, nil

	case next.Type == TokenEOF:
		return nil, types.NewIncompleteError(next.Line, "expected '=' after %s, got end of input", target)
	default:
		return nil, types.NewParseError(next.Line, "expected '=' after %s, got %s", target, next)
	}
}

// readPrimary parses a constant, a register reference or a construct
// introduced by a prefix rule.
func (p *Parser) readPrimary() (ast.Expr, error) {
	tok := p.cur.pop()
	switch tok.Type {
	case TokenNumber:
		return &ast.Constant{Value: tok.Num}, nil
	case TokenSymbol:
		if rule, ok := p.table.Prefix(tok.Value); ok {
			if rule == nil {
				break
			}
			node, err := rule(p, tok)
			if err != nil {
				return nil, err
			}
			expr, ok := node.(ast.Expr)
			if !ok {
				return nil, types.NewParseError(tok.Line, "statement %s cannot be used as an expression", node)
			}
			return expr, nil
		}
		if tok.IsIdent() {
			return &ast.Register{Name: tok.Value}, nil
		}
	case TokenEOF:
		return nil, types.NewIncompleteError(tok.Line, "unexpected end of input at start of expression")
	}
	return nil, types.NewParseError(tok.Line, "unexpected token at start of expression: %s", tok)
}

// readExpression parses an expression whose operators all have precedence
// of at least minPrec.
func (p *Parser) readExpression(minPrec int) (ast.Expr, error) {
	lhs, err := p.readPrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.cur.peek()
		if tok.Type != TokenSymbol {
			return lhs, nil
		}
		rule, ok := p.table.Postfix(tok.Value)
		if !ok || rule.Prec < minPrec {
			return lhs, nil
		}
		p.cur.pop()
		lhs, err = rule.Parse(p, tok, rule.Prec+1, lhs, rule.Build)
		if err != nil {
			return nil, err
		}
	}
}

// tryReadSymbol consumes the current token if it is the symbol s.
func (p *Parser) tryReadSymbol(s string) bool {
	if p.cur.peek().IsSymbol(s) {
		p.cur.pop()
		return true
	}
	return false
}

// mustReadSymbol consumes the symbol s or fails.
func (p *Parser) mustReadSymbol(s string) error {
	tok := p.cur.pop()
	if tok.IsSymbol(s) {
		return nil
	}
	if tok.Type == TokenEOF {
		return types.NewIncompleteError(tok.Line, "expected '%s' but got end of input", s)
	}
	return types.NewParseError(tok.Line, "expected '%s' but got %s", s, tok)
}

// mustReadEndOfLine consumes an EOL token or fails.
func (p *Parser) mustReadEndOfLine() error {
	tok := p.cur.pop()
	switch tok.Type {
	case TokenEOL:
		return nil
	case TokenEOF:
		return types.NewIncompleteError(tok.Line, "expected end of line but got end of input")
	default:
		return types.NewParseError(tok.Line, "expected end of line but got %s", tok)
	}
}

// mustReadIdent consumes an identifier, describing it as what in errors.
func (p *Parser) mustReadIdent(what string) (Token, error) {
	tok := p.cur.pop()
	if tok.IsIdent() {
		return tok, nil
	}
	if tok.Type == TokenEOF {
		return tok, types.NewIncompleteError(tok.Line, "expected %s but got end of input", what)
	}
	return tok, types.NewParseError(tok.Line, "expected %s but got %s", what, tok)
}

// readBlockBody reads the statements of a LOOP or DEF block followed by
// `END ;`.
func (p *Parser) readBlockBody(opener Token) (*ast.Block, error) {
	body, err := p.readStatements()
	if err != nil {
		return nil, err
	}
	end := p.cur.pop()
	if !end.IsSymbol("END") {
		if end.Type == TokenEOF {
			return nil, types.NewIncompleteError(end.Line, "%s at line %d is missing END", opener.Value, opener.Line)
		}
		return nil, types.NewParseError(end.Line, "expected 'END' but got %s", end)
	}
	if err := p.mustReadEndOfLine(); err != nil {
		return nil, err
	}
	return body, nil
}

// parseLoop parses `LOOP expr ; statements END ;`.
func parseLoop(p *Parser, tok Token) (ast.Node, error) {
	count, err := p.readExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.mustReadEndOfLine(); err != nil {
		return nil, err
	}
	body, err := p.readBlockBody(tok)
	if err != nil {
		return nil, err
	}
	return &ast.Loop{Count: count, Body: body, Line: tok.Line}, nil
}

// parseDef parses `DEF name ( params ) [=>> result] ; statements END ;`
// into an assignment of a function value to name.
func parseDef(p *Parser, tok Token) (ast.Node, error) {
	name, err := p.mustReadIdent("function name after DEF")
	if err != nil {
		return nil, err
	}
	if err := p.mustReadSymbol("("); err != nil {
		return nil, err
	}

	var params []string
	seen := make(map[string]bool)
	if !p.tryReadSymbol(")") {
		for {
			param, err := p.mustReadIdent("parameter name")
			if err != nil {
				return nil, err
			}
			if seen[param.Value] {
				return nil, types.NewParseError(param.Line, "duplicate parameter %s in DEF %s", param.Value, name.Value)
			}
			seen[param.Value] = true
			params = append(params, param.Value)
			if p.tryReadSymbol(",") {
				continue
			}
			if err := p.mustReadSymbol(")"); err != nil {
				return nil, err
			}
			break
		}
	}

	var result string
	if p.tryReadSymbol("=>>") {
		res, err := p.mustReadIdent("result register after '=>>'")
		if err != nil {
			return nil, err
		}
		result = res.Value
	}
	if err := p.mustReadEndOfLine(); err != nil {
		return nil, err
	}

	body, err := p.readBlockBody(tok)
	if err != nil {
		return nil, err
	}

	fn := &ast.Lambda{Name: name.Value, Params: params, Result: result, Body: body}
	return &ast.Assign{Target: name.Value, Expr: fn, Definition: true, Line: tok.Line}, nil
}

// parseAbort parses `ERROR [string] ;`.
func parseAbort(p *Parser, tok Token) (ast.Node, error) {
	abort := &ast.Abort{Line: tok.Line}
	if next := p.cur.peek(); next.Type == TokenString {
		p.cur.pop()
		abort.Message = next.Str
		abort.HasMessage = true
	}
	if err := p.mustReadEndOfLine(); err != nil {
		return nil, err
	}
	return abort, nil
}

// parseGroup parses a parenthesized expression.
func parseGroup(p *Parser, tok Token) (ast.Node, error) {
	expr, err := p.readExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.mustReadSymbol(")"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseInfix parses the right operand of a binary operator.
func parseInfix(p *Parser, tok Token, prec int, lhs ast.Expr, build Constructor) (ast.Expr, error) {
	rhs, err := p.readExpression(prec)
	if err != nil {
		return nil, err
	}
	return build(lhs, rhs), nil
}

// parseCall parses the argument list of a function application.
func parseCall(p *Parser, tok Token, prec int, lhs ast.Expr, build Constructor) (ast.Expr, error) {
	if _, ok := lhs.(*ast.Register); !ok {
		return nil, types.NewParseError(tok.Line, "cannot call %s", lhs)
	}

	var args []ast.Expr
	if !p.tryReadSymbol(")") {
		for {
			arg, err := p.readExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tryReadSymbol(",") {
				continue
			}
			if err := p.mustReadSymbol(")"); err != nil {
				return nil, fmt.Errorf("in arguments to %s: %w", lhs, err)
			}
			break
		}
	}
	return build(lhs, args...), nil
}
