// Package parser implements the LOOP tokenizer and the operator-precedence
// parser that turns a token stream into an ast.Block.
package parser

import (
	"fmt"
	"strconv"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber TokenType = iota // natural-number literal
	TokenSymbol                  // identifier, keyword, operator run or punctuation
	TokenString                  // double-quoted string literal
	TokenEOL                     // ';' or the end of a non-blank line

	// TokenEOF is never produced by the lexer; the cursor returns it once
	// the token buffer is exhausted.
	TokenEOF
)

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenSymbol:
		return "SYMBOL"
	case TokenString:
		return "STRING"
	case TokenEOL:
		return "EOL"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string // raw text (symbol spelling, digits, quoted string)
	Num   uint64 // parsed value (TokenNumber)
	Str   string // decoded value with escapes resolved (TokenString)
	Line  int    // 1-based source line
}

// IsSymbol reports whether the token is the symbol spelled s.
func (t Token) IsSymbol(s string) bool {
	return t.Type == TokenSymbol && t.Value == s
}

// IsIdent reports whether the token is an identifier-shaped symbol.
func (t Token) IsIdent() bool {
	return t.Type == TokenSymbol && t.Value != "" && isIdentStart(t.Value[0])
}

// String renders the token for error messages.
func (t Token) String() string {
	switch t.Type {
	case TokenNumber:
		return t.Value
	case TokenSymbol:
		return fmt.Sprintf("'%s'", t.Value)
	case TokenString:
		return strconv.Quote(t.Str)
	case TokenEOL:
		return "end of line"
	case TokenEOF:
		return "end of input"
	default:
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	}
}
