package parser

// cursor is a position in a fully materialized token buffer. Reading past
// the end yields a TokenEOF carrying the last line number.
type cursor struct {
	tokens []Token
	pos    int
}

// peek returns the current token without consuming it.
func (c *cursor) peek() Token {
	if c.pos >= len(c.tokens) {
		return c.eof()
	}
	return c.tokens[c.pos]
}

// pop consumes the current token and returns it.
func (c *cursor) pop() Token {
	tok := c.peek()
	if c.pos < len(c.tokens) {
		c.pos++
	}
	return tok
}

// pushBack un-consumes the most recently popped token.
func (c *cursor) pushBack() {
	if c.pos > 0 {
		c.pos--
	}
}

// done reports whether every token has been consumed.
func (c *cursor) done() bool {
	return c.pos >= len(c.tokens)
}

func (c *cursor) eof() Token {
	line := 0
	if n := len(c.tokens); n > 0 {
		line = c.tokens[n-1].Line
	}
	return Token{Type: TokenEOF, Line: line}
}
