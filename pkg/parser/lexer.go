package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/looplang/pkg/types"
)

// MaxLineLength is the longest source line the lexer accepts.
const MaxLineLength = 1024 * 1024

// Lexer tokenizes LOOP source, one line at a time.
type Lexer struct {
	r      io.Reader
	line   int
	tokens []Token
}

// NewLexer creates a new lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: r}
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	scanner := bufio.NewScanner(l.r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	for scanner.Scan() {
		l.line++
		if err := l.scanLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, types.NewParseError(l.line+1, "line too long (max %d bytes)", MaxLineLength)
		}
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return l.tokens, nil
}

// Tokenize is a convenience wrapper that tokenizes a source string.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(strings.NewReader(src)).Tokenize()
}

// scanLine appends the tokens of one source line. A line that yields any
// token is terminated with an EOL token.
func (l *Lexer) scanLine(text string) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "#") {
		return nil
	}

	start := len(l.tokens)
	pos := 0
	for pos < len(text) {
		ch := text[pos]
		switch {
		case isSpace(ch):
			pos++
		case ch == '#':
			pos = len(text)
		case isDigit(ch):
			end := pos
			for end < len(text) && isDigit(text[end]) {
				end++
			}
			raw := text[pos:end]
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return types.NewParseError(l.line, "integer literal %s out of range", raw)
			}
			l.emit(Token{Type: TokenNumber, Value: raw, Num: n})
			pos = end
		case isIdentStart(ch):
			end := pos
			for end < len(text) && isIdentPart(text[end]) {
				end++
			}
			l.emit(Token{Type: TokenSymbol, Value: text[pos:end]})
			pos = end
		case isOperatorChar(ch):
			end := pos
			for end < len(text) && isOperatorChar(text[end]) {
				end++
			}
			l.emit(Token{Type: TokenSymbol, Value: text[pos:end]})
			pos = end
		case ch == '(' || ch == ')' || ch == ',':
			l.emit(Token{Type: TokenSymbol, Value: text[pos : pos+1]})
			pos++
		case ch == '"':
			end, decoded, err := readString(text, pos)
			if err != nil {
				return types.NewParseError(l.line, "%v", err)
			}
			l.emit(Token{Type: TokenString, Value: text[pos:end], Str: decoded})
			pos = end
		case ch == ';':
			l.emit(Token{Type: TokenEOL, Value: ";"})
			pos++
		default:
			return types.NewParseError(l.line, "unexpected trailing text: %q", text[pos:])
		}
	}

	if len(l.tokens) > start {
		l.emit(Token{Type: TokenEOL})
	}
	return nil
}

func (l *Lexer) emit(tok Token) {
	tok.Line = l.line
	l.tokens = append(l.tokens, tok)
}

// readString reads the quoted string starting at text[start] and returns
// the index just past the closing quote along with the decoded contents.
func readString(text string, start int) (int, string, error) {
	var sb strings.Builder
	pos := start + 1
	for pos < len(text) {
		ch := text[pos]
		switch ch {
		case '"':
			return pos + 1, sb.String(), nil
		case '\\':
			pos++
			if pos >= len(text) {
				return 0, "", fmt.Errorf("unexpected end of string")
			}
			r, ok := unescape(text[pos])
			if !ok {
				return 0, "", fmt.Errorf("unknown escape sequence: \\%c", text[pos])
			}
			sb.WriteByte(r)
		default:
			sb.WriteByte(ch)
		}
		pos++
	}
	return 0, "", fmt.Errorf("unterminated string starting at column %d", start+1)
}

// DecodeString resolves the escapes of a complete double-quoted literal,
// quotes included.
func DecodeString(literal string) (string, error) {
	if len(literal) < 2 || literal[0] != '"' {
		return "", fmt.Errorf("not a string literal: %s", literal)
	}
	end, decoded, err := readString(literal, 0)
	if err != nil {
		return "", err
	}
	if end != len(literal) {
		return "", fmt.Errorf("unexpected text after string: %s", literal[end:])
	}
	return decoded, nil
}

func unescape(ch byte) (byte, bool) {
	switch ch {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '"':
		return '"', true
	case '\\':
		return '\\', true
	case 's':
		return ' ', true
	default:
		return 0, false
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\v' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isOperatorChar(ch byte) bool {
	return ch == '-' || ch == '=' || ch == '+' || ch == '*' || ch == '>'
}
