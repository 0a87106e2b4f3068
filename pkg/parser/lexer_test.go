package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/lemonberrylabs/looplang/pkg/types"
)

func tokenSummary(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		switch tok.Type {
		case TokenEOL:
			out[i] = ";"
		case TokenString:
			out[i] = "str:" + tok.Str
		default:
			out[i] = tok.Value
		}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"assignment", "x = 0", []string{"x", "=", "0", ";"}},
		{"semicolon terminator", "x = x + 1;", []string{"x", "=", "x", "+", "1", ";", ";"}},
		{"two statements on a line", "x = 0; y = x", []string{"x", "=", "0", ";", "y", "=", "x", ";"}},
		{"no spaces", "x=x+1", []string{"x", "=", "x", "+", "1", ";"}},
		{"result arrow is one symbol", "DEF f(a, b) =>> r", []string{"DEF", "f", "(", "a", ",", "b", ")", "=>>", "r", ";"}},
		{"operator run", "x = a -* b", []string{"x", "=", "a", "-*", "b", ";"}},
		{"trailing comment", "x = 0 # reset", []string{"x", "=", "0", ";"}},
		{"comment line", "# nothing here", nil},
		{"indented comment line", "    # nothing here", nil},
		{"blank line", "   ", nil},
		{"identifiers with underscores and digits", "_a1 = b_2", []string{"_a1", "=", "b_2", ";"}},
		{"number then identifier", "12ab", []string{"12", "ab", ";"}},
		{"string", `ERROR "boom"`, []string{"ERROR", "str:boom", ";"}},
		{"multiple lines", "LOOP n\nx = x + 1\nEND", []string{"LOOP", "n", ";", "x", "=", "x", "+", "1", ";", "END", ";"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}
			got := tokenSummary(tokens)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenLines(t *testing.T) {
	tokens, err := Tokenize("x = 0\n\n# comment\ny = x")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	last := tokens[len(tokens)-1]
	if last.Line != 4 {
		t.Errorf("expected last token on line 4, got %d", last.Line)
	}
	if tokens[0].Line != 1 {
		t.Errorf("expected first token on line 1, got %d", tokens[0].Line)
	}
}

func TestTokenNumbers(t *testing.T) {
	tokens, err := Tokenize("x = 18446744073709551615")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	if tokens[2].Type != TokenNumber || tokens[2].Num != 18446744073709551615 {
		t.Errorf("got %+v, want max uint64", tokens[2])
	}

	_, err = Tokenize("x = 18446744073709551616")
	if !types.IsKind(err, types.KindParse) {
		t.Errorf("expected ParseError for overflowing literal, got %v", err)
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"cr\r"`, "cr\r"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
		{`"a\sb"`, "a b"},
		{`""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DecodeString(tt.input)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	got, _ := DecodeString(`"a\nb"`)
	if len(got) != 3 || got[0] != 'a' || got[1] != '\n' || got[2] != 'b' {
		t.Errorf("expected the three characters a, newline, b; got %q", got)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown escape", `ERROR "bad \q"`},
		{"escape at end of string", `ERROR "abc\`},
		{"unterminated string", `ERROR "abc`},
		{"unexpected character", "x = 1 @ 2"},
		{"slash", "x = a / b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if !types.IsKind(err, types.KindParse) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestDecodeStringErrors(t *testing.T) {
	for _, input := range []string{`"abc\`, `"bad \q"`, `"open`, `plain`} {
		if _, err := DecodeString(input); err == nil {
			t.Errorf("DecodeString(%s): expected error", input)
		}
	}
}

func TestTokenizeLineTooLong(t *testing.T) {
	src := "x = 0\n" + "y = " + strings.Repeat("1", MaxLineLength) + "\n"
	_, err := Tokenize(src)
	if !types.IsKind(err, types.KindParse) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	var le *types.LoopError
	if errors.As(err, &le) && le.Line != 2 {
		t.Errorf("expected line 2, got %d", le.Line)
	}
}
