package lexer

import (
	"testing"

	"github.com/luacall/luacall/internal/token"
)

func collect(src string) []token.Token {
	return New(src).Tokens()
}

func TestNextToken_Identifiers(t *testing.T) {
	toks := collect("local passed_keys = KEYS")

	want := []struct {
		typ    token.Type
		lexeme string
	}{
		{token.IDENT, "local"},
		{token.IDENT, "passed_keys"},
		{token.PUNCT, "="},
		{token.IDENT, "KEYS"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Lexeme != w.lexeme {
			t.Errorf("token %d = (%v, %q), want (%v, %q)",
				i, toks[i].Type, toks[i].Lexeme, w.typ, w.lexeme)
		}
	}
}

func TestNextToken_QuotedNameIsString(t *testing.T) {
	toks := collect("redis.call('KEYS', pattern)")

	var str *token.Token
	for i := range toks {
		if toks[i].Type == token.STRING {
			str = &toks[i]
		}
	}
	if str == nil {
		t.Fatalf("no string token in %v", toks)
	}
	if str.Lexeme != "'KEYS'" {
		t.Errorf("string lexeme = %q, want %q", str.Lexeme, "'KEYS'")
	}
	// KEYS inside the literal must not surface as an identifier.
	for _, tok := range toks {
		if tok.Type == token.IDENT && tok.Lexeme == "KEYS" {
			t.Errorf("quoted KEYS leaked as identifier at offset %d", tok.Start)
		}
	}
}

func TestNextToken_Spans(t *testing.T) {
	src := "a = ARGV[1]"
	for _, tok := range collect(src) {
		if src[tok.Start:tok.End] != tok.Lexeme {
			t.Errorf("span [%d,%d) = %q, lexeme %q",
				tok.Start, tok.End, src[tok.Start:tok.End], tok.Lexeme)
		}
	}
}

func TestNextToken_Escapes(t *testing.T) {
	toks := collect(`x = 'it\'s' .. "a \"b\""`)

	var strs []string
	for _, tok := range toks {
		if tok.Type == token.STRING {
			strs = append(strs, tok.Lexeme)
		}
	}
	if len(strs) != 2 {
		t.Fatalf("got %d strings %v, want 2", len(strs), strs)
	}
	if strs[0] != `'it\'s'` {
		t.Errorf("first string = %q", strs[0])
	}
	if strs[1] != `"a \"b\""` {
		t.Errorf("second string = %q", strs[1])
	}
}

func TestNextToken_LongBrackets(t *testing.T) {
	src := "s = [==[raw ]] text]==] .. [[plain]]"
	toks := collect(src)

	var strs []string
	for _, tok := range toks {
		if tok.Type == token.STRING {
			strs = append(strs, tok.Lexeme)
		}
	}
	if len(strs) != 2 {
		t.Fatalf("got strings %v, want 2", strs)
	}
	if strs[0] != "[==[raw ]] text]==]" {
		t.Errorf("long string = %q", strs[0])
	}
	if strs[1] != "[[plain]]" {
		t.Errorf("plain long string = %q", strs[1])
	}
}

func TestNextToken_Comments(t *testing.T) {
	src := "-- KEYS in a comment\nx = 1 --[[ ARGV\nstill comment ]] y = 2"
	toks := collect(src)

	comments := 0
	for _, tok := range toks {
		if tok.Type == token.COMMENT {
			comments++
		}
		if tok.Type == token.IDENT && (tok.Lexeme == "KEYS" || tok.Lexeme == "ARGV") {
			t.Errorf("reserved name inside comment surfaced as identifier")
		}
	}
	if comments != 2 {
		t.Errorf("got %d comments, want 2", comments)
	}
}

func TestNextToken_Numbers(t *testing.T) {
	toks := collect("n = 0x1F + 1.5e-3 + .5")
	nums := 0
	for _, tok := range toks {
		if tok.Type == token.NUMBER {
			nums++
		}
	}
	if nums != 3 {
		t.Errorf("got %d number tokens, want 3: %v", nums, toks)
	}
}

func TestNextToken_LineTracking(t *testing.T) {
	toks := collect("a\nb\nc")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, tok := range toks {
		if tok.Line != i+1 {
			t.Errorf("token %q line = %d, want %d", tok.Lexeme, tok.Line, i+1)
		}
	}
}
