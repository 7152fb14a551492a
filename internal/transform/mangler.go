package transform

import (
	"strings"

	"github.com/luacall/luacall/internal/config"
	"github.com/luacall/luacall/internal/lexer"
	"github.com/luacall/luacall/internal/token"
)

// Mode selects how reserved names inside string literals are treated.
type Mode int

const (
	// ModeLexical rewrites only identifier tokens. String literals and
	// comments are never touched, so `redis.call('KEYS', ...)` and
	// arbitrary strings mentioning the reserved names stay intact.
	ModeLexical Mode = iota

	// ModeCompat reproduces the historical behavior: a word-boundary
	// occurrence of a reserved name is rewritten unless it is directly
	// adjacent to a quote character. Reserved names inside unrelated
	// string literals get mangled too; that is the accepted cost of
	// byte-compatible output with older deployments.
	ModeCompat
)

// Mangle rewrites free-standing KEYS/ARGV references to _KEYS/_ARGV.
// It is a pure text-to-text function and is idempotent in both modes:
// the aliases start with an identifier character, so a second pass finds
// nothing left to rewrite.
func Mangle(src string, mode Mode) string {
	if mode == ModeCompat {
		return mangleCompat(src)
	}
	return mangleLexical(src)
}

func mangleLexical(src string) string {
	var b strings.Builder
	last := 0
	lx := lexer.New(src)
	for {
		tok := lx.NextToken()
		if tok.Type == token.EOF {
			break
		}
		if tok.Type != token.IDENT {
			continue
		}
		if tok.Lexeme != config.KeysName && tok.Lexeme != config.ArgvName {
			continue
		}
		b.WriteString(src[last:tok.Start])
		b.WriteByte('_')
		b.WriteString(tok.Lexeme)
		last = tok.End
	}
	b.WriteString(src[last:])
	return b.String()
}

func mangleCompat(src string) string {
	var b strings.Builder
	last := 0
	for i := 0; i+4 <= len(src); i++ {
		name := ""
		switch {
		case strings.HasPrefix(src[i:], config.KeysName):
			name = config.KeysName
		case strings.HasPrefix(src[i:], config.ArgvName):
			name = config.ArgvName
		default:
			continue
		}
		end := i + len(name)
		if i > 0 && isWordByte(src[i-1]) {
			continue
		}
		if end < len(src) && isWordByte(src[end]) {
			continue
		}
		// A quote on either side marks the literal call-argument form,
		// e.g. redis.call('KEYS', ...), which must survive as-is.
		if i > 0 && isQuoteByte(src[i-1]) {
			continue
		}
		if end < len(src) && isQuoteByte(src[end]) {
			continue
		}
		b.WriteString(src[last:i])
		b.WriteByte('_')
		b.WriteString(name)
		last = end
		i = end - 1
	}
	b.WriteString(src[last:])
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isQuoteByte(c byte) bool {
	return c == '\'' || c == '"'
}
