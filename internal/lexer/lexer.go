// Package lexer scans Lua source into a flat token stream. It recognizes
// just enough of the language for span-based rewriting: identifiers, string
// literals (short and long bracket forms), comments, numbers, and punctuation.
// It never fails; unexpected bytes come back as single-rune tokens.
package lexer

import (
	"unicode/utf8"

	"github.com/luacall/luacall/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

// NextToken returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	start := l.position
	line := l.line

	switch {
	case l.ch == 0:
		return token.Token{Type: token.EOF, Start: start, End: start, Line: line}
	case l.ch == '-' && l.peekChar() == '-':
		l.readChar()
		l.readChar()
		if level, ok := l.longBracketLevel(); ok {
			l.readLongBracket(level)
		} else {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		}
		return l.spanToken(token.COMMENT, start, line)
	case l.ch == '\'' || l.ch == '"':
		l.readShortString(l.ch)
		return l.spanToken(token.STRING, start, line)
	case l.ch == '[':
		if level, ok := l.longBracketLevel(); ok {
			l.readLongBracket(level)
			return l.spanToken(token.STRING, start, line)
		}
		l.readChar()
		return l.spanToken(token.PUNCT, start, line)
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return l.spanToken(token.IDENT, start, line)
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		l.readNumber()
		return l.spanToken(token.NUMBER, start, line)
	default:
		l.readChar()
		return l.spanToken(token.PUNCT, start, line)
	}
}

// Tokens scans the whole input.
func (l *Lexer) Tokens() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func (l *Lexer) spanToken(t token.Type, start, line int) token.Token {
	return token.Token{
		Type:   t,
		Lexeme: l.input[start:l.position],
		Start:  start,
		End:    l.position,
		Line:   line,
	}
}

// readShortString consumes a quoted string including the closing delimiter.
// A backslash escapes the following character, which is all the fidelity
// rewriting needs. Unterminated strings end at EOF or end of line, as in Lua.
func (l *Lexer) readShortString(quote rune) {
	l.readChar()
	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return
			}
		}
		l.readChar()
	}
	if l.ch == quote {
		l.readChar()
	}
}

// longBracketLevel checks whether the current position opens a long bracket
// `[`, `[=[`, `[==[`, ... without consuming anything unless it matches.
func (l *Lexer) longBracketLevel() (int, bool) {
	if l.ch != '[' {
		return 0, false
	}
	level := 0
	pos := l.readPosition
	for pos < len(l.input) && l.input[pos] == '=' {
		level++
		pos++
	}
	if pos >= len(l.input) || l.input[pos] != '[' {
		return 0, false
	}
	// Commit: consume up to and including the second opening bracket.
	for i := 0; i < level+2; i++ {
		l.readChar()
	}
	return level, true
}

// readLongBracket consumes input until the matching `]=*]` closer.
func (l *Lexer) readLongBracket(level int) {
	for l.ch != 0 {
		if l.ch == ']' {
			pos := l.readPosition
			n := 0
			for pos < len(l.input) && l.input[pos] == '=' {
				n++
				pos++
			}
			if n == level && pos < len(l.input) && l.input[pos] == ']' {
				for i := 0; i < level+2; i++ {
					l.readChar()
				}
				return
			}
		}
		l.readChar()
	}
}

// readNumber consumes a numeric literal loosely: digits, hex digits and
// markers, decimal points, and exponent signs. Precision does not matter
// here; the token only has to be skipped as a unit.
func (l *Lexer) readNumber() {
	for isDigit(l.ch) || isLetter(l.ch) || l.ch == '.' {
		prev := l.ch
		l.readChar()
		if (prev == 'e' || prev == 'E' || prev == 'p' || prev == 'P') &&
			(l.ch == '+' || l.ch == '-') {
			l.readChar()
		}
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
