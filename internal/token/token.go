package token

type Type int

const (
	ILLEGAL Type = iota
	EOF

	IDENT   // identifiers and keywords
	NUMBER  // numeric literal
	STRING  // short or long string literal, delimiters included
	COMMENT // line or long comment, leading -- included
	PUNCT   // any other rune
)

// Token is a span of the input. Start and End are byte offsets into the
// original source, so callers can rewrite spans without re-serializing the
// surrounding text.
type Token struct {
	Type   Type
	Lexeme string // exact source text covered by [Start, End)
	Start  int
	End    int
	Line   int
}

func (t Type) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case COMMENT:
		return "COMMENT"
	case PUNCT:
		return "PUNCT"
	}
	return "UNKNOWN"
}
