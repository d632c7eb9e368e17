package directive

import "fmt"

// TokenKind classifies a lexed token.
type TokenKind int

const (
	TokenEOF               TokenKind = iota
	TokenText                        // text outside directives, or the body of @( )
	TokenDirectiveOpen               // @{
	TokenDirectiveClose              // }
	TokenLocalizationOpen            // @(
	TokenLocalizationClose           // )
	TokenKeyword                     // if elif else fi foreach in end
	TokenIdentifier                  // M, items, index
	TokenOperator                    // == != > >= < <= && || ! -
	TokenNumber                      // 12, 3.5
	TokenString                      // "abc" or 'abc', Text holds the decoded value
	TokenBool                        // true false
	TokenNull                        // null
	TokenDot                         // .
	TokenPunct                       // ( ) , ? : [ ] { }
	TokenInvalid                     // anything the lexer did not recognise
)

var tokenKindNames = [...]string{
	TokenEOF:               "end of template",
	TokenText:              "text",
	TokenDirectiveOpen:     "@{",
	TokenDirectiveClose:    "}",
	TokenLocalizationOpen:  "@(",
	TokenLocalizationClose: ")",
	TokenKeyword:           "keyword",
	TokenIdentifier:        "identifier",
	TokenOperator:          "operator",
	TokenNumber:            "number",
	TokenString:            "string",
	TokenBool:              "boolean",
	TokenNull:              "null",
	TokenDot:               ".",
	TokenPunct:             "punctuation",
	TokenInvalid:           "invalid character",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Pos is a position in template source. Line and Column are 1-based;
// Column counts characters, not bytes.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Token is a single lexical element.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF, TokenDirectiveOpen, TokenDirectiveClose,
		TokenLocalizationOpen, TokenLocalizationClose, TokenDot:
		return t.Kind.String()
	case TokenString:
		return fmt.Sprintf("string %q", t.Text)
	case TokenText:
		return fmt.Sprintf("text %q", t.Text)
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// is reports whether t has kind k and text s.
func (t Token) is(k TokenKind, s string) bool {
	return t.Kind == k && t.Text == s
}

var keywords = map[string]bool{
	"if":      true,
	"elif":    true,
	"else":    true,
	"fi":      true,
	"foreach": true,
	"in":      true,
	"end":     true,
}
