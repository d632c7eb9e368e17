package directive

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// The lexer scans template source and yields text runs plus the tokens of the
// two directive forms: statements/expressions @{ } and localizations @( ).
// It never fails; malformed input is left for the parser to report.

type lexer struct {
	src    string
	i      int
	n      int
	line   int
	column int
	toks   []Token
}

// Tokenize converts template source into a flat token stream terminated by
// a TokenEOF token.
func Tokenize(src string) []Token {
	l := &lexer{src: src, n: len(src), line: 1, column: 1}
	for l.i < l.n {
		l.lexText()
	}
	l.emit(TokenEOF, "", l.pos())
	return l.toks
}

func (l *lexer) pos() Pos {
	return Pos{Offset: l.i, Line: l.line, Column: l.column}
}

func (l *lexer) emit(kind TokenKind, text string, at Pos) {
	l.toks = append(l.toks, Token{Kind: kind, Text: text, Pos: at})
}

// advance moves the cursor forward n bytes keeping line and column current.
func (l *lexer) advance(n int) {
	end := l.i + n
	if end > l.n {
		end = l.n
	}
	for l.i < end {
		c := l.src[l.i]
		if c == '\n' {
			l.line++
			l.column = 1
		} else if c&0xC0 != 0x80 {
			l.column++
		}
		l.i++
	}
}

func (l *lexer) peekAt(j int) byte {
	if j >= l.n {
		return 0
	}
	return l.src[j]
}

// atOpen reports whether a directive opener starts at byte j.
func (l *lexer) atOpen(j int) bool {
	return l.src[j] == '@' && (l.peekAt(j+1) == '{' || l.peekAt(j+1) == '(')
}

// lexText emits a text token up to the next opener, then lexes the directive
// that follows it.
func (l *lexer) lexText() {
	start := l.pos()
	j := l.i
	for j < l.n && !l.atOpen(j) {
		j++
	}
	if j > l.i {
		text := l.src[l.i:j]
		l.advance(j - l.i)
		l.emit(TokenText, text, start)
	}
	if l.i >= l.n {
		return
	}
	if l.src[l.i+1] == '{' {
		l.lexDirective()
	} else {
		l.lexLocalization()
	}
}

// lexDirective lexes the inside of @{ ... }. Whitespace between tokens is
// dropped, which is what lets a directive span several lines.
func (l *lexer) lexDirective() {
	l.emit(TokenDirectiveOpen, "@{", l.pos())
	l.advance(2)
	depth := 0
	for {
		l.skipSpace()
		if l.i >= l.n {
			return
		}
		// A new opener means this directive was never closed; hand back to
		// text mode and let the parser report it.
		if l.atOpen(l.i) {
			return
		}
		start := l.pos()
		c := l.src[l.i]
		switch {
		case c == '}':
			l.advance(1)
			if depth == 0 {
				l.emit(TokenDirectiveClose, "}", start)
				return
			}
			depth--
			l.emit(TokenPunct, "}", start)
		case c == '{':
			depth++
			l.advance(1)
			l.emit(TokenPunct, "{", start)
		case c == '"' || c == '\'':
			l.lexString(start)
		case isDigit(c):
			l.lexNumber(start)
		case c == '.':
			l.advance(1)
			l.emit(TokenDot, ".", start)
		case c == '_' || c < utf8.RuneSelf && unicode.IsLetter(rune(c)):
			l.lexIdentifier(start)
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(l.src[l.i:])
			if unicode.IsLetter(r) {
				l.lexIdentifier(start)
				continue
			}
			l.advance(size)
			l.emit(TokenInvalid, string(r), start)
		default:
			l.lexSymbol(start)
		}
	}
}

func (l *lexer) skipSpace() {
	for l.i < l.n && isSpace(l.src[l.i]) {
		l.advance(1)
	}
}

// lexSymbol lexes operators and punctuation.
func (l *lexer) lexSymbol(start Pos) {
	two := ""
	if l.i+2 <= l.n {
		two = l.src[l.i : l.i+2]
	}
	switch two {
	case "==", "!=", ">=", "<=", "&&", "||":
		l.advance(2)
		l.emit(TokenOperator, two, start)
		return
	}
	c := l.src[l.i]
	l.advance(1)
	switch c {
	case '>', '<', '!', '-':
		l.emit(TokenOperator, string(c), start)
	case '(', ')', ',', '?', ':', '[', ']':
		l.emit(TokenPunct, string(c), start)
	default:
		l.emit(TokenInvalid, string(c), start)
	}
}

func (l *lexer) lexIdentifier(start Pos) {
	j := l.i
	for j < l.n {
		r, size := utf8.DecodeRuneInString(l.src[j:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		j += size
	}
	word := l.src[l.i:j]
	l.advance(j - l.i)
	// After a dot every word is a field name, so M.end or M.in stay paths.
	if l.afterDot() {
		l.emit(TokenIdentifier, word, start)
		return
	}
	switch {
	case keywords[word]:
		l.emit(TokenKeyword, word, start)
	case word == "true" || word == "false":
		l.emit(TokenBool, word, start)
	case word == "null":
		l.emit(TokenNull, word, start)
	default:
		l.emit(TokenIdentifier, word, start)
	}
}

// lexNumber lexes an integer or decimal literal. Directly after a dot only
// an integer is read: items.0.1 is two index segments, not a float.
func (l *lexer) lexNumber(start Pos) {
	j := l.i
	for j < l.n && isDigit(l.src[j]) {
		j++
	}
	if !l.afterDot() && j+1 < l.n && l.src[j] == '.' && isDigit(l.src[j+1]) {
		j++
		for j < l.n && isDigit(l.src[j]) {
			j++
		}
	}
	text := l.src[l.i:j]
	l.advance(j - l.i)
	l.emit(TokenNumber, text, start)
}

// lexString lexes a quoted string. An unterminated string consumes the rest
// of the source and is emitted as an invalid token.
func (l *lexer) lexString(start Pos) {
	quote := l.src[l.i]
	var b strings.Builder
	j := l.i + 1
	for j < l.n {
		c := l.src[j]
		if c == quote {
			l.advance(j + 1 - l.i)
			l.emit(TokenString, b.String(), start)
			return
		}
		if c == '\\' && j+1 < l.n {
			j++
			switch e := l.src[j]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			j++
			continue
		}
		b.WriteByte(c)
		j++
	}
	text := l.src[l.i:]
	l.advance(l.n - l.i)
	l.emit(TokenInvalid, text, start)
}

// lexLocalization lexes @( ... ). The body is one text token with its
// whitespace normalised; nested parentheses are balanced.
func (l *lexer) lexLocalization() {
	l.emit(TokenLocalizationOpen, "@(", l.pos())
	l.advance(2)
	start := l.pos()
	depth := 0
	j := l.i
	for ; j < l.n; j++ {
		switch l.src[j] {
		case '(':
			depth++
			continue
		case ')':
			if depth > 0 {
				depth--
				continue
			}
		default:
			continue
		}
		break
	}
	body := strings.Join(strings.Fields(l.src[l.i:j]), " ")
	l.advance(j - l.i)
	if body != "" {
		l.emit(TokenText, body, start)
	}
	if l.i < l.n {
		l.emit(TokenLocalizationClose, ")", l.pos())
		l.advance(1)
	}
}

func (l *lexer) afterDot() bool {
	return len(l.toks) > 0 && l.toks[len(l.toks)-1].Kind == TokenDot
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
