package directive

import (
	"strconv"
	"strings"
)

// Parse parses template source into a Template. It recognizes text,
// interpolations @{expr}, conditionals @{if}/@{elif}/@{else}/@{fi}, loops
// @{foreach name in expr}/@{end} and localizations @(text). The first error
// aborts parsing and is returned as a *ParseError.
func Parse(src string) (*Template, error) {
	return ParseTokens(Tokenize(src))
}

// ParseTokens parses an already lexed token stream.
func ParseTokens(toks []Token) (*Template, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != TokenEOF {
		var at Pos
		if len(toks) > 0 {
			at = toks[len(toks)-1].Pos
		}
		toks = append(toks[:len(toks):len(toks)], Token{Kind: TokenEOF, Pos: at})
	}
	p := &parser{toks: toks}
	nodes, _, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	return &Template{Nodes: nodes}, nil
}

// MustParse is like Parse but panics on error. It is meant for templates
// known at compile time.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	toks []Token
	i    int
	open Pos // position of the directive being parsed
}

// closer is a block-closing directive (elif, else, fi, end) met while
// parsing a body.
type closer struct {
	keyword string
	cond    Expr
	pos     Pos
}

var (
	ifClosers   = map[string]bool{"elif": true, "else": true, "fi": true}
	elseClosers = map[string]bool{"fi": true}
	loopClosers = map[string]bool{"end": true}
)

// opener names the directive each closing keyword belongs to.
var opener = map[string]string{
	"elif": "if",
	"else": "if",
	"fi":   "if",
	"end":  "foreach",
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) next() Token {
	t := p.toks[p.i]
	if t.Kind != TokenEOF {
		p.i++
	}
	return t
}

// parseNodes parses nodes until a closing directive listed in until is met,
// which is returned. A nil closer means the end of the template was reached.
func (p *parser) parseNodes(until map[string]bool) ([]Node, *closer, error) {
	var nodes []Node
	for {
		tok := p.next()
		switch tok.Kind {
		case TokenEOF:
			return nodes, nil, nil
		case TokenText:
			nodes = append(nodes, &TextNode{Text: tok.Text})
		case TokenLocalizationOpen:
			n, err := p.parseLocalization(tok.Pos)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case TokenDirectiveOpen:
			n, c, err := p.parseDirective(tok.Pos)
			if err != nil {
				return nil, nil, err
			}
			if c != nil {
				if until[c.keyword] {
					return nodes, c, nil
				}
				return nil, nil, unmatched(c, until)
			}
			nodes = append(nodes, n)
		default:
			return nil, nil, errorf(UnexpectedToken, tok.Pos, "unexpected %s", tok)
		}
	}
}

func unmatched(c *closer, until map[string]bool) *ParseError {
	if len(until) == 0 {
		return errorf(UnmatchedDirective, c.pos, "%s without matching %s", c.keyword, opener[c.keyword])
	}
	var want []string
	for _, k := range []string{"elif", "else", "fi", "end"} {
		if until[k] {
			want = append(want, k)
		}
	}
	return errorf(UnmatchedDirective, c.pos, "unexpected %s, expecting %s", c.keyword, strings.Join(want, " or "))
}

// parseDirective parses what follows @{. It returns either a node or, for
// elif/else/fi/end, the closer for the enclosing block to consume.
func (p *parser) parseDirective(open Pos) (Node, *closer, error) {
	p.open = open
	tok := p.peek()
	if tok.Kind == TokenDirectiveClose {
		return nil, nil, errorf(UnexpectedToken, tok.Pos, "empty directive")
	}
	if tok.Kind != TokenKeyword {
		x, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expectClose(); err != nil {
			return nil, nil, err
		}
		return &InterpolationNode{Expr: x, Pos: open}, nil, nil
	}
	p.next()
	switch tok.Text {
	case "if":
		cond, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expectClose(); err != nil {
			return nil, nil, err
		}
		n, err := p.parseIf(open, cond)
		return n, nil, err
	case "elif":
		cond, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expectClose(); err != nil {
			return nil, nil, err
		}
		return nil, &closer{keyword: "elif", cond: cond, pos: open}, nil
	case "else", "fi", "end":
		if err := p.expectClose(); err != nil {
			return nil, nil, err
		}
		return nil, &closer{keyword: tok.Text, pos: open}, nil
	case "foreach":
		name := p.next()
		if name.Kind != TokenIdentifier {
			return nil, nil, p.unexpected(name, "loop variable name")
		}
		if in := p.next(); !in.is(TokenKeyword, "in") {
			return nil, nil, p.unexpected(in, "in")
		}
		coll, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expectClose(); err != nil {
			return nil, nil, err
		}
		n, err := p.parseLoop(open, name.Text, coll)
		return n, nil, err
	}
	return nil, nil, errorf(UnexpectedToken, tok.Pos, "unexpected keyword %q", tok.Text)
}

func (p *parser) parseIf(open Pos, cond Expr) (*ConditionalNode, error) {
	n := &ConditionalNode{Branches: []Branch{{Cond: cond}}, Pos: open}
	for {
		body, c, err := p.parseNodes(ifClosers)
		if err != nil {
			return nil, err
		}
		n.Branches[len(n.Branches)-1].Body = body
		if c == nil {
			return nil, errorf(UnmatchedDirective, open, "if opened at %s is never closed by fi", open)
		}
		switch c.keyword {
		case "elif":
			n.Branches = append(n.Branches, Branch{Cond: c.cond})
		case "else":
			body, c, err := p.parseNodes(elseClosers)
			if err != nil {
				return nil, err
			}
			if c == nil {
				return nil, errorf(UnmatchedDirective, open, "if opened at %s is never closed by fi", open)
			}
			if body == nil {
				body = []Node{}
			}
			n.Else = body
			return n, nil
		case "fi":
			return n, nil
		}
	}
}

func (p *parser) parseLoop(open Pos, name string, coll Expr) (*LoopNode, error) {
	body, c, err := p.parseNodes(loopClosers)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errorf(UnmatchedDirective, open, "foreach opened at %s is never closed by end", open)
	}
	return &LoopNode{Name: name, Collection: coll, Body: body, Pos: open}, nil
}

func (p *parser) parseLocalization(open Pos) (*LocalizationNode, error) {
	tok := p.next()
	switch tok.Kind {
	case TokenLocalizationClose:
		return nil, errorf(UnexpectedToken, open, "empty localization directive")
	case TokenText:
		if end := p.next(); end.Kind != TokenLocalizationClose {
			return nil, errorf(UnterminatedDirective, open, "localization opened at %s is never closed by )", open)
		}
		return &LocalizationNode{Text: tok.Text, Pos: open}, nil
	}
	return nil, errorf(UnterminatedDirective, open, "localization opened at %s is never closed by )", open)
}

func (p *parser) expectClose() error {
	tok := p.next()
	if tok.Kind == TokenDirectiveClose {
		return nil
	}
	return p.unexpected(tok, "}")
}

// unexpected reports tok where something else was wanted. Running into the
// end of the template or into another directive means the current one was
// never closed.
func (p *parser) unexpected(tok Token, want string) *ParseError {
	switch tok.Kind {
	case TokenEOF, TokenText, TokenDirectiveOpen, TokenLocalizationOpen:
		return errorf(UnterminatedDirective, p.open, "directive opened at %s is never closed by }", p.open)
	case TokenInvalid:
		if strings.HasPrefix(tok.Text, `"`) || strings.HasPrefix(tok.Text, "'") {
			return errorf(UnterminatedDirective, tok.Pos, "unterminated string literal")
		}
		return errorf(UnexpectedToken, tok.Pos, "invalid character %q", tok.Text)
	}
	return errorf(UnexpectedToken, tok.Pos, "unexpected %s, expecting %s", tok, want)
}

// Expressions are parsed by precedence climbing, lowest first:
//
//	ternary  ?:  (right associative)
//	||
//	&&
//	== !=
//	< <= > >=
//	! -          (prefix)
//	.field .0 f(...)
//	literals, names, ( ), [ ], { }

func (p *parser) parseExpr() (Expr, error) {
	return p.parseTernary()
}

func (p *parser) parseTernary() (Expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.peek().is(TokenPunct, "?") {
		return cond, nil
	}
	p.next()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if tok := p.next(); !tok.is(TokenPunct, ":") {
		return nil, p.unexpected(tok, ":")
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, Then: then, Else: els}, nil
}

// binaryLevels lists the binary operators by increasing precedence.
var binaryLevels = [][]Operator{
	{OpOr},
	{OpAnd},
	{OpEqual, OpNotEqual},
	{OpLess, OpLessEqual, OpGreater, OpGreaterEqual},
}

func (p *parser) parseBinary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.binaryOp(level)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) binaryOp(level int) (Operator, bool) {
	tok := p.peek()
	if tok.Kind != TokenOperator {
		return "", false
	}
	for _, op := range binaryLevels[level] {
		if tok.Text == string(op) {
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if tok.is(TokenOperator, "!") || tok.is(TokenOperator, "-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative number literals.
		if lit, ok := x.(*Literal); ok && tok.Text == "-" {
			if n, ok := lit.Value.(Number); ok {
				return &Literal{Value: -n}, nil
			}
		}
		return &Unary{Op: Operator(tok.Text), X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by dot segments. A trailing
// .length becomes a Length node.
func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var segs []Segment
	for p.peek().Kind == TokenDot {
		p.next()
		tok := p.next()
		switch tok.Kind {
		case TokenIdentifier:
			segs = append(segs, Segment{Field: tok.Text})
		case TokenNumber:
			i, err := strconv.Atoi(tok.Text)
			if err != nil {
				return nil, errorf(UnexpectedToken, tok.Pos, "invalid index %q", tok.Text)
			}
			segs = append(segs, Segment{Index: i, IsIndex: true})
		default:
			return nil, p.unexpected(tok, "field name or index")
		}
	}
	if len(segs) == 0 {
		return x, nil
	}
	var isLength bool
	if last := segs[len(segs)-1]; !last.IsIndex && last.Field == "length" {
		isLength = true
		segs = segs[:len(segs)-1]
	}
	if len(segs) > 0 {
		if path, ok := x.(*Path); ok && path.Segments == nil {
			path.Segments = segs
		} else {
			x = &Select{X: x, Segments: segs}
		}
	}
	if isLength {
		x = &Length{X: x}
	}
	return x, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()
	switch tok.Kind {
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, errorf(UnexpectedToken, tok.Pos, "invalid number %q", tok.Text)
		}
		return &Literal{Value: Number(f)}, nil
	case TokenString:
		return &Literal{Value: String(tok.Text)}, nil
	case TokenBool:
		return &Literal{Value: Bool(tok.Text == "true")}, nil
	case TokenNull:
		return &Literal{Value: Null{}}, nil
	case TokenIdentifier:
		if p.peek().is(TokenPunct, "(") {
			p.next()
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			return &Call{Name: tok.Text, Args: args, Pos: tok.Pos}, nil
		}
		return &Path{Root: tok.Text, Pos: tok.Pos}, nil
	case TokenPunct:
		switch tok.Text {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if end := p.next(); !end.is(TokenPunct, ")") {
				return nil, p.unexpected(end, ")")
			}
			return x, nil
		case "[":
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &ArrayLit{Elems: elems}, nil
		case "{":
			return p.parseObject()
		}
	case TokenKeyword:
		return nil, errorf(UnexpectedToken, tok.Pos, "unexpected keyword %q in expression", tok.Text)
	case TokenDirectiveClose:
		return nil, errorf(UnexpectedToken, tok.Pos, "unexpected }, expecting expression")
	}
	return nil, p.unexpected(tok, "expression")
}

// parseList parses comma separated expressions up to the closing
// punctuation end, which is consumed.
func (p *parser) parseList(end string) ([]Expr, error) {
	var list []Expr
	if p.peek().is(TokenPunct, end) {
		p.next()
		return list, nil
	}
	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, x)
		tok := p.next()
		if tok.is(TokenPunct, end) {
			return list, nil
		}
		if !tok.is(TokenPunct, ",") {
			return nil, p.unexpected(tok, ", or "+end)
		}
	}
}

// parseObject parses {key: expr, "key": expr} after the opening brace.
func (p *parser) parseObject() (Expr, error) {
	obj := &ObjectLit{}
	if p.peek().is(TokenPunct, "}") {
		p.next()
		return obj, nil
	}
	for {
		key := p.next()
		if key.Kind != TokenIdentifier && key.Kind != TokenString {
			return nil, p.unexpected(key, "object key")
		}
		if tok := p.next(); !tok.is(TokenPunct, ":") {
			return nil, p.unexpected(tok, ":")
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, key.Text)
		obj.Values = append(obj.Values, x)
		tok := p.next()
		if tok.is(TokenPunct, "}") {
			return obj, nil
		}
		if !tok.is(TokenPunct, ",") {
			return nil, p.unexpected(tok, ", or }")
		}
	}
}
