package directive

import (
	"bytes"
	"fmt"
	"strings"
)

// Visitor is called for every node reached by Walk.
type Visitor interface {
	Visit(n Node) error
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Walk visits nodes depth-first in document order.
func Walk(v Visitor, nodes []Node) error {
	for _, n := range nodes {
		if err := v.Visit(n); err != nil {
			return err
		}
		switch t := n.(type) {
		case *ConditionalNode:
			for _, b := range t.Branches {
				if err := Walk(v, b.Body); err != nil {
					return err
				}
			}
			if err := Walk(v, t.Else); err != nil {
				return err
			}
		case *LoopNode:
			if err := Walk(v, t.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

// Localizations returns the text of every @(...) directive in t in
// document order, duplicates included.
func Localizations(t *Template) []string {
	var keys []string
	_ = Walk(VisitorFunc(func(n Node) error {
		if l, ok := n.(*LocalizationNode); ok {
			keys = append(keys, l.Text)
		}
		return nil
	}), t.Nodes)
	return keys
}

// Pretty returns a line-oriented representation of the template tree.
func Pretty(t *Template) string {
	var buf bytes.Buffer
	buf.WriteString("Template\n")
	ppNodes(&buf, 2, t.Nodes)
	return buf.String()
}

func ppNodes(buf *bytes.Buffer, indent int, nodes []Node) {
	for _, n := range nodes {
		ppNode(buf, indent, n)
	}
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := strings.Repeat(" ", indent)
	switch t := n.(type) {
	case *TextNode:
		fmt.Fprintf(buf, "%sText(%q)\n", ind, t.Text)
	case *InterpolationNode:
		fmt.Fprintf(buf, "%sInterpolation(%s)\n", ind, FormatExpr(t.Expr))
	case *ConditionalNode:
		for i, b := range t.Branches {
			kw := "If"
			if i > 0 {
				kw = "Elif"
			}
			fmt.Fprintf(buf, "%s%s(%s)\n", ind, kw, FormatExpr(b.Cond))
			ppNodes(buf, indent+2, b.Body)
		}
		if t.Else != nil {
			fmt.Fprintf(buf, "%sElse\n", ind)
			ppNodes(buf, indent+2, t.Else)
		}
	case *LoopNode:
		fmt.Fprintf(buf, "%sForeach(%s in %s)\n", ind, t.Name, FormatExpr(t.Collection))
		ppNodes(buf, indent+2, t.Body)
	case *LocalizationNode:
		fmt.Fprintf(buf, "%sLocalization(%q)\n", ind, t.Text)
	}
}

// FormatExpr returns the source form of an expression, fully parenthesised
// around binary and ternary operations.
func FormatExpr(x Expr) string {
	var b strings.Builder
	formatExpr(&b, x)
	return b.String()
}

func formatExpr(b *strings.Builder, x Expr) {
	switch e := x.(type) {
	case *Literal:
		if s, ok := e.Value.(String); ok {
			b.WriteString(jsonText(s))
			return
		}
		if _, ok := e.Value.(Null); ok {
			b.WriteString("null")
			return
		}
		b.WriteString(e.Value.String())
	case *Path:
		b.WriteString(e.Root)
		formatSegments(b, e.Segments)
	case *Select:
		if _, ok := e.X.(*Unary); ok {
			b.WriteByte('(')
			formatExpr(b, e.X)
			b.WriteByte(')')
		} else {
			formatExpr(b, e.X)
		}
		formatSegments(b, e.Segments)
	case *Length:
		formatExpr(b, e.X)
		b.WriteString(".length")
	case *Unary:
		b.WriteString(string(e.Op))
		formatExpr(b, e.X)
	case *Binary:
		b.WriteByte('(')
		formatExpr(b, e.Left)
		fmt.Fprintf(b, " %s ", e.Op)
		formatExpr(b, e.Right)
		b.WriteByte(')')
	case *Ternary:
		b.WriteByte('(')
		formatExpr(b, e.Cond)
		b.WriteString(" ? ")
		formatExpr(b, e.Then)
		b.WriteString(" : ")
		formatExpr(b, e.Else)
		b.WriteByte(')')
	case *ArrayLit:
		b.WriteByte('[')
		for i, el := range e.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, el)
		}
		b.WriteByte(']')
	case *ObjectLit:
		b.WriteByte('{')
		for i, k := range e.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(jsonText(String(k)))
			b.WriteString(": ")
			formatExpr(b, e.Values[i])
		}
		b.WriteByte('}')
	case *Call:
		b.WriteString(e.Name)
		b.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, a)
		}
		b.WriteByte(')')
	}
}

func formatSegments(b *strings.Builder, segs []Segment) {
	for _, s := range segs {
		b.WriteByte('.')
		if s.IsIndex {
			fmt.Fprintf(b, "%d", s.Index)
		} else {
			b.WriteString(s.Field)
		}
	}
}
