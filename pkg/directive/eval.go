package directive

import (
	"context"
	"fmt"
	"strconv"
)

// Evaluate evaluates x against sc using the built-in functions and no
// hooks. It never fails: missing data and type mismatches yield Null.
func Evaluate(x Expr, sc *Scope) Value {
	s := &state{ctx: context.Background(), r: &Renderer{}, scope: sc}
	v, err := s.eval(x)
	if err != nil {
		return Null{}
	}
	return v
}

// Truthy evaluates x and returns its truthiness.
func Truthy(x Expr, sc *Scope) bool {
	return Evaluate(x, sc).Truth()
}

// eval evaluates an expression. Errors only come from hooks reached through
// function calls; everything else degrades to Null.
func (s *state) eval(x Expr) (Value, error) {
	switch e := x.(type) {
	case *Literal:
		return e.Value, nil
	case *Path:
		return walk(s.scope.Lookup(e.Root), e.Segments), nil
	case *Select:
		v, err := s.eval(e.X)
		if err != nil {
			return nil, err
		}
		return walk(v, e.Segments), nil
	case *Length:
		v, err := s.eval(e.X)
		if err != nil {
			return nil, err
		}
		if n, ok := length(v); ok {
			return Number(float64(n)), nil
		}
		return Null{}, nil
	case *Unary:
		v, err := s.eval(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case OpNot:
			return Bool(!v.Truth()), nil
		case OpNeg:
			if n, ok := v.(Number); ok {
				return -n, nil
			}
		}
		return Null{}, nil
	case *Binary:
		return s.evalBinary(e)
	case *Ternary:
		c, err := s.eval(e.Cond)
		if err != nil {
			return nil, err
		}
		if c.Truth() {
			return s.eval(e.Then)
		}
		return s.eval(e.Else)
	case *ArrayLit:
		out := make(Array, len(e.Elems))
		for i, el := range e.Elems {
			v, err := s.eval(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ObjectLit:
		out := make(Object, len(e.Keys))
		for i, k := range e.Keys {
			v, err := s.eval(e.Values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *Call:
		return s.call(e)
	}
	return Null{}, nil
}

func (s *state) evalBinary(e *Binary) (Value, error) {
	left, err := s.eval(e.Left)
	if err != nil {
		return nil, err
	}
	// && and || return the operand that decided the outcome.
	switch e.Op {
	case OpAnd:
		if !left.Truth() {
			return left, nil
		}
		return s.eval(e.Right)
	case OpOr:
		if left.Truth() {
			return left, nil
		}
		return s.eval(e.Right)
	}
	right, err := s.eval(e.Right)
	if err != nil {
		return nil, err
	}
	return Bool(compare(e.Op, left, right)), nil
}

// compare applies a comparison operator. Ordering is defined between two
// numbers or two strings only; any other pair orders as false.
func compare(op Operator, a, b Value) bool {
	switch op {
	case OpEqual:
		return Equal(a, b)
	case OpNotEqual:
		return !Equal(a, b)
	}
	var c int
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		case x == y:
			c = 0
		default:
			// NaN
			return false
		}
	case String:
		y, ok := b.(String)
		if !ok {
			return false
		}
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	default:
		return false
	}
	switch op {
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

// walk applies path segments to v. A field on a non-object, a missing
// field or an out of range index yields Null.
func walk(v Value, segs []Segment) Value {
	for _, seg := range segs {
		switch t := v.(type) {
		case Array:
			if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(t) {
				return Null{}
			}
			v = t[seg.Index]
		case Object:
			key := seg.Field
			if seg.IsIndex {
				key = strconv.Itoa(seg.Index)
			}
			item, ok := t[key]
			if !ok {
				return Null{}
			}
			v = item
		default:
			return Null{}
		}
	}
	return v
}

func (s *state) call(e *Call) (Value, error) {
	fn := s.lookupFunc(e.Name)
	if fn == nil {
		s.logger().Debug("unknown function", "name", e.Name, "pos", e.Pos.String())
		return Null{}, nil
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := s.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := fn(&CallContext{Context: s.ctx, Scope: s.scope, s: s}, args)
	if err != nil {
		return nil, &RenderError{Message: fmt.Sprintf("calling %s", e.Name), Pos: e.Pos, Err: err}
	}
	if v == nil {
		return Null{}, nil
	}
	return v, nil
}

func (s *state) lookupFunc(name string) Func {
	if fn, ok := s.r.Funcs[name]; ok {
		return fn
	}
	return builtins[name]
}
