package directive

import (
	"context"
	"math"
	"strings"
)

// Func is a function callable from template expressions. Returning an error
// aborts the render with a *RenderError; built-ins only do so when a hook
// fails, degrading to Null on bad arguments instead.
type Func func(c *CallContext, args []Value) (Value, error)

// Funcs is a registry of functions. Entries override built-ins of the same
// name.
type Funcs map[string]Func

// CallContext is passed to every Func.
type CallContext struct {
	Context context.Context
	Scope   *Scope
	s       *state
}

// Translate looks key up with the renderer's translator.
func (c *CallContext) Translate(key string) (string, error) {
	return c.s.translate(key)
}

// Include renders the named partial against the current scope.
func (c *CallContext) Include(name string) (string, error) {
	return c.s.include(name)
}

// MaxRange caps the number of elements range produces.
const MaxRange = 1 << 20

// builtins is filled in init: the hook-backed entries reach back into the
// renderer, which itself consults builtins.
var builtins Funcs

func init() {
	builtins = Funcs{
		"range":   rangeFunc,
		"len":     lenFunc,
		"upper":   stringFunc(strings.ToUpper),
		"lower":   stringFunc(strings.ToLower),
		"trim":    stringFunc(strings.TrimSpace),
		"join":    joinFunc,
		"default": defaultFunc,
		"json": func(_ *CallContext, args []Value) (Value, error) {
			if len(args) != 1 {
				return Null{}, nil
			}
			return String(jsonText(args[0])), nil
		},
		"t": func(c *CallContext, args []Value) (Value, error) {
			if len(args) != 1 {
				return Null{}, nil
			}
			s, err := c.Translate(args[0].String())
			if err != nil {
				return nil, err
			}
			return String(s), nil
		},
		"include": func(c *CallContext, args []Value) (Value, error) {
			if len(args) != 1 {
				return Null{}, nil
			}
			s, err := c.Include(args[0].String())
			if err != nil {
				return nil, err
			}
			return String(s), nil
		},
	}
}

// Builtins returns a copy of the built-in function registry.
func Builtins() Funcs {
	out := make(Funcs, len(builtins))
	for k, v := range builtins {
		out[k] = v
	}
	return out
}

// rangeFunc implements range(n), range(start, stop) and
// range(start, stop, step) over integers.
func rangeFunc(_ *CallContext, args []Value) (Value, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		n, ok := a.(Number)
		if !ok {
			return Null{}, nil
		}
		nums[i] = math.Trunc(float64(n))
	}
	start, stop, step := 0.0, 0.0, 1.0
	switch len(nums) {
	case 1:
		stop = nums[0]
	case 2:
		start, stop = nums[0], nums[1]
	case 3:
		start, stop, step = nums[0], nums[1], nums[2]
	default:
		return Null{}, nil
	}
	if step == 0 {
		return Null{}, nil
	}
	count := math.Ceil((stop - start) / step)
	if count <= 0 {
		return Array{}, nil
	}
	if count > MaxRange {
		return Null{}, nil
	}
	out := make(Array, 0, int(count))
	for i := 0; i < int(count); i++ {
		out = append(out, Number(start+float64(i)*step))
	}
	return out, nil
}

func lenFunc(_ *CallContext, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null{}, nil
	}
	if obj, ok := args[0].(Object); ok {
		return Number(float64(len(obj))), nil
	}
	if n, ok := length(args[0]); ok {
		return Number(float64(n)), nil
	}
	return Null{}, nil
}

func stringFunc(fn func(string) string) Func {
	return func(_ *CallContext, args []Value) (Value, error) {
		if len(args) != 1 {
			return Null{}, nil
		}
		return String(fn(args[0].String())), nil
	}
}

func joinFunc(_ *CallContext, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Null{}, nil
	}
	arr, ok := args[0].(Array)
	if !ok {
		return Null{}, nil
	}
	sep := ","
	if len(args) == 2 {
		sep = args[1].String()
	}
	parts := make([]string, len(arr))
	for i, v := range arr {
		parts[i] = v.String()
	}
	return String(strings.Join(parts, sep)), nil
}

func defaultFunc(_ *CallContext, args []Value) (Value, error) {
	if len(args) != 2 {
		return Null{}, nil
	}
	if args[0].Truth() {
		return args[0], nil
	}
	return args[1], nil
}
