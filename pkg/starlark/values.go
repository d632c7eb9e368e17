package starlark

import (
	"math"
	"math/big"
	"sort"

	"github.com/neurodesk/directive/pkg/directive"
	"go.starlark.net/starlark"
)

// ToStarlark converts a template value to a Starlark value. Whole numbers
// become ints so that scripts can use them as indices.
func ToStarlark(val directive.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case directive.Null:
		return starlark.None
	case directive.Bool:
		return starlark.Bool(bool(v))
	case directive.Number:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return starlark.MakeInt64(int64(f))
		}
		return starlark.Float(f)
	case directive.String:
		return starlark.String(string(v))
	case directive.Array:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ToStarlark(item)
		}
		return starlark.NewList(items)
	case directive.Object:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(v))
		for _, k := range keys {
			_ = dict.SetKey(starlark.String(k), ToStarlark(v[k]))
		}
		return dict
	default:
		return starlark.String(val.String())
	}
}

// FromStarlark converts a Starlark value to a template value. Values with
// no template counterpart, such as functions, become their string form.
func FromStarlark(val starlark.Value) directive.Value {
	if val == nil || val == starlark.None {
		return directive.Null{}
	}

	switch v := val.(type) {
	case starlark.String:
		return directive.String(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return directive.Number(float64(i))
		}
		f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
		return directive.Number(f)
	case starlark.Float:
		return directive.Number(float64(v))
	case starlark.Bool:
		return directive.Bool(bool(v))
	case *starlark.List:
		return fromIndexable(v)
	case starlark.Tuple:
		return fromIndexable(v)
	case *starlark.Dict:
		obj := make(directive.Object, v.Len())
		for _, item := range v.Items() {
			if key, ok := item[0].(starlark.String); ok {
				obj[string(key)] = FromStarlark(item[1])
			} else {
				obj[item[0].String()] = FromStarlark(item[1])
			}
		}
		return obj
	case starlark.HasAttrs:
		obj := make(directive.Object)
		for _, name := range v.AttrNames() {
			attr, err := v.Attr(name)
			if err != nil || attr == nil {
				continue
			}
			obj[name] = FromStarlark(attr)
		}
		return obj
	default:
		return directive.String(val.String())
	}
}

func fromIndexable(v starlark.Indexable) directive.Array {
	items := make(directive.Array, v.Len())
	for i := range items {
		items[i] = FromStarlark(v.Index(i))
	}
	return items
}
