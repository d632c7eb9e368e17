package directive

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Value is the runtime type of every expression. It is a closed union: the
// only implementations are Null, Bool, Number, String, Array and Object.
type Value interface {
	String() string
	Truth() bool
	value()
}

// Null represents the absence of a value.
type Null struct{}

func (Null) String() string { return "" }
func (Null) Truth() bool    { return false }
func (Null) value()         {}

// Bool wraps a boolean.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truth() bool { return bool(b) }
func (Bool) value()        {}

// Number wraps a float64. Integral values print without a fraction.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (n Number) Truth() bool    { return float64(n) != 0 }
func (Number) value()           {}

// String wraps a string.
type String string

func (s String) String() string { return string(s) }
func (s String) Truth() bool    { return len(s) > 0 }
func (String) value()           {}

// Array is an ordered list of values. It is truthy even when empty.
type Array []Value

func (a Array) String() string { return jsonText(a) }
func (Array) Truth() bool      { return true }
func (Array) value()           {}

// Object is a string-keyed mapping. It is truthy even when empty.
type Object map[string]Value

func (o Object) String() string { return jsonText(o) }
func (Object) Truth() bool      { return true }
func (Object) value()           {}

var (
	_ Value = Null{}
	_ Value = Bool(false)
	_ Value = Number(0)
	_ Value = String("")
	_ Value = Array(nil)
	_ Value = Object(nil)
)

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// length returns the element count of arrays and the character count of
// strings. ok is false for every other value.
func length(v Value) (int, bool) {
	switch t := v.(type) {
	case Array:
		return len(t), true
	case String:
		return utf8.RuneCountInString(string(t)), true
	}
	return 0, false
}

// FromGo converts JSON-shaped Go data into a Value. Maps must have string
// keys; anything not recognised is formatted with fmt.
func FromGo(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []any:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = FromGo(item)
		}
		return out
	case []string:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = String(item)
		}
		return out
	case []int:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = Number(float64(item))
		}
		return out
	case []float64:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = Number(item)
		}
		return out
	case []map[string]any:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = FromGo(item)
		}
		return out
	case map[string]any:
		out := make(Object, len(t))
		for k, item := range t {
			out[k] = FromGo(item)
		}
		return out
	case map[string]string:
		out := make(Object, len(t))
		for k, item := range t {
			out[k] = String(item)
		}
		return out
	case map[string]Value:
		return Object(t)
	case []Value:
		return Array(t)
	case fmt.Stringer:
		return String(t.String())
	}
	return String(fmt.Sprintf("%v", v))
}

// ToGo converts a Value back into plain Go data (nil, bool, float64, string,
// []any, map[string]any).
func ToGo(v Value) any {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case Number:
		return float64(t)
	case String:
		return string(t)
	case Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToGo(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ToGo(item)
		}
		return out
	}
	return nil
}

// ParseJSON decodes a JSON document into a Value.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding json model: %w", err)
	}
	return FromGo(raw), nil
}

// Equal reports deep value equality. Values of different kinds are never
// equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// jsonText renders a value as compact JSON with sorted object keys. Unlike
// encoding/json it does not escape <, > and &, so composite values
// interpolated into text read the same as they were written.
func jsonText(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch t := v.(type) {
	case Bool:
		b.WriteString(t.String())
	case Number:
		if math.IsInf(float64(t), 0) || math.IsNaN(float64(t)) {
			b.WriteString("null")
			return
		}
		b.WriteString(t.String())
	case String:
		writeJSONString(b, string(t))
	case Array:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	case Object:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
			b.WriteByte(':')
			writeJSON(b, t[k])
		}
		b.WriteByte('}')
	default:
		b.WriteString("null")
	}
}

func writeJSONString(b *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
