package starlark

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/directive/pkg/directive"
	"go.starlark.net/starlark"
)

func TestToStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    directive.Value
		expected starlark.Value
	}{
		{"string value", directive.String("hello"), starlark.String("hello")},
		{"whole number", directive.Number(42), starlark.MakeInt64(42)},
		{"fraction", directive.Number(3.14), starlark.Float(3.14)},
		{"bool value true", directive.Bool(true), starlark.Bool(true)},
		{"bool value false", directive.Bool(false), starlark.Bool(false)},
		{"null value", directive.Null{}, starlark.None},
		{"nil value", nil, starlark.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToStarlark(tt.input)
			if result.String() != tt.expected.String() || result.Type() != tt.expected.Type() {
				t.Errorf("ToStarlark() = %v (%s), want %v (%s)", result, result.Type(), tt.expected, tt.expected.Type())
			}
		})
	}
}

func TestFromStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    starlark.Value
		expected directive.Value
	}{
		{"string value", starlark.String("hello"), directive.String("hello")},
		{"int value", starlark.MakeInt64(42), directive.Number(42)},
		{"float value", starlark.Float(3.14), directive.Number(3.14)},
		{"bool value", starlark.Bool(true), directive.Bool(true)},
		{"none value", starlark.None, directive.Null{}},
		{"tuple", starlark.Tuple{starlark.String("a"), starlark.MakeInt(1)}, directive.Array{directive.String("a"), directive.Number(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromStarlark(tt.input)
			if !directive.Equal(result, tt.expected) {
				t.Errorf("FromStarlark() = %#v, want %#v", result, tt.expected)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := directive.Object{
		"name":  directive.String("Ada"),
		"score": directive.Number(95),
		"ratio": directive.Number(0.5),
		"tags":  directive.Array{directive.String("a"), directive.Bool(true), directive.Null{}},
		"user":  directive.Object{"admin": directive.Bool(false)},
	}
	out := FromStarlark(ToStarlark(in))
	if !directive.Equal(in, out) {
		t.Fatalf("round trip changed value:\n%s", cmp.Diff(in.String(), out.String()))
	}
}

func TestEvaluatorBasic(t *testing.T) {
	eval := NewEvaluator(nil)

	result, err := eval.Eval("2 + 3")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "5" {
		t.Errorf("Expected '5', got %v", result.String())
	}
}

func TestEvaluatorWithGlobals(t *testing.T) {
	eval := NewEvaluator(nil)
	eval.SetGlobal("test_var", directive.String("hello"))

	result, err := eval.Eval("test_var + ' world'")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "hello world" {
		t.Errorf("Expected 'hello world', got %v", result.String())
	}
}

func TestEvaluatorScript(t *testing.T) {
	eval := NewEvaluator(nil)

	script := `
x = 10
y = 20
result = x + y
`
	globals, err := eval.ExecString(script)
	if err != nil {
		t.Fatalf("ExecString error: %v", err)
	}
	if _, ok := globals["result"]; !ok {
		t.Error("Expected 'result' variable to be set")
	}

	result, ok := eval.GetGlobal("result")
	if !ok {
		t.Fatal("Expected 'result' to be accessible via GetGlobal")
	}
	if result.String() != "30" {
		t.Errorf("Expected result='30', got %v", result.String())
	}
}

func TestEvaluatorScriptError(t *testing.T) {
	_, err := NewEvaluator(nil).ExecString("x = undefined_name + 1\n")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "undefined_name") {
		t.Fatalf("error %q does not name the identifier", err)
	}
}

func TestLoadModel(t *testing.T) {
	script := `
def grade(score):
    if score > 90:
        return "A"
    return "B"

students = [
    {"name": "Ada", "score": 95},
    {"name": "Bob", "score": 85},
]
for s in students:
    s["grade"] = grade(s["score"])

site = struct(title = title + "!", year = 2024)
config = json.decode('{"debug": true}')
_hidden = 1
`
	seed := directive.Object{"title": directive.String("Results")}
	model, err := LoadModel("model.star", script, seed, nil)
	if err != nil {
		t.Fatalf("LoadModel error: %v", err)
	}

	for _, name := range []string{"grade", "_hidden", "json", "struct", "render"} {
		if _, ok := model[name]; ok {
			t.Errorf("%s should not be exported", name)
		}
	}
	if model["title"].String() != "Results" {
		t.Errorf("seed field title = %v", model["title"])
	}

	tpl := directive.MustParse("@{M.site.title} @{M.site.year}: @{foreach s in M.students}@{s.name}=@{s.grade};@{end} debug=@{M.config.debug}")
	got, err := tpl.Render(model)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	want := "Results! 2024: Ada=A;Bob=B; debug=true"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderBuiltin(t *testing.T) {
	eval := NewEvaluator(nil)
	result, err := eval.Eval(`render("@{if n > 1}many@{else}one@{fi} @{name}", n = 3, name = "x")`)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "many x" {
		t.Errorf("got %q", result.String())
	}

	if _, err := eval.Eval(`render("@{if n}")`); err == nil {
		t.Error("expected parse error from render")
	}
	if _, err := eval.Eval(`render(1)`); err == nil {
		t.Error("expected type error from render")
	}
}

func TestPrintGoesToLogger(t *testing.T) {
	var buf strings.Builder
	eval := NewEvaluator(newTestLogger(&buf))
	if _, err := eval.ExecString(`print("hello", 1)`); err != nil {
		t.Fatalf("ExecString error: %v", err)
	}
	if !strings.Contains(buf.String(), "hello 1") {
		t.Errorf("log output %q lacks printed text", buf.String())
	}
}
