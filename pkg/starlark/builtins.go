package starlark

import (
	"fmt"

	"github.com/neurodesk/directive/pkg/directive"
	"go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

var builtinNames = map[string]struct{}{
	"json":   {},
	"struct": {},
	"render": {},
}

// NewBuiltins returns the predeclared names available to model scripts:
// the json module, struct and render.
func NewBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"json":   json.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"render": starlark.NewBuiltin("render", renderBuiltin),
	}
}

// renderBuiltin implements render(src, **fields): src is parsed as a
// directive template and rendered with the keyword arguments as its model.
func renderBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) != 1 {
		return starlark.None, fmt.Errorf("%s requires exactly 1 positional argument: template", fn.Name())
	}
	src, ok := starlark.AsString(args[0])
	if !ok {
		return starlark.None, fmt.Errorf("%s: template must be a string, got %s", fn.Name(), args[0].Type())
	}

	model := make(directive.Object, len(kwargs))
	for _, kv := range kwargs {
		name, _ := starlark.AsString(kv[0])
		model[name] = FromStarlark(kv[1])
	}

	out, err := directive.TemplateString(src).Render(model)
	if err != nil {
		return starlark.None, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return starlark.String(out), nil
}
