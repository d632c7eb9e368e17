package starlark

import (
	"fmt"
	"log/slog"

	"github.com/neurodesk/directive/pkg/directive"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions allows top-level control flow and global reassignment so
// that model scripts can build their data imperatively.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Evaluator runs Starlark model scripts. Globals set before execution are
// visible to the script; globals the script defines can be exported as a
// template model.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator whose print output goes to logger at
// Info level. logger may be nil.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Evaluator{
		builtins: NewBuiltins(),
		globals:  make(starlark.StringDict),
		logger:   logger,
	}
	e.thread = &starlark.Thread{
		Name: "directive-model",
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info(msg, "source", "starlark")
		},
	}
	return e
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, value directive.Value) {
	e.globals[name] = ToStarlark(value)
}

// SetGlobalStarlark sets a global variable using a native Starlark value
func (e *Evaluator) SetGlobalStarlark(name string, value starlark.Value) {
	e.globals[name] = value
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	for k, v := range e.builtins {
		predeclared[k] = v
	}
	for k, v := range e.globals {
		predeclared[k] = v
	}
	return predeclared
}

// Eval evaluates a Starlark expression and returns the result as a template value
func (e *Evaluator) Eval(expr string) (directive.Value, error) {
	val, err := starlark.EvalOptions(fileOptions, e.thread, "<eval>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return FromStarlark(val), nil
}

// ExecFile executes a Starlark file and returns the globals it defined.
// src may be nil, a string or a []byte, as for starlark.ExecFile.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFileOptions(fileOptions, e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	for k, v := range globals {
		e.globals[k] = v
	}
	return globals, nil
}

// ExecString executes a Starlark script from a string
func (e *Evaluator) ExecString(script string) (starlark.StringDict, error) {
	return e.ExecFile("<script>", script)
}

// GetGlobal retrieves a global variable as a template value
func (e *Evaluator) GetGlobal(name string) (directive.Value, bool) {
	if val, ok := e.globals[name]; ok {
		return FromStarlark(val), true
	}
	return nil, false
}

// LoadObject loads every field of obj as a global.
func (e *Evaluator) LoadObject(obj directive.Object) {
	for key, value := range obj {
		e.SetGlobal(key, value)
	}
}

// Export returns the exportable globals as a template object.
func (e *Evaluator) Export() directive.Object {
	obj := make(directive.Object)
	for key, value := range e.globals {
		if !isExportable(key, value) {
			continue
		}
		obj[key] = FromStarlark(value)
	}
	return obj
}

// isExportable skips callables, builtins and names starting with an underscore.
func isExportable(key string, value starlark.Value) bool {
	if key == "" || key[0] == '_' {
		return false
	}
	if _, ok := builtinNames[key]; ok {
		return false
	}
	_, callable := value.(starlark.Callable)
	return !callable
}

// LoadModel executes a model script and returns its exported globals. The
// fields of seed are visible to the script and exported with it; a script
// may rebind them.
func LoadModel(filename string, src any, seed directive.Object, logger *slog.Logger) (directive.Object, error) {
	e := NewEvaluator(logger)
	e.LoadObject(seed)
	if _, err := e.ExecFile(filename, src); err != nil {
		return nil, err
	}
	return e.Export(), nil
}
