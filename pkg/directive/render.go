package directive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Translator supplies localized text for @(...) directives and the t
// function. Implementations may block; the renderer waits for each lookup
// before moving to the next node.
type Translator interface {
	Translate(ctx context.Context, key string) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(ctx context.Context, key string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, key string) (string, error) {
	return f(ctx, key)
}

// Resolver supplies partial templates for the include function.
type Resolver interface {
	Resolve(name string) (*Template, error)
}

// MaxIncludeDepth bounds nested includes so that cycles fail instead of
// recursing forever.
const MaxIncludeDepth = 32

// Renderer renders templates. A Renderer holds only configuration and may
// be shared by concurrent renders.
type Renderer struct {
	// Translator resolves localizations. When nil the text is emitted
	// unchanged.
	Translator Translator
	// Resolver resolves partials for include. When nil include fails.
	Resolver Resolver
	// Funcs adds functions to, or overrides, the built-ins.
	Funcs Funcs
	// Logger receives debug records about degraded evaluation.
	Logger *slog.Logger
}

// NewRenderer returns a renderer using tr for localization. tr may be nil.
func NewRenderer(tr Translator) *Renderer {
	return &Renderer{Translator: tr}
}

// Render renders t against model and the optional repository. Output is
// only returned when the whole template rendered; a cancelled ctx abandons
// the render at the next node.
func (r *Renderer) Render(ctx context.Context, t *Template, model, repo Value) (string, error) {
	var buf strings.Builder
	s := &state{ctx: ctx, r: r, scope: NewScope(model, repo)}
	if err := s.renderNodes(&buf, t.Nodes); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo renders t and writes the output to w. Nothing is written when
// rendering fails.
func (r *Renderer) RenderTo(ctx context.Context, w io.Writer, t *Template, model, repo Value) error {
	out, err := r.Render(ctx, t, model, repo)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Eval evaluates x in sc with this renderer's functions and hooks.
func (r *Renderer) Eval(ctx context.Context, x Expr, sc *Scope) (Value, error) {
	s := &state{ctx: ctx, r: r, scope: sc}
	return s.eval(x)
}

// Render renders t with a renderer that has no hooks.
func Render(ctx context.Context, t *Template, model, repo Value) (string, error) {
	return NewRenderer(nil).Render(ctx, t, model, repo)
}

// Render renders t with no hooks.
func (t *Template) Render(model Value) (string, error) {
	return NewRenderer(nil).Render(context.Background(), t, model, nil)
}

// state is the per-call rendering state.
type state struct {
	ctx   context.Context
	r     *Renderer
	scope *Scope
	depth int
}

func (s *state) logger() *slog.Logger {
	if s.r.Logger != nil {
		return s.r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (s *state) renderNodes(buf *strings.Builder, nodes []Node) error {
	for _, n := range nodes {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		switch t := n.(type) {
		case *TextNode:
			buf.WriteString(t.Text)
		case *InterpolationNode:
			v, err := s.eval(t.Expr)
			if err != nil {
				return err
			}
			buf.WriteString(v.String())
		case *ConditionalNode:
			body, err := s.pickBranch(t)
			if err != nil {
				return err
			}
			if err := s.renderNodes(buf, body); err != nil {
				return err
			}
		case *LoopNode:
			if err := s.renderLoop(buf, t); err != nil {
				return err
			}
		case *LocalizationNode:
			text, err := s.translateAt(t.Text, t.Pos)
			if err != nil {
				return err
			}
			buf.WriteString(text)
		default:
			return fmt.Errorf("unhandled node type: %T", n)
		}
	}
	return nil
}

// pickBranch returns the body of the first truthy branch, the else body,
// or nil.
func (s *state) pickBranch(n *ConditionalNode) ([]Node, error) {
	for _, b := range n.Branches {
		v, err := s.eval(b.Cond)
		if err != nil {
			return nil, err
		}
		if v.Truth() {
			return b.Body, nil
		}
	}
	return n.Else, nil
}

func (s *state) renderLoop(buf *strings.Builder, n *LoopNode) error {
	v, err := s.eval(n.Collection)
	if err != nil {
		return err
	}
	items, ok := v.(Array)
	if !ok {
		if _, null := v.(Null); !null {
			s.logger().Debug("loop over non-array value", "name", n.Name, "pos", n.Pos.String())
		}
		return nil
	}
	for i, item := range items {
		s.scope.Push(n.Name, item, i)
		err := s.renderNodes(buf, n.Body)
		s.scope.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *state) translate(key string) (string, error) {
	if s.r.Translator == nil {
		return key, nil
	}
	return s.r.Translator.Translate(s.ctx, key)
}

func (s *state) translateAt(key string, pos Pos) (string, error) {
	text, err := s.translate(key)
	if err != nil {
		return "", &RenderError{Message: fmt.Sprintf("translating %q", key), Pos: pos, Err: err}
	}
	return text, nil
}

func (s *state) include(name string) (string, error) {
	if s.r.Resolver == nil {
		return "", fmt.Errorf("include %q: no resolver configured", name)
	}
	if s.depth >= MaxIncludeDepth {
		return "", fmt.Errorf("include %q: nested too deeply", name)
	}
	t, err := s.r.Resolver.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("include %q: %w", name, err)
	}
	var buf strings.Builder
	s.depth++
	err = s.renderNodes(&buf, t.Nodes)
	s.depth--
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
