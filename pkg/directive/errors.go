package directive

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a parse error.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	UnmatchedDirective
	UnterminatedDirective
)

func (k ErrorKind) String() string {
	switch k {
	case UnmatchedDirective:
		return "unmatched directive"
	case UnterminatedDirective:
		return "unterminated directive"
	default:
		return "unexpected token"
	}
}

// Sentinels matched by errors.Is against a *ParseError of the same kind.
var (
	ErrUnexpectedToken       = errors.New("unexpected token")
	ErrUnmatchedDirective    = errors.New("unmatched directive")
	ErrUnterminatedDirective = errors.New("unterminated directive")
)

// ParseError is returned by Parse. Parsing stops at the first error.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Pos     Pos
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Unwrap returns the sentinel for the error kind.
func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case UnmatchedDirective:
		return ErrUnmatchedDirective
	case UnterminatedDirective:
		return ErrUnterminatedDirective
	default:
		return ErrUnexpectedToken
	}
}

// Line returns the 1-based line of the error.
func (e *ParseError) Line() int { return e.Pos.Line }

// Column returns the 1-based column of the error.
func (e *ParseError) Column() int { return e.Pos.Column }

func errorf(kind ErrorKind, pos Pos, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// RenderError is returned by Render when a hook fails. Evaluation itself
// never fails; missing data and type mismatches degrade to Null.
type RenderError struct {
	Message string
	Pos     Pos
	Err     error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d:%d: %s: %v", e.Pos.Line, e.Pos.Column, e.Message, e.Err)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *RenderError) Unwrap() error { return e.Err }
