package compiler

import (
	"errors"
	"fmt"

	"github.com/django-components/djc-core-tag-parser/tokenizer"
)

// Sentinel errors
var (
	ErrPositionalAfterKeyword = errors.New("positional argument follows keyword argument")
	ErrUnevenDict             = errors.New("dict has an uneven number of key-value children")
	ErrNotMapping             = errors.New("value is not a mapping")
	ErrNotIterable            = errors.New("value is not iterable")
	ErrNotSpreadable          = errors.New("value is not a mapping or an iterable")
	ErrUnhashableKey          = errors.New("dict key is not hashable")
	ErrInvalidNumber          = errors.New("invalid numeric literal")
	ErrInvalidTranslation     = errors.New("invalid translation format")
	ErrNilResolver            = errors.New("resolver is not set")
	ErrBadSpread              = errors.New("invalid spread marker")
	ErrUnknownKind            = errors.New("unknown value kind")
)

// CompileError is a structural AST violation found before evaluation. It
// carries the span of the offending attribute or value.
type CompileError struct {
	Err error
	Msg string
	Pos tokenizer.Position
}

func (e *CompileError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s at line %d, column %d", e.Err.Error(), e.Msg, e.Pos.Line, e.Pos.Column)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Err.Error(), e.Pos.Line, e.Pos.Column)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func newCompileError(sentinel error, line, column, offset int, format string, args ...any) *CompileError {
	return &CompileError{
		Err: sentinel,
		Msg: fmt.Sprintf(format, args...),
		Pos: tokenizer.Position{Line: line, Column: column, Offset: offset},
	}
}
