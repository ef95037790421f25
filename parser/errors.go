package parser

import (
	"errors"
	"fmt"

	"github.com/django-components/djc-core-tag-parser/tokenizer"
)

// Sentinel errors
var (
	ErrExpectedTagName    = errors.New("expected tag name")
	ErrExpectedValue      = errors.New("expected value")
	ErrExpectedAttribute  = errors.New("expected attribute")
	ErrExpectedFilterName = errors.New("expected filter name")
	ErrExpectedDictEntry  = errors.New("expected dict entry")
	ErrExpectedDictColon  = errors.New("expected ':' after dict key")
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrUnterminatedTag    = errors.New("missing closing delimiter")
	ErrTranslationArg     = errors.New("translation argument must be a string literal")
	ErrDuplicateFlag      = errors.New("flag may be specified only once")
	ErrSpreadNotAllowed   = errors.New("spread is not allowed here")
	ErrSelfClosingSlash   = errors.New("self-closing slash must be the last token")
	ErrInvalidValueKind   = errors.New("invalid value kind")
)

// ParseError is a positioned parse failure. It reports the first grammar or
// lexical violation and wraps the matching sentinel error.
type ParseError struct {
	Err error
	Msg string
	Pos tokenizer.Position
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s at line %d, column %d", e.Err.Error(), e.Msg, e.Pos.Line, e.Pos.Column)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Err.Error(), e.Pos.Line, e.Pos.Column)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(sentinel error, pos tokenizer.Position, format string, args ...any) *ParseError {
	return &ParseError{
		Err: sentinel,
		Msg: fmt.Sprintf(format, args...),
		Pos: pos,
	}
}
