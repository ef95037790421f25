package parser

import (
	"strings"

	"github.com/django-components/djc-core-tag-parser/tokenizer"
)

// ParseOptions are options for ParseTag
type ParseOptions struct {
	// Flags lists the identifiers that parse as boolean flags when they
	// appear bare in value position. Matching is case-sensitive.
	Flags []string
}

// ParseTag parses a template tag and returns its AST.
//
// The input may be a full tag including delimiters ({% my_tag ... %} or
// <my_tag ... />) or a bare tag body (my_tag ...), which parses with django
// syntax. Byte offsets in the AST always index the input as given, so
// delimiter bytes count toward spans.
func ParseTag(input string, options ...ParseOptions) (*Tag, error) {
	opts := ParseOptions{}
	if len(options) > 0 {
		opts = options[0]
	}

	syntax := SyntaxDjango
	bodyStart, bodyEnd := 0, len(input)

	switch {
	case strings.HasPrefix(input, "{%"):
		if len(input) < 4 || !strings.HasSuffix(input, "%}") {
			return nil, &ParseError{
				Err: ErrUnterminatedTag,
				Msg: "expected '%}'",
				Pos: endPosition(input),
			}
		}
		bodyStart, bodyEnd = 2, len(input)-2

	case strings.HasPrefix(input, "<"):
		if len(input) < 2 || !strings.HasSuffix(input, ">") {
			return nil, &ParseError{
				Err: ErrUnterminatedTag,
				Msg: "expected '>'",
				Pos: endPosition(input),
			}
		}
		syntax = SyntaxHTML
		bodyStart, bodyEnd = 1, len(input)-1
	}

	p, err := newParser(input, bodyStart, bodyEnd, opts.Flags)
	if err != nil {
		return nil, err
	}

	return p.parseBody(syntax, len(input))
}

// endPosition is the position one past the last character of the input
func endPosition(input string) tokenizer.Position {
	lc := lineColAt(input, len(input))
	return tokenizer.Position{Line: lc.Line, Column: lc.Column, Offset: len(input)}
}
