// Package tagparser parses and compiles template tags of a Django-style
// component system.
//
// The package is a façade over two subpackages: parser, which turns the
// textual body of a tag into a typed AST with exact source spans, and
// compiler, which lowers the AST into a callable that produces the
// positional and keyword arguments for the tag's handler.
//
//	tag, err := tagparser.ParseTag(`{% my_comp "title" size=2 %}`)
//	fn, err := tagparser.CompileTag(tag)
//	args, kwargs, err := fn(ctx, tagparser.Resolvers{...})
//
// Both steps are pure: parse once, compile once, invoke many times.
package tagparser

import (
	"github.com/django-components/djc-core-tag-parser/compiler"
	"github.com/django-components/djc-core-tag-parser/parser"
)

// AST types, re-exported for callers that only need the façade.
type (
	Tag            = parser.Tag
	TagAttr        = parser.TagAttr
	TagValue       = parser.TagValue
	TagValueFilter = parser.TagValueFilter
	TagToken       = parser.TagToken
	ValueKind      = parser.ValueKind
	TagSyntax      = parser.TagSyntax
	ParseOptions   = parser.ParseOptions
)

// Compiler types, re-exported for callers that only need the façade.
type (
	Resolvers    = compiler.Resolvers
	Kwarg        = compiler.Kwarg
	CompiledFunc = compiler.CompiledFunc
	OrderedMap   = compiler.OrderedMap
)

// ParseTag parses a template tag body into its AST. See parser.ParseTag.
func ParseTag(input string, options ...parser.ParseOptions) (*parser.Tag, error) {
	return parser.ParseTag(input, options...)
}

// CompileTag compiles a parsed tag into a callable. See compiler.CompileTag.
func CompileTag(tag *parser.Tag) (compiler.CompiledFunc, error) {
	return compiler.CompileTag(tag)
}

// CompileAttrs compiles a bare attribute list into a callable.
// See compiler.CompileAttrs.
func CompileAttrs(attrs []parser.TagAttr) (compiler.CompiledFunc, error) {
	return compiler.CompileAttrs(attrs)
}
