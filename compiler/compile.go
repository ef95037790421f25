// Package compiler lowers a parsed tag into an executable form.
//
// Compilation walks the attribute list once and produces a CompiledFunc:
// a closure graph whose per-invocation cost is resolver calls and container
// construction only. Constants are decoded at compile time, structural
// violations are reported before any evaluation, and the AST is never
// walked again after CompileTag returns.
package compiler

import (
	"fmt"

	"github.com/django-components/djc-core-tag-parser/parser"
)

// Resolvers are the caller-supplied callbacks a compiled tag evaluates
// against. Errors returned by a resolver propagate unchanged.
type Resolvers struct {
	// Variable resolves a variable reference from its path text,
	// e.g. "user.name" or "items[0]".
	Variable func(ctx any, path string) (any, error)
	// TemplateString evaluates an embedded template-string expression
	// from its source text.
	TemplateString func(ctx any, expr string) (any, error)
	// Translation translates a literal string.
	Translation func(ctx any, text string) (any, error)
	// Filter applies a named filter. arg is nil when the filter has no
	// argument.
	Filter func(ctx any, name string, value any, arg any) (any, error)
}

// Kwarg is one keyword argument pair. Pairs are ordered and duplicates are
// preserved; deduplication is the caller's policy.
type Kwarg struct {
	Key   string
	Value any
}

// CompiledFunc evaluates a compiled tag against a context, returning the
// positional args and keyword pairs to hand to the tag's handler. It holds
// no mutable state and is safe for concurrent use when the resolvers are.
type CompiledFunc func(ctx any, res Resolvers) ([]any, []Kwarg, error)

// evalState is the per-invocation accumulator
type evalState struct {
	args      []any
	kwargs    []Kwarg
	kwargSeen bool
}

type step func(ctx any, res Resolvers, st *evalState) error

// CompileTag compiles a parsed tag
func CompileTag(tag *parser.Tag) (CompiledFunc, error) {
	return CompileAttrs(tag.Attrs)
}

// CompileAttrs compiles a bare attribute list.
//
// Positional-after-keyword ordering is checked at compile time for as long
// as it is statically known. A `...` spread may turn out to be a mapping or
// an iterable only at run time, so once one has been seen the check moves
// into the evaluation steps.
func CompileAttrs(attrs []parser.TagAttr) (CompiledFunc, error) {
	steps := make([]step, 0, len(attrs))

	kwargSeen := false
	hasSpread := false

	for _, attr := range attrs {
		if attr.IsFlag {
			name := attr.Value.Token.Token
			steps = append(steps, func(_ any, _ Resolvers, st *evalState) error {
				st.kwargs = append(st.kwargs, Kwarg{Key: name, Value: true})
				return nil
			})
			continue
		}

		if attr.Key != nil {
			fn, err := compileValue(attr.Value)
			if err != nil {
				return nil, err
			}
			key := attr.Key.Token
			steps = append(steps, func(ctx any, res Resolvers, st *evalState) error {
				v, err := fn(ctx, res)
				if err != nil {
					return err
				}
				st.kwargs = append(st.kwargs, Kwarg{Key: key, Value: v})
				st.kwargSeen = true
				return nil
			})
			kwargSeen = true
			continue
		}

		switch attr.Value.Spread {
		case parser.SpreadRest:
			fn, err := compileValue(attr.Value)
			if err != nil {
				return nil, err
			}
			token := attr.Value.Token.Token
			steps = append(steps, func(ctx any, res Resolvers, st *evalState) error {
				v, err := fn(ctx, res)
				if err != nil {
					return err
				}
				return spreadDynamic(v, token, st)
			})
			hasSpread = true

		case parser.SpreadMapping:
			fn, err := compileValue(attr.Value)
			if err != nil {
				return nil, err
			}
			token := attr.Value.Token.Token
			steps = append(steps, func(ctx any, res Resolvers, st *evalState) error {
				v, err := fn(ctx, res)
				if err != nil {
					return err
				}
				entries, ok := mappingEntries(v)
				if !ok {
					return fmt.Errorf("%w: '%s' of '**%s'", ErrNotMapping, typeName(v), token)
				}
				for _, e := range entries {
					st.kwargs = append(st.kwargs, Kwarg{Key: stringifyKey(e.Key), Value: e.Value})
				}
				st.kwargSeen = true
				return nil
			})
			kwargSeen = true

		case parser.SpreadIterable:
			if kwargSeen {
				return nil, newCompileError(ErrPositionalAfterKeyword, attr.LineCol.Line, attr.LineCol.Column, attr.StartIndex, "'*%s'", attr.Value.Token.Token)
			}
			fn, err := compileValue(attr.Value)
			if err != nil {
				return nil, err
			}
			token := attr.Value.Token.Token
			checked := hasSpread
			steps = append(steps, func(ctx any, res Resolvers, st *evalState) error {
				if checked && st.kwargSeen {
					return fmt.Errorf("%w: '*%s'", ErrPositionalAfterKeyword, token)
				}
				v, err := fn(ctx, res)
				if err != nil {
					return err
				}
				items, ok := asIterable(v)
				if !ok {
					return fmt.Errorf("%w: '%s' of '*%s'", ErrNotIterable, typeName(v), token)
				}
				st.args = append(st.args, items...)
				return nil
			})

		case parser.SpreadNone:
			if kwargSeen {
				return nil, newCompileError(ErrPositionalAfterKeyword, attr.LineCol.Line, attr.LineCol.Column, attr.StartIndex, "'%s'", attr.Value.Token.Token)
			}
			fn, err := compileValue(attr.Value)
			if err != nil {
				return nil, err
			}
			token := attr.Value.Token.Token
			checked := hasSpread
			steps = append(steps, func(ctx any, res Resolvers, st *evalState) error {
				if checked && st.kwargSeen {
					return fmt.Errorf("%w: '%s'", ErrPositionalAfterKeyword, token)
				}
				v, err := fn(ctx, res)
				if err != nil {
					return err
				}
				st.args = append(st.args, v)
				return nil
			})

		default:
			return nil, newCompileError(ErrBadSpread, attr.LineCol.Line, attr.LineCol.Column, attr.StartIndex, "%q", attr.Value.Spread)
		}
	}

	return func(ctx any, res Resolvers) ([]any, []Kwarg, error) {
		st := &evalState{
			args:   []any{},
			kwargs: []Kwarg{},
		}
		for _, s := range steps {
			if err := s(ctx, res, st); err != nil {
				return nil, nil, err
			}
		}
		return st.args, st.kwargs, nil
	}, nil
}

// spreadDynamic expands a top-level `...` value: mappings extend the keyword
// pairs, iterables extend the positional args.
func spreadDynamic(v any, token string, st *evalState) error {
	if entries, ok := mappingEntries(v); ok {
		for _, e := range entries {
			st.kwargs = append(st.kwargs, Kwarg{Key: stringifyKey(e.Key), Value: e.Value})
		}
		st.kwargSeen = true
		return nil
	}

	if items, ok := asIterable(v); ok {
		if st.kwargSeen {
			return fmt.Errorf("%w: '...%s'", ErrPositionalAfterKeyword, token)
		}
		st.args = append(st.args, items...)
		return nil
	}

	return fmt.Errorf("%w: value of '...%s' is '%s'", ErrNotSpreadable, token, typeName(v))
}
