package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/django-components/djc-core-tag-parser/parser"
)

// valueFunc evaluates one value against a context and resolver set
type valueFunc func(ctx any, res Resolvers) (any, error)

// compileValue lowers a value to a closure. Constants are decoded here,
// once; the returned closure only calls resolvers and builds containers.
func compileValue(v parser.TagValue) (valueFunc, error) {
	base, err := compilePrimary(v)
	if err != nil {
		return nil, err
	}

	for _, f := range v.Filters {
		var argFn valueFunc
		if f.Arg != nil {
			argFn, err = compileValue(*f.Arg)
			if err != nil {
				return nil, err
			}
		}

		inner := base
		name := f.Token.Token
		base = func(ctx any, res Resolvers) (any, error) {
			if res.Filter == nil {
				return nil, fmt.Errorf("%w: filter", ErrNilResolver)
			}

			acc, err := inner(ctx, res)
			if err != nil {
				return nil, err
			}

			var arg any
			if argFn != nil {
				arg, err = argFn(ctx, res)
				if err != nil {
					return nil, err
				}
			}

			return res.Filter(ctx, name, acc, arg)
		}
	}

	return base, nil
}

func compilePrimary(v parser.TagValue) (valueFunc, error) {
	switch v.Kind {
	case parser.KindInt:
		n, err := strconv.ParseInt(v.Token.Token, 10, 64)
		if err != nil {
			return nil, newCompileError(ErrInvalidNumber, v.LineCol.Line, v.LineCol.Column, v.StartIndex, "%q", v.Token.Token)
		}
		return constFunc(n), nil

	case parser.KindFloat:
		f, err := strconv.ParseFloat(v.Token.Token, 64)
		if err != nil {
			return nil, newCompileError(ErrInvalidNumber, v.LineCol.Line, v.LineCol.Column, v.StartIndex, "%q", v.Token.Token)
		}
		return constFunc(f), nil

	case parser.KindString:
		return constFunc(parser.DecodeStringPayload(v.Token.Token)), nil

	case parser.KindVariable:
		path := v.Token.Token
		return func(ctx any, res Resolvers) (any, error) {
			if res.Variable == nil {
				return nil, fmt.Errorf("%w: variable", ErrNilResolver)
			}
			return res.Variable(ctx, path)
		}, nil

	case parser.KindTranslation:
		payload, ok := translationPayload(v.Token.Token)
		if !ok {
			return nil, newCompileError(ErrInvalidTranslation, v.LineCol.Line, v.LineCol.Column, v.StartIndex, "%q", v.Token.Token)
		}
		return func(ctx any, res Resolvers) (any, error) {
			if res.Translation == nil {
				return nil, fmt.Errorf("%w: translation", ErrNilResolver)
			}
			return res.Translation(ctx, payload)
		}, nil

	case parser.KindTemplateString:
		return compileTemplateString(v)

	case parser.KindList:
		return compileList(v)

	case parser.KindDict:
		return compileDict(v)

	default:
		return nil, newCompileError(ErrUnknownKind, v.LineCol.Line, v.LineCol.Column, v.StartIndex, "%d", v.Kind)
	}
}

func constFunc(v any) valueFunc {
	return func(any, Resolvers) (any, error) {
		return v, nil
	}
}

// translationPayload extracts and decodes the literal argument of a
// translation lexeme like `_( "text" )`.
func translationPayload(token string) (string, bool) {
	open := strings.IndexByte(token, '(')
	close := strings.LastIndexByte(token, ')')
	if open < 0 || close <= open {
		return "", false
	}

	inner := strings.TrimSpace(token[open+1 : close])
	if len(inner) < 2 {
		return "", false
	}
	if (inner[0] != '"' && inner[0] != '\'') || inner[len(inner)-1] != inner[0] {
		return "", false
	}

	return parser.DecodeStringPayload(inner[1 : len(inner)-1]), true
}

// compileTemplateString lowers a template string to a concatenation of
// literal fragments and resolver calls. Embedded expressions are not
// evaluated here: their source text goes to the TemplateString resolver.
func compileTemplateString(v parser.TagValue) (valueFunc, error) {
	type fragment struct {
		literal string
		expr    string
	}

	fragments := make([]fragment, 0, len(v.Children))
	for _, child := range v.Children {
		if child.Kind == parser.KindString && len(child.Filters) == 0 {
			fragments = append(fragments, fragment{literal: parser.DecodeStringPayload(child.Token.Token)})
		} else {
			fragments = append(fragments, fragment{expr: parser.RenderValue(child)})
		}
	}

	return func(ctx any, res Resolvers) (any, error) {
		var b strings.Builder
		for _, frag := range fragments {
			if frag.expr == "" {
				b.WriteString(frag.literal)
				continue
			}

			if res.TemplateString == nil {
				return nil, fmt.Errorf("%w: template_string", ErrNilResolver)
			}
			out, err := res.TemplateString(ctx, frag.expr)
			if err != nil {
				return nil, err
			}
			b.WriteString(fmt.Sprint(out))
		}
		return b.String(), nil
	}, nil
}

func compileList(v parser.TagValue) (valueFunc, error) {
	type element struct {
		fn     valueFunc
		spread bool
		token  string
	}

	elements := make([]element, 0, len(v.Children))
	for _, child := range v.Children {
		fn, err := compileValue(child)
		if err != nil {
			return nil, err
		}
		elements = append(elements, element{
			fn:     fn,
			spread: child.Spread != parser.SpreadNone,
			token:  child.Token.Token,
		})
	}

	return func(ctx any, res Resolvers) (any, error) {
		out := make([]any, 0, len(elements))
		for _, el := range elements {
			item, err := el.fn(ctx, res)
			if err != nil {
				return nil, err
			}

			if !el.spread {
				out = append(out, item)
				continue
			}

			items, ok := asIterable(item)
			if !ok {
				return nil, fmt.Errorf("%w: '%s' of %q", ErrNotIterable, typeName(item), el.token)
			}
			out = append(out, items...)
		}
		return out, nil
	}, nil
}

func compileDict(v parser.TagValue) (valueFunc, error) {
	type entry struct {
		spread bool
		token  string
		keyFn  valueFunc
		valFn  valueFunc
	}

	entries := []entry{}

	children := v.Children
	for i := 0; i < len(children); {
		child := children[i]

		if child.Spread != parser.SpreadNone {
			fn, err := compileValue(child)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{spread: true, token: child.Token.Token, valFn: fn})
			i++
			continue
		}

		if i+1 >= len(children) {
			return nil, newCompileError(ErrUnevenDict, v.LineCol.Line, v.LineCol.Column, v.StartIndex, "%q", v.Token.Token)
		}

		keyFn, err := compileValue(child)
		if err != nil {
			return nil, err
		}
		valFn, err := compileValue(children[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{keyFn: keyFn, valFn: valFn})
		i += 2
	}

	return func(ctx any, res Resolvers) (any, error) {
		out := NewOrderedMap()
		for _, e := range entries {
			if e.spread {
				val, err := e.valFn(ctx, res)
				if err != nil {
					return nil, err
				}
				items, ok := mappingEntries(val)
				if !ok {
					return nil, fmt.Errorf("%w: '%s' of %q", ErrNotMapping, typeName(val), e.token)
				}
				for _, item := range items {
					out.Set(item.Key, item.Value)
				}
				continue
			}

			key, err := e.keyFn(ctx, res)
			if err != nil {
				return nil, err
			}
			if !hashable(key) {
				return nil, fmt.Errorf("%w: '%s'", ErrUnhashableKey, typeName(key))
			}
			val, err := e.valFn(ctx, res)
			if err != nil {
				return nil, err
			}
			out.Set(key, val)
		}
		return out, nil
	}, nil
}
