package parser

import "strings"

// Render reconstructs a canonical source form of a parsed tag, delimiters
// included. Parsing the rendered form yields a structurally equal AST
// (modulo spans): whitespace is normalized to single spaces, comments are
// gone, and strings are re-quoted with double quotes.
func Render(tag *Tag) string {
	var b strings.Builder

	if tag.Syntax == SyntaxHTML {
		b.WriteString("<")
	} else {
		b.WriteString("{% ")
	}

	b.WriteString(tag.Name.Token)

	for _, attr := range tag.Attrs {
		b.WriteString(" ")
		b.WriteString(renderAttr(attr))
	}

	if tag.Syntax == SyntaxHTML {
		if tag.IsSelfClosing {
			b.WriteString(" />")
		} else {
			b.WriteString(">")
		}
	} else {
		if tag.IsSelfClosing {
			b.WriteString(" /")
		}
		b.WriteString(" %}")
	}

	return b.String()
}

func renderAttr(attr TagAttr) string {
	if attr.IsFlag {
		return attr.Value.Token.Token
	}
	if attr.Key != nil {
		return attr.Key.Token + "=" + RenderValue(attr.Value)
	}
	return RenderValue(attr.Value)
}

// RenderValue reconstructs the canonical source of a value, including its
// spread marker and filter chain. The compiler uses it to hand template
// string interpolations to the resolver as source text.
func RenderValue(v TagValue) string {
	var b strings.Builder

	b.WriteString(string(v.Spread))
	b.WriteString(renderPrimary(v))

	for _, f := range v.Filters {
		b.WriteString("|")
		b.WriteString(f.Token.Token)
		if f.Arg != nil {
			b.WriteString(":")
			b.WriteString(RenderValue(*f.Arg))
		}
	}

	return b.String()
}

func renderPrimary(v TagValue) string {
	switch v.Kind {
	case KindInt, KindFloat, KindVariable:
		return v.Token.Token

	case KindString:
		return quoteString(DecodeStringPayload(v.Token.Token))

	case KindTranslation:
		if raw, ok := translationPayloadRaw(v.Token.Token); ok {
			return "_(" + raw + ")"
		}
		return v.Token.Token

	case KindTemplateString:
		// The lexeme is already canonical source.
		return v.Token.Token

	case KindList:
		items := make([]string, 0, len(v.Children))
		for _, child := range v.Children {
			items = append(items, RenderValue(child))
		}
		return "[" + strings.Join(items, ", ") + "]"

	case KindDict:
		items := make([]string, 0, len(v.Children))
		for i := 0; i < len(v.Children); {
			child := v.Children[i]
			if child.Spread != SpreadNone {
				items = append(items, RenderValue(child))
				i++
				continue
			}
			if i+1 < len(v.Children) {
				items = append(items, RenderValue(child)+": "+RenderValue(v.Children[i+1]))
			} else {
				items = append(items, RenderValue(child))
			}
			i += 2
		}
		return "{" + strings.Join(items, ", ") + "}"

	default:
		return v.Token.Token
	}
}

// DecodeStringPayload interprets the escape sequences of a string payload.
// Unknown escapes keep the backslash, so inputs that never meant to escape
// anything pass through unchanged.
func DecodeStringPayload(payload string) string {
	if !strings.ContainsRune(payload, '\\') {
		return payload
	}

	var b strings.Builder
	b.Grow(len(payload))

	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if c != '\\' || i+1 >= len(payload) {
			b.WriteByte(c)
			continue
		}
		i++
		switch payload[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"', '`', '$':
			b.WriteByte(payload[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(payload[i])
		}
	}

	return b.String()
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')
	return b.String()
}

// translationPayloadRaw extracts the still-quoted argument of a translation
// lexeme like `_( "text" )`.
func translationPayloadRaw(token string) (string, bool) {
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

	return inner, true
}
