package parser

import (
	"github.com/django-components/djc-core-tag-parser/tokenizer"
)

// parser is a recursive-descent parser over the token stream. Whitespace and
// comments are dropped before parsing; rules that forbid whitespace between
// two lexemes check byte adjacency of the surrounding tokens instead.
type parser struct {
	input string
	toks  []tokenizer.Token
	pos   int
	flags map[string]bool
	seen  map[string]bool
}

func newParser(input string, start, end int, flags []string) (*parser, error) {
	tk := tokenizer.NewTagTokenizer(input, tokenizer.TokenizerOptions{
		SkipWhitespace: true,
		SkipComments:   true,
		Start:          start,
		End:            end,
	})

	toks, err := tk.AllTokens()
	if err != nil {
		return nil, asParseError(err)
	}

	p := &parser{
		input: input,
		toks:  toks,
		seen:  map[string]bool{},
	}
	if len(flags) > 0 {
		p.flags = make(map[string]bool, len(flags))
		for _, f := range flags {
			p.flags[f] = true
		}
	}

	return p, nil
}

// asParseError converts a tokenizer error into a positioned ParseError
func asParseError(err error) error {
	if lexErr, ok := err.(*tokenizer.Error); ok {
		return &ParseError{Err: lexErr.Err, Pos: lexErr.Pos}
	}
	return err
}

func (p *parser) cur() tokenizer.Token {
	return p.toks[p.pos]
}

func (p *parser) peek() tokenizer.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func adjacent(a, b tokenizer.Token) bool {
	return a.End == b.Position.Offset
}

func lineColOf(tok tokenizer.Token) LineCol {
	return LineCol{Line: tok.Position.Line, Column: tok.Position.Column}
}

func makeToken(tok tokenizer.Token) TagToken {
	return TagToken{
		Token:      tok.Value,
		StartIndex: tok.Position.Offset,
		EndIndex:   tok.End,
		LineCol:    lineColOf(tok),
	}
}

func isValueStart(tok tokenizer.Token) bool {
	switch tok.Type {
	case tokenizer.IDENT, tokenizer.NUMBER, tokenizer.STRING, tokenizer.TSTRING,
		tokenizer.LBRACKET, tokenizer.LBRACE:
		return true
	default:
		return false
	}
}

// lineColAt computes the 1-based line and rune column of a byte offset
func lineColAt(input string, offset int) LineCol {
	lc := LineCol{Line: 1, Column: 1}
	for i, r := range input {
		if i >= offset {
			break
		}
		if r == '\n' {
			lc.Line++
			lc.Column = 1
		} else {
			lc.Column++
		}
	}
	return lc
}

// parseBody parses `name (attr)* (/)?` until EOF
func (p *parser) parseBody(syntax TagSyntax, inputLen int) (*Tag, error) {
	nameTok := p.cur()
	if nameTok.Type != tokenizer.IDENT {
		return nil, newParseError(ErrExpectedTagName, nameTok.Position, "got %s", describe(nameTok))
	}
	p.advance()

	tag := &Tag{
		Name:       makeToken(nameTok),
		Attrs:      []TagAttr{},
		Syntax:     syntax,
		StartIndex: 0,
		EndIndex:   inputLen,
		LineCol:    lineColOf(nameTok),
	}

	for p.cur().Type != tokenizer.EOF {
		if p.cur().Type == tokenizer.SLASH {
			p.advance()
			if p.cur().Type != tokenizer.EOF {
				return nil, newParseError(ErrSelfClosingSlash, p.cur().Position, "got %s", describe(p.cur()))
			}
			tag.IsSelfClosing = true
			continue
		}

		attr, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		tag.Attrs = append(tag.Attrs, attr)
	}

	return tag, nil
}

// parseAttr parses one `flag | key=value | positional` attribute
func (p *parser) parseAttr() (TagAttr, error) {
	tok := p.cur()

	// key=value: both the '=' and the value must be glued to their neighbors
	if tok.Type == tokenizer.IDENT && p.peek().Type == tokenizer.EQUAL && adjacent(tok, p.peek()) {
		key := makeToken(tok)
		p.advance()
		eqTok := p.cur()
		p.advance()

		if p.cur().Type == tokenizer.SPREAD || !isValueStart(p.cur()) || !adjacent(eqTok, p.cur()) {
			return TagAttr{}, newParseError(ErrExpectedValue, p.cur().Position, "after '%s='", key.Token)
		}

		val, err := p.parseValue(nil, SpreadNone, false)
		if err != nil {
			return TagAttr{}, err
		}

		return TagAttr{
			Key:        &key,
			Value:      val,
			StartIndex: key.StartIndex,
			EndIndex:   val.EndIndex,
			LineCol:    key.LineCol,
		}, nil
	}

	// flag: a bare known identifier not continued into a kwarg, a variable
	// path, or a filter chain
	if tok.Type == tokenizer.IDENT && p.flags[tok.Value] {
		nxt := p.peek()
		continued := nxt.Type == tokenizer.PIPE ||
			(adjacent(tok, nxt) && (nxt.Type == tokenizer.DOT || nxt.Type == tokenizer.LBRACKET || nxt.Type == tokenizer.EQUAL))
		if !continued {
			if p.seen[tok.Value] {
				return TagAttr{}, newParseError(ErrDuplicateFlag, tok.Position, "flag %q", tok.Value)
			}
			p.seen[tok.Value] = true
			p.advance()

			val := TagValue{
				Token:      makeToken(tok),
				Kind:       KindVariable,
				StartIndex: tok.Position.Offset,
				EndIndex:   tok.End,
				LineCol:    lineColOf(tok),
			}

			return TagAttr{
				Value:      val,
				IsFlag:     true,
				StartIndex: val.StartIndex,
				EndIndex:   val.EndIndex,
				LineCol:    val.LineCol,
			}, nil
		}
	}

	// spread positional: the marker must be glued to its value
	if tok.Type == tokenizer.SPREAD {
		p.advance()
		if !isValueStart(p.cur()) || !adjacent(tok, p.cur()) {
			return TagAttr{}, newParseError(ErrExpectedValue, p.cur().Position, "after '%s'", tok.Value)
		}

		val, err := p.parseValue(&tok, Spread(tok.Value), false)
		if err != nil {
			return TagAttr{}, err
		}

		return TagAttr{
			Value:      val,
			StartIndex: val.StartIndex,
			EndIndex:   val.EndIndex,
			LineCol:    val.LineCol,
		}, nil
	}

	if !isValueStart(tok) {
		return TagAttr{}, newParseError(ErrExpectedAttribute, tok.Position, "got %s", describe(tok))
	}

	val, err := p.parseValue(nil, SpreadNone, false)
	if err != nil {
		return TagAttr{}, err
	}

	return TagAttr{
		Value:      val,
		StartIndex: val.StartIndex,
		EndIndex:   val.EndIndex,
		LineCol:    val.LineCol,
	}, nil
}

// parseValue parses `primary (filter)*` and attaches an already-consumed
// spread marker. inDictKey disables filter arguments, because inside a dict
// key the ':' belongs to the key/value separator.
func (p *parser) parseValue(spreadTok *tokenizer.Token, spread Spread, inDictKey bool) (TagValue, error) {
	prim, err := p.parsePrimary()
	if err != nil {
		return TagValue{}, err
	}

	filters, err := p.parseFilters(inDictKey)
	if err != nil {
		return TagValue{}, err
	}

	val := prim
	val.Spread = spread
	val.Filters = filters

	if spreadTok != nil {
		val.StartIndex = spreadTok.Position.Offset
		val.LineCol = lineColOf(*spreadTok)
	}
	if len(filters) > 0 {
		val.EndIndex = filters[len(filters)-1].EndIndex
	}

	return val, nil
}

// parseFilters parses a `(| name (: primary)?)*` chain
func (p *parser) parseFilters(inDictKey bool) ([]TagValueFilter, error) {
	var filters []TagValueFilter

	for p.cur().Type == tokenizer.PIPE {
		pipeTok := p.cur()
		p.advance()

		nameTok := p.cur()
		if nameTok.Type != tokenizer.IDENT {
			return nil, newParseError(ErrExpectedFilterName, nameTok.Position, "got %s", describe(nameTok))
		}
		p.advance()

		filter := TagValueFilter{
			Token:      makeToken(nameTok),
			StartIndex: pipeTok.Position.Offset,
			EndIndex:   nameTok.End,
			LineCol:    lineColOf(pipeTok),
		}

		// The ':' introducing an argument must be glued to the filter name.
		if !inDictKey && p.cur().Type == tokenizer.COLON && nameTok.End == p.cur().Position.Offset {
			colonTok := p.cur()
			p.advance()

			if p.cur().Type == tokenizer.SPREAD || !isValueStart(p.cur()) {
				return nil, newParseError(ErrExpectedValue, p.cur().Position, "as argument of filter %q", nameTok.Value)
			}

			prim, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}

			arg := prim
			arg.StartIndex = colonTok.Position.Offset
			arg.LineCol = lineColOf(colonTok)
			filter.Arg = &arg
			filter.EndIndex = prim.EndIndex
		}

		filters = append(filters, filter)
	}

	return filters, nil
}

// parsePrimary parses a single unfiltered value
func (p *parser) parsePrimary() (TagValue, error) {
	tok := p.cur()

	switch tok.Type {
	case tokenizer.NUMBER:
		kind := KindInt
		if tok.IsFloat {
			kind = KindFloat
		}
		p.advance()
		return TagValue{
			Token:      makeToken(tok),
			Kind:       kind,
			StartIndex: tok.Position.Offset,
			EndIndex:   tok.End,
			LineCol:    lineColOf(tok),
		}, nil

	case tokenizer.STRING:
		tt := makeToken(tok)
		tt.Token = tok.Value[1 : len(tok.Value)-1]
		p.advance()
		return TagValue{
			Token:      tt,
			Kind:       KindString,
			StartIndex: tok.Position.Offset,
			EndIndex:   tok.End,
			LineCol:    lineColOf(tok),
		}, nil

	case tokenizer.TSTRING:
		return p.parseTemplateString()

	case tokenizer.IDENT:
		if tok.Value == "_" && p.peek().Type == tokenizer.LPAREN && adjacent(tok, p.peek()) {
			return p.parseTranslation()
		}
		return p.parseVariable()

	case tokenizer.LBRACKET:
		return p.parseList()

	case tokenizer.LBRACE:
		return p.parseDict()

	default:
		return TagValue{}, newParseError(ErrExpectedValue, tok.Position, "got %s", describe(tok))
	}
}

// parseVariable parses `ident (('.' ident) | ('[' primary ']'))*`. The whole
// path must be free of whitespace; the lexeme keeps the accessors verbatim.
func (p *parser) parseVariable() (TagValue, error) {
	startTok := p.cur()
	end := startTok.End
	p.advance()

	for {
		tok := p.cur()
		if tok.Position.Offset != end {
			break
		}

		switch tok.Type {
		case tokenizer.DOT:
			if p.peek().Type != tokenizer.IDENT || !adjacent(tok, p.peek()) {
				return TagValue{}, newParseError(ErrUnexpectedToken, tok.Position, "expected identifier after '.'")
			}
			p.advance()
			end = p.cur().End
			p.advance()

		case tokenizer.LBRACKET:
			p.advance()
			if _, err := p.parsePrimary(); err != nil {
				return TagValue{}, err
			}
			if p.cur().Type != tokenizer.RBRACKET {
				return TagValue{}, newParseError(ErrUnexpectedToken, p.cur().Position, "expected ']'")
			}
			end = p.cur().End
			p.advance()

		default:
			return p.variableValue(startTok, end), nil
		}
	}

	return p.variableValue(startTok, end), nil
}

func (p *parser) variableValue(startTok tokenizer.Token, end int) TagValue {
	return TagValue{
		Token: TagToken{
			Token:      p.input[startTok.Position.Offset:end],
			StartIndex: startTok.Position.Offset,
			EndIndex:   end,
			LineCol:    lineColOf(startTok),
		},
		Kind:       KindVariable,
		StartIndex: startTok.Position.Offset,
		EndIndex:   end,
		LineCol:    lineColOf(startTok),
	}
}

// parseTranslation parses `_( "literal" )`; interior whitespace is allowed
func (p *parser) parseTranslation() (TagValue, error) {
	underscoreTok := p.cur()
	p.advance() // _
	p.advance() // (

	if p.cur().Type != tokenizer.STRING {
		return TagValue{}, newParseError(ErrTranslationArg, p.cur().Position, "got %s", describe(p.cur()))
	}
	p.advance()

	if p.cur().Type != tokenizer.RPAREN {
		return TagValue{}, newParseError(ErrTranslationArg, p.cur().Position, "expected ')', got %s", describe(p.cur()))
	}
	end := p.cur().End
	p.advance()

	return TagValue{
		Token: TagToken{
			Token:      p.input[underscoreTok.Position.Offset:end],
			StartIndex: underscoreTok.Position.Offset,
			EndIndex:   end,
			LineCol:    lineColOf(underscoreTok),
		},
		Kind:       KindTranslation,
		StartIndex: underscoreTok.Position.Offset,
		EndIndex:   end,
		LineCol:    lineColOf(underscoreTok),
	}, nil
}

// parseList parses `[ (item (, item)* ,?)? ]`. Items may be spread with
// ... only; whitespace after the marker is allowed inside brackets.
func (p *parser) parseList() (TagValue, error) {
	openTok := p.cur()
	p.advance()

	children := []TagValue{}

	for {
		if p.cur().Type == tokenizer.RBRACKET {
			break
		}
		if p.cur().Type == tokenizer.EOF {
			return TagValue{}, newParseError(ErrUnexpectedToken, p.cur().Position, "expected ']'")
		}

		var (
			spreadTok *tokenizer.Token
			spread    Spread
		)
		if p.cur().Type == tokenizer.SPREAD {
			tok := p.cur()
			if tok.Value != "..." {
				return TagValue{}, newParseError(ErrSpreadNotAllowed, tok.Position, "'%s' in a list", tok.Value)
			}
			spreadTok = &tok
			spread = Spread(tok.Value)
			p.advance()
			if !isValueStart(p.cur()) {
				return TagValue{}, newParseError(ErrExpectedValue, p.cur().Position, "after '%s'", tok.Value)
			}
		}

		item, err := p.parseValue(spreadTok, spread, false)
		if err != nil {
			return TagValue{}, err
		}
		children = append(children, item)

		if p.cur().Type == tokenizer.COMMA {
			p.advance()
			continue
		}
		if p.cur().Type != tokenizer.RBRACKET {
			return TagValue{}, newParseError(ErrUnexpectedToken, p.cur().Position, "expected ',' or ']'")
		}
	}

	closeTok := p.cur()
	p.advance()

	return p.compositeValue(openTok, closeTok, KindList, children), nil
}

// parseDict parses `{ (entry (, entry)* ,?)? }` where an entry is
// `key : value` or `** value`. Keys may carry filters, but without
// arguments: inside a key the ':' is the separator.
func (p *parser) parseDict() (TagValue, error) {
	openTok := p.cur()
	p.advance()

	children := []TagValue{}

	for {
		if p.cur().Type == tokenizer.RBRACE {
			break
		}
		if p.cur().Type == tokenizer.EOF {
			return TagValue{}, newParseError(ErrUnexpectedToken, p.cur().Position, "expected '}'")
		}

		if p.cur().Type == tokenizer.SPREAD {
			tok := p.cur()
			if tok.Value != "**" {
				return TagValue{}, newParseError(ErrExpectedDictEntry, tok.Position, "'%s' is not allowed in a dict, use '**'", tok.Value)
			}
			p.advance()
			if !isValueStart(p.cur()) {
				return TagValue{}, newParseError(ErrExpectedValue, p.cur().Position, "after '**'")
			}

			item, err := p.parseValue(&tok, SpreadMapping, false)
			if err != nil {
				return TagValue{}, err
			}
			children = append(children, item)
		} else {
			if !isValueStart(p.cur()) {
				return TagValue{}, newParseError(ErrExpectedDictEntry, p.cur().Position, "got %s", describe(p.cur()))
			}

			key, err := p.parseValue(nil, SpreadNone, true)
			if err != nil {
				return TagValue{}, err
			}

			if p.cur().Type != tokenizer.COLON {
				return TagValue{}, newParseError(ErrExpectedDictColon, p.cur().Position, "got %s", describe(p.cur()))
			}
			p.advance()

			if p.cur().Type == tokenizer.SPREAD || !isValueStart(p.cur()) {
				return TagValue{}, newParseError(ErrExpectedValue, p.cur().Position, "got %s", describe(p.cur()))
			}

			val, err := p.parseValue(nil, SpreadNone, false)
			if err != nil {
				return TagValue{}, err
			}

			children = append(children, key, val)
		}

		if p.cur().Type == tokenizer.COMMA {
			p.advance()
			continue
		}
		if p.cur().Type != tokenizer.RBRACE {
			return TagValue{}, newParseError(ErrUnexpectedToken, p.cur().Position, "expected ',' or '}'")
		}
	}

	closeTok := p.cur()
	p.advance()

	return p.compositeValue(openTok, closeTok, KindDict, children), nil
}

func (p *parser) compositeValue(openTok, closeTok tokenizer.Token, kind ValueKind, children []TagValue) TagValue {
	start := openTok.Position.Offset
	end := closeTok.End

	return TagValue{
		Token: TagToken{
			Token:      p.input[start:end],
			StartIndex: start,
			EndIndex:   end,
			LineCol:    lineColOf(openTok),
		},
		Children:   children,
		Kind:       kind,
		StartIndex: start,
		EndIndex:   end,
		LineCol:    lineColOf(openTok),
	}
}

// parseTemplateString splits a backtick literal into literal fragments and
// embedded ${...} expressions, sub-parsing each expression as a value.
func (p *parser) parseTemplateString() (TagValue, error) {
	tok := p.cur()
	p.advance()

	raw := tok.Value
	base := tok.Position.Offset

	children := []TagValue{}
	segStart := base + 1 // after the opening backtick
	i := 1

	flushLiteral := func(until int) {
		if until <= segStart {
			return
		}
		start := segStart
		children = append(children, TagValue{
			Token: TagToken{
				Token:      p.input[start:until],
				StartIndex: start,
				EndIndex:   until,
				LineCol:    lineColAt(p.input, start),
			},
			Kind:       KindString,
			StartIndex: start,
			EndIndex:   until,
			LineCol:    lineColAt(p.input, start),
		})
	}

	for i < len(raw)-1 {
		switch {
		case raw[i] == '\\' && i+1 < len(raw)-1:
			i += 2
		case raw[i] == '$' && i+1 < len(raw)-1 && raw[i+1] == '{':
			flushLiteral(base + i)

			exprStart := i + 2
			exprEnd := matchInterpolation(raw, exprStart)

			child, err := p.parseInterpolation(base+exprStart, base+exprEnd)
			if err != nil {
				return TagValue{}, err
			}
			children = append(children, child)

			i = exprEnd + 1
			segStart = base + i
		default:
			i++
		}
	}
	flushLiteral(base + len(raw) - 1)

	tt := makeToken(tok)

	return TagValue{
		Token:      tt,
		Children:   children,
		Kind:       KindTemplateString,
		StartIndex: tok.Position.Offset,
		EndIndex:   tok.End,
		LineCol:    lineColOf(tok),
	}, nil
}

// matchInterpolation returns the index of the } closing a ${ that opened at
// start, skipping nested braces and quoted runs. The tokenizer has already
// verified the literal is well formed.
func matchInterpolation(raw string, start int) int {
	depth := 1
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"', '`':
			delim := raw[i]
			for i++; i < len(raw) && raw[i] != delim; i++ {
				if raw[i] == '\\' {
					i++
				}
			}
		case '\\':
			i++
		}
	}
	return len(raw) - 1
}

// parseInterpolation parses input[start:end] as a single spread-free value
func (p *parser) parseInterpolation(start, end int) (TagValue, error) {
	sub, err := newParser(p.input, start, end, nil)
	if err != nil {
		return TagValue{}, err
	}

	if sub.cur().Type == tokenizer.SPREAD || !isValueStart(sub.cur()) {
		return TagValue{}, newParseError(ErrExpectedValue, sub.cur().Position, "in template string interpolation")
	}

	val, err := sub.parseValue(nil, SpreadNone, false)
	if err != nil {
		return TagValue{}, err
	}

	if sub.cur().Type != tokenizer.EOF {
		return TagValue{}, newParseError(ErrUnexpectedToken, sub.cur().Position, "in template string interpolation")
	}

	return val, nil
}

// describe renders a token for error messages
func describe(tok tokenizer.Token) string {
	if tok.Type == tokenizer.EOF {
		return "end of input"
	}
	return "'" + tok.Value + "'"
}
