package tokenizer

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTokenIterator(t *testing.T) {
	input := `my_comp "title" key=val|upper`
	tokenizer := NewTagTokenizer(input)

	expectedTypes := []TokenType{
		IDENT, WHITESPACE, STRING, WHITESPACE, IDENT, EQUAL, IDENT, PIPE, IDENT, EOF,
	}

	var actualTypes []TokenType
	for token, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestTokenIteratorWithOptions(t *testing.T) {
	input := "my_comp {# note #} val"
	tokenizer := NewTagTokenizer(input, TokenizerOptions{
		SkipWhitespace: true,
		SkipComments:   true,
	})

	expectedTypes := []TokenType{IDENT, IDENT, EOF}

	var actualTypes []TokenType
	for token, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestTokenValuesAndSpans(t *testing.T) {
	input := `name key='a b' n=1.5`
	tokenizer := NewTagTokenizer(input, TokenizerOptions{SkipWhitespace: true})

	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	expected := []Token{
		{Type: IDENT, Value: "name", Position: Position{Line: 1, Column: 1, Offset: 0}, End: 4},
		{Type: IDENT, Value: "key", Position: Position{Line: 1, Column: 6, Offset: 5}, End: 8},
		{Type: EQUAL, Value: "=", Position: Position{Line: 1, Column: 9, Offset: 8}, End: 9},
		{Type: STRING, Value: "'a b'", Position: Position{Line: 1, Column: 10, Offset: 9}, End: 14},
		{Type: IDENT, Value: "n", Position: Position{Line: 1, Column: 16, Offset: 15}, End: 16},
		{Type: EQUAL, Value: "=", Position: Position{Line: 1, Column: 17, Offset: 16}, End: 17},
		{Type: NUMBER, Value: "1.5", Position: Position{Line: 1, Column: 18, Offset: 17}, End: 20, IsFloat: true},
		{Type: EOF, Value: "", Position: Position{Line: 1, Column: 21, Offset: 20}, End: 20},
	}

	assert.Equal(t, expected, tokens)
}

func TestSpreadMarkers(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"...attrs", []string{"...", "attrs"}},
		{"**attrs", []string{"**", "attrs"}},
		{"*attrs", []string{"*", "attrs"}},
	}

	for _, tt := range tests {
		tokenizer := NewTagTokenizer(tt.input, TokenizerOptions{SkipWhitespace: true})
		tokens, err := tokenizer.AllTokens()
		assert.NoError(t, err)

		var values []string
		for _, token := range tokens {
			if token.Type == EOF {
				break
			}
			values = append(values, token.Value)
		}
		assert.Equal(t, tt.expected, values)

		assert.Equal(t, SPREAD, tokens[0].Type)
	}
}

func TestDotVsSpread(t *testing.T) {
	tokenizer := NewTagTokenizer("a.b", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, []TokenType{IDENT, DOT, IDENT, EOF}, tokenTypes(tokens))

	tokenizer = NewTagTokenizer("..a", TokenizerOptions{SkipWhitespace: true})
	_, err = tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedCharacter))
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		isFloat bool
	}{
		{"0", false},
		{"123", false},
		{"-42", false},
		{"4.5", true},
		{"-2.5", true},
		{"1e3", true},
		{"1.5e-10", true},
		{"1E+2", true},
	}

	for _, tt := range tests {
		tokenizer := NewTagTokenizer(tt.input)
		tokens, err := tokenizer.AllTokens()
		assert.NoError(t, err)
		assert.Equal(t, NUMBER, tokens[0].Type)
		assert.Equal(t, tt.input, tokens[0].Value)
		assert.Equal(t, tt.isFloat, tokens[0].IsFloat)
	}
}

func TestInvalidExponent(t *testing.T) {
	tokenizer := NewTagTokenizer("1e+")
	_, err := tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidNumber))
}

func TestStringEscapes(t *testing.T) {
	tokenizer := NewTagTokenizer(`"a \"quoted\" text"`)
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, STRING, tokens[0].Type)
	assert.Equal(t, `"a \"quoted\" text"`, tokens[0].Value)
}

func TestUnterminatedString(t *testing.T) {
	tokenizer := NewTagTokenizer(`'abc`)
	_, err := tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedString))

	var lexErr *Error
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 1, lexErr.Pos.Line)
	assert.Equal(t, 1, lexErr.Pos.Column)
}

func TestUnterminatedComment(t *testing.T) {
	tokenizer := NewTagTokenizer("val {# never closed")
	_, err := tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedComment))
}

func TestTemplateString(t *testing.T) {
	input := "`Hello ${name}!`"
	tokenizer := NewTagTokenizer(input)
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, TSTRING, tokens[0].Type)
	assert.Equal(t, input, tokens[0].Value)
}

func TestTemplateStringNestedBraces(t *testing.T) {
	// The dict braces and the quoted '}' inside the interpolation must not
	// close the literal early.
	input := "`v: ${ {\"a\": \"}\"} }` rest"
	tokenizer := NewTagTokenizer(input, TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, []TokenType{TSTRING, IDENT, EOF}, tokenTypes(tokens))
	assert.Equal(t, "rest", tokens[1].Value)
}

func TestUnterminatedTemplateString(t *testing.T) {
	tokenizer := NewTagTokenizer("`abc")
	_, err := tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedTemplateString))

	tokenizer = NewTagTokenizer("`abc ${x")
	_, err = tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedInterpolation))
}

func TestUnexpectedCharacter(t *testing.T) {
	tokenizer := NewTagTokenizer("café")
	_, err := tokenizer.AllTokens()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedCharacter))
}

func TestMultilinePositions(t *testing.T) {
	input := "name\n  key=val"
	tokenizer := NewTagTokenizer(input, TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 7}, tokens[1].Position)
	assert.Equal(t, Position{Line: 2, Column: 7, Offset: 11}, tokens[3].Position)
}

func TestScanRegion(t *testing.T) {
	input := "{% name key %}"
	tokenizer := NewTagTokenizer(input, TokenizerOptions{
		SkipWhitespace: true,
		Start:          2,
		End:            len(input) - 2,
	})

	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, []TokenType{IDENT, IDENT, EOF}, tokenTypes(tokens))

	// Offsets and columns stay relative to the whole input.
	assert.Equal(t, Position{Line: 1, Column: 4, Offset: 3}, tokens[0].Position)
	assert.Equal(t, 7, tokens[0].End)
}

func TestMultibyteColumns(t *testing.T) {
	// The ö is two bytes but one column wide.
	input := "name 'ö' val"
	tokenizer := NewTagTokenizer(input, TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, Position{Line: 1, Column: 6, Offset: 5}, tokens[1].Position)
	assert.Equal(t, 9, tokens[1].End)
	assert.Equal(t, Position{Line: 1, Column: 10, Offset: 10}, tokens[2].Position)
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, 0, len(tokens))
	for _, token := range tokens {
		types = append(types, token.Type)
	}
	return types
}
