package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSpreadTopLevel(t *testing.T) {
	tag, err := ParseTag("{% component ...[val1] %}")
	assert.NoError(t, err)

	list := TagValue{
		Token: tok("[val1]", 16, 22, 1, 17),
		Children: []TagValue{
			simpleValue(KindVariable, tok("val1", 17, 21, 1, 18)),
		},
		Kind:       KindList,
		Spread:     SpreadRest,
		StartIndex: 13,
		EndIndex:   22,
		LineCol:    LineCol{Line: 1, Column: 14},
	}

	expected := &Tag{
		Name: tok("component", 3, 12, 1, 4),
		Attrs: []TagAttr{
			{
				Value:      list,
				StartIndex: 13,
				EndIndex:   22,
				LineCol:    LineCol{Line: 1, Column: 14},
			},
		},
		Syntax:     SyntaxDjango,
		StartIndex: 0,
		EndIndex:   25,
		LineCol:    LineCol{Line: 1, Column: 4},
	}

	assert.Equal(t, expected, tag)
}

func TestSpreadTopLevelMarkers(t *testing.T) {
	tag, err := ParseTag("{% t ...rest *args **opts %}")
	assert.NoError(t, err)

	assert.Equal(t, 3, len(tag.Attrs))
	assert.Equal(t, SpreadRest, tag.Attrs[0].Value.Spread)
	assert.Equal(t, SpreadIterable, tag.Attrs[1].Value.Spread)
	assert.Equal(t, SpreadMapping, tag.Attrs[2].Value.Spread)
}

func TestDictSpread(t *testing.T) {
	tag, err := ParseTag("{% component data={ **spread } %}")
	assert.NoError(t, err)

	child := simpleValue(KindVariable, tok("spread", 22, 28, 1, 23))
	child.Spread = SpreadMapping
	child.StartIndex = 20
	child.LineCol = LineCol{Line: 1, Column: 21}

	dict := TagValue{
		Token:      tok("{ **spread }", 18, 30, 1, 19),
		Children:   []TagValue{child},
		Kind:       KindDict,
		StartIndex: 18,
		EndIndex:   30,
		LineCol:    LineCol{Line: 1, Column: 19},
	}

	expected := &Tag{
		Name: tok("component", 3, 12, 1, 4),
		Attrs: []TagAttr{
			keyword(tok("data", 13, 17, 1, 14), dict),
		},
		Syntax:     SyntaxDjango,
		StartIndex: 0,
		EndIndex:   33,
		LineCol:    LineCol{Line: 1, Column: 4},
	}

	assert.Equal(t, expected, tag)
}

func TestDictSpreadBetweenPairs(t *testing.T) {
	tag, err := ParseTag(`{% component data={ "key": val, **spread, "key2": val2 } %}`)
	assert.NoError(t, err)

	dict := tag.Attrs[0].Value
	assert.Equal(t, 5, len(dict.Children))
	assert.Equal(t, SpreadNone, dict.Children[0].Spread)
	assert.Equal(t, SpreadMapping, dict.Children[2].Spread)
	assert.Equal(t, "spread", dict.Children[2].Token.Token)
	assert.Equal(t, "key2", dict.Children[3].Token.Token)
}

// A `|abc: 123` after a dict spread is a filter with an argument: spread
// entries take no value, so the ':' cannot be a key separator there.
func TestDictSpreadWithFilterArg(t *testing.T) {
	tag, err := ParseTag("{% component data={**spread|abc: 123 } %}")
	assert.NoError(t, err)

	dict := tag.Attrs[0].Value
	assert.Equal(t, tok("{**spread|abc: 123 }", 18, 38, 1, 19), dict.Token)
	assert.Equal(t, 1, len(dict.Children))

	child := dict.Children[0]
	assert.Equal(t, tok("spread", 21, 27, 1, 22), child.Token)
	assert.Equal(t, SpreadMapping, child.Spread)
	assert.Equal(t, 19, child.StartIndex)
	assert.Equal(t, 36, child.EndIndex)

	assert.Equal(t, 1, len(child.Filters))
	filter := child.Filters[0]
	assert.Equal(t, tok("abc", 28, 31, 1, 29), filter.Token)
	assert.Equal(t, 27, filter.StartIndex)
	assert.Equal(t, 36, filter.EndIndex)

	arg := filter.Arg
	assert.NotZero(t, arg)
	assert.Equal(t, tok("123", 33, 36, 1, 34), arg.Token)
	assert.Equal(t, KindInt, arg.Kind)
	assert.Equal(t, 31, arg.StartIndex)
	assert.Equal(t, 36, arg.EndIndex)
}

// Inside brackets and braces the spread marker may be separated from its
// value; at the top level it may not.
func TestSpreadWhitespaceInContainers(t *testing.T) {
	tag, err := ParseTag(`{% component dict={"a": "b", ** my_attr} list=["a", ... my_list] %}`)
	assert.NoError(t, err)

	dict := tag.Attrs[0].Value
	assert.Equal(t, 3, len(dict.Children))

	spread := dict.Children[2]
	assert.Equal(t, tok("my_attr", 32, 39, 1, 33), spread.Token)
	assert.Equal(t, SpreadMapping, spread.Spread)
	assert.Equal(t, 29, spread.StartIndex)
	assert.Equal(t, 39, spread.EndIndex)

	list := tag.Attrs[1].Value
	assert.Equal(t, 2, len(list.Children))

	splat := list.Children[1]
	assert.Equal(t, tok("my_list", 56, 63, 1, 57), splat.Token)
	assert.Equal(t, SpreadRest, splat.Spread)
	assert.Equal(t, 52, splat.StartIndex)
	assert.Equal(t, 63, splat.EndIndex)
}

func TestSpreadInList(t *testing.T) {
	tag, err := ParseTag("{% component [ ...[val1], val2, ...val3 ] %}")
	assert.NoError(t, err)

	list := tag.Attrs[0].Value
	assert.Equal(t, 3, len(list.Children))
	assert.Equal(t, SpreadRest, list.Children[0].Spread)
	assert.Equal(t, KindList, list.Children[0].Kind)
	assert.Equal(t, SpreadNone, list.Children[1].Spread)
	assert.Equal(t, SpreadRest, list.Children[2].Spread)
}

func TestSpreadWithFilters(t *testing.T) {
	tag, err := ParseTag("{% t ...spread_var|dict_filter %}")
	assert.NoError(t, err)

	value := tag.Attrs[0].Value
	assert.Equal(t, SpreadRest, value.Spread)
	assert.Equal(t, "spread_var", value.Token.Token)
	assert.Equal(t, 1, len(value.Filters))
	assert.Equal(t, "dict_filter", value.Filters[0].Token.Token)
}
