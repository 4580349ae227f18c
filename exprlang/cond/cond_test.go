package cond

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) Node {
	t.Helper()
	node, err := Parse(expr)
	require.NoError(t, err)
	return node
}

func TestComparisonEquality(t *testing.T) {
	node := mustParse(t, "#status = :active")
	env := &Env{
		Names:  map[string]string{"#status": "status"},
		Values: map[string]types.AttributeValue{":active": &types.AttributeValueMemberS{Value: "ACTIVE"}},
		Item:   map[string]types.AttributeValue{"status": &types.AttributeValueMemberS{Value: "ACTIVE"}},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestMissingAttributeIsUnknown(t *testing.T) {
	node := mustParse(t, "#x = :v")
	env := &Env{
		Names:  map[string]string{"#x": "missing"},
		Values: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: "a"}},
		Item:   map[string]types.AttributeValue{},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.Equal(t, Unknown, result)
	require.False(t, result.MatchesCondition())
}

func TestAttributeNotExists(t *testing.T) {
	node := mustParse(t, "attribute_not_exists(pk)")
	env := &Env{Item: map[string]types.AttributeValue{}}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())

	env.Item["pk"] = &types.AttributeValueMemberS{Value: "x"}
	result, err = node.Eval(env)
	require.NoError(t, err)
	require.False(t, result.MatchesCondition())
}

func TestBetweenOnNumbers(t *testing.T) {
	node := mustParse(t, "#n BETWEEN :lo AND :hi")
	env := &Env{
		Names: map[string]string{"#n": "n"},
		Values: map[string]types.AttributeValue{
			":lo": &types.AttributeValueMemberN{Value: "10"},
			":hi": &types.AttributeValueMemberN{Value: "20"},
		},
		Item: map[string]types.AttributeValue{"n": &types.AttributeValueMemberN{Value: "15"}},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())

	env.Item["n"] = &types.AttributeValueMemberN{Value: "25"}
	result, err = node.Eval(env)
	require.NoError(t, err)
	require.False(t, result.MatchesCondition())
}

func TestAndOrNotThreeValued(t *testing.T) {
	node := mustParse(t, "NOT (attribute_exists(a) AND attribute_exists(b))")
	env := &Env{Item: map[string]types.AttributeValue{"a": &types.AttributeValueMemberBOOL{Value: true}}}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestBeginsWithAndContains(t *testing.T) {
	node := mustParse(t, "begins_with(#name, :prefix) AND contains(#tags, :tag)")
	env := &Env{
		Names: map[string]string{"#name": "name", "#tags": "tags"},
		Values: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: "pre"},
			":tag":    &types.AttributeValueMemberS{Value: "b"},
		},
		Item: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: "prefixed-name"},
			"tags": &types.AttributeValueMemberSS{Value: []string{"a", "b", "c"}},
		},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestInOperator(t *testing.T) {
	node := mustParse(t, "#s IN (:a, :b, :c)")
	env := &Env{
		Names: map[string]string{"#s": "s"},
		Values: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: "x"},
			":b": &types.AttributeValueMemberS{Value: "y"},
			":c": &types.AttributeValueMemberS{Value: "z"},
		},
		Item: map[string]types.AttributeValue{"s": &types.AttributeValueMemberS{Value: "y"}},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestSizeFunctionInComparison(t *testing.T) {
	node := mustParse(t, "size(#tags) > :n")
	env := &Env{
		Names:  map[string]string{"#tags": "tags"},
		Values: map[string]types.AttributeValue{":n": &types.AttributeValueMemberN{Value: "2"}},
		Item:   map[string]types.AttributeValue{"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "a"}, &types.AttributeValueMemberS{Value: "b"}, &types.AttributeValueMemberS{Value: "c"}}}},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestAttributeTypeFunction(t *testing.T) {
	node := mustParse(t, "attribute_type(#x, :t)")
	env := &Env{
		Names:  map[string]string{"#x": "x"},
		Values: map[string]types.AttributeValue{":t": &types.AttributeValueMemberS{Value: "N"}},
		Item:   map[string]types.AttributeValue{"x": &types.AttributeValueMemberN{Value: "5"}},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}

func TestNestedPath(t *testing.T) {
	node := mustParse(t, "a.b[1].#c = :v")
	env := &Env{
		Names:  map[string]string{"#c": "c"},
		Values: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: "deep"}},
		Item: map[string]types.AttributeValue{
			"a": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"b": &types.AttributeValueMemberL{Value: []types.AttributeValue{
					&types.AttributeValueMemberNULL{Value: true},
					&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
						"c": &types.AttributeValueMemberS{Value: "deep"},
					}},
				}},
			}},
		},
	}
	result, err := node.Eval(env)
	require.NoError(t, err)
	require.True(t, result.MatchesCondition())
}
