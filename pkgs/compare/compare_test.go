package compare

import (
	"testing"

	"github.com/guardlang/guard/pkgs/ast"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cmp(op ast.Op) ast.Comparator { return ast.Comparator{Op: op} }

func TestEval_ScalarEquality(t *testing.T) {
	lhs := value.NewInt(5, value.Root())
	rhs := value.NewInt(5, value.Root())
	ok, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEval_ComparatorNegationFlipsResult(t *testing.T) {
	lhs := value.NewInt(5, value.Root())
	rhs := value.NewInt(5, value.Root())
	c := ast.Comparator{Op: ast.OpEq, Negated: true}
	ok, err := Eval(c, lhs, &rhs, All)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBroadcast_ScalarAgainstListRequiresAllByDefault(t *testing.T) {
	lhs := value.NewList([]value.Value{
		value.NewInt(10, value.Root().Index(0)),
		value.NewInt(20, value.Root().Index(1)),
	}, value.Root())
	rhs := value.NewInt(5, value.Root())
	ok, err := Eval(cmp(ast.OpGt), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok, "every element of [10,20] is > 5")

	rhsBig := value.NewInt(15, value.Root())
	ok, err = Eval(cmp(ast.OpGt), lhs, &rhsBig, All)
	require.NoError(t, err)
	assert.False(t, ok, "10 is not > 15, and ALL requires every element")

	ok, err = Eval(cmp(ast.OpGt), lhs, &rhsBig, Some)
	require.NoError(t, err)
	assert.True(t, ok, "20 is > 15, and SOME only needs one element")
}

func TestBroadcast_ListVsListPairwise(t *testing.T) {
	lhs := value.NewList([]value.Value{
		value.NewInt(1, value.Root().Index(0)),
		value.NewInt(2, value.Root().Index(1)),
	}, value.Root())
	rhs := value.NewList([]value.Value{
		value.NewInt(1, value.Root().Index(0)),
		value.NewInt(2, value.Root().Index(1)),
	}, value.Root())
	ok, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBroadcast_ListVsListUnequalLengthFailsWithoutError(t *testing.T) {
	lhs := value.NewList([]value.Value{value.NewInt(1, value.Root())}, value.Root())
	rhs := value.NewList([]value.Value{
		value.NewInt(1, value.Root()),
		value.NewInt(3, value.Root()),
	}, value.Root())
	ok, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Two whole lists compared with == go through value.Equal directly,
// so the trailing nested-singleton reshape it documents is reachable from a real list-vs-list comparison, not
// just from two same-index elements that each happen to be singleton
// lists.
func TestBroadcast_EqualityReshapesTrailingSingletonList(t *testing.T) {
	lhs := value.NewList([]value.Value{
		value.NewInt(1, value.Root().Index(0)),
		value.NewList([]value.Value{value.NewInt(2, value.Root())}, value.Root().Index(1)),
	}, value.Root())
	rhs := value.NewList([]value.Value{
		value.NewInt(1, value.Root().Index(0)),
		value.NewInt(2, value.Root().Index(1)),
	}, value.Root())
	ok, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok, "[1,[2]] == [1,2] via the legacy reshape rule")
}

func TestBroadcast_NotEqualOnListsUsesWholeListEquality(t *testing.T) {
	lhs := value.NewList([]value.Value{value.NewInt(1, value.Root())}, value.Root())
	rhs := value.NewList([]value.Value{value.NewInt(2, value.Root())}, value.Root())
	ok, err := Eval(cmp(ast.OpNe), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalIn_ScalarMembership(t *testing.T) {
	lhs := value.NewString("us-east-1a", value.Root())
	rhs := value.NewList([]value.Value{
		value.NewString("us-east-1a", value.Root().Index(0)),
		value.NewString("us-east-1b", value.Root().Index(1)),
	}, value.Root())
	ok, err := Eval(cmp(ast.OpIn), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok)

	miss := value.NewString("us-west-2a", value.Root())
	ok, err = Eval(cmp(ast.OpIn), miss, &rhs, All)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalIn_ListLHSRespectsMatchAll(t *testing.T) {
	lhs := value.NewList([]value.Value{
		value.NewString("a", value.Root().Index(0)),
		value.NewString("z", value.Root().Index(1)),
	}, value.Root())
	rhs := value.NewList([]value.Value{value.NewString("a", value.Root())}, value.Root())

	allOK, err := Eval(cmp(ast.OpIn), lhs, &rhs, All)
	require.NoError(t, err)
	assert.False(t, allOK, "z is not a member, so ALL must fail")

	someOK, err := Eval(cmp(ast.OpIn), lhs, &rhs, Some)
	require.NoError(t, err)
	assert.True(t, someOK, "a is a member, so SOME succeeds")
}

func TestEvalIn_NegationAppliesOnceAfterAggregation(t *testing.T) {
	lhs := value.NewString("missing", value.Root())
	rhs := value.NewList([]value.Value{value.NewString("present", value.Root())}, value.Root())
	notIn := ast.Comparator{Op: ast.OpIn, Negated: true}
	ok, err := Eval(notIn, lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok, "lhs is not a member, so !IN passes")
}

func TestRangeRelation_LessThanMeansMembership(t *testing.T) {
	rng, err := value.ParseRangeLiteral("r(10,20)", value.Root())
	require.NoError(t, err)
	inside := value.NewInt(15, value.Root())
	ok, err := Eval(cmp(ast.OpLt), inside, &rng, All)
	require.NoError(t, err)
	assert.True(t, ok)

	boundary := value.NewInt(10, value.Root())
	ok, err = Eval(cmp(ast.OpLt), boundary, &rng, All)
	require.NoError(t, err)
	assert.False(t, ok, "r(10,20) is exclusive on the lower bound")
}

func TestRangeRelation_InclusiveBoundsAdmitEndpoints(t *testing.T) {
	rng, err := value.ParseRangeLiteral("r[10,20]", value.Root())
	require.NoError(t, err)
	lower := value.NewInt(10, value.Root())
	ok, err := Eval(cmp(ast.OpLe), lower, &rng, All)
	require.NoError(t, err)
	assert.True(t, ok)

	upper := value.NewInt(20, value.Root())
	ok, err = Eval(cmp(ast.OpLe), upper, &rng, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRangeRelation_GreaterThanAgainstRangeIsRejected(t *testing.T) {
	rng, err := value.ParseRangeLiteral("r(10,20)", value.Root())
	require.NoError(t, err)
	v := value.NewInt(15, value.Root())
	_, err = Eval(cmp(ast.OpGt), v, &rng, All)
	assert.Error(t, err)
}

func TestEvalUnary_ExistsAndEmpty(t *testing.T) {
	ok, err := Eval(cmp(ast.OpExists), value.NewInt(1, value.Root()), nil, All)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(cmp(ast.OpExists), value.NewNull(value.Root()), nil, All)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Eval(cmp(ast.OpEmpty), value.NewList(nil, value.Root()), nil, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalUnary_TypePredicates(t *testing.T) {
	ok, err := Eval(cmp(ast.OpIsString), value.NewString("x", value.Root()), nil, All)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(cmp(ast.OpIsInt), value.NewString("x", value.Root()), nil, All)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareScalar_StringEqualsRegex(t *testing.T) {
	lhs := value.NewString("bucket.amazonaws.com", value.Root())
	rhs := value.NewRegex(`amazonaws\.com$`, value.Root())
	ok, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReduce_EmptyListMatchesAllButNotSome(t *testing.T) {
	lhs := value.NewList(nil, value.Root())
	rhs := value.NewInt(1, value.Root())
	allOK, err := Eval(cmp(ast.OpEq), lhs, &rhs, All)
	require.NoError(t, err)
	assert.True(t, allOK, "vacuous truth: no element violates ALL")

	someOK, err := Eval(cmp(ast.OpEq), lhs, &rhs, Some)
	require.NoError(t, err)
	assert.False(t, someOK, "no element can satisfy SOME")
}
