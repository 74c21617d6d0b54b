package scope

import (
	"testing"

	"github.com/guardlang/guard/pkgs/ast"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithRegion() value.Value {
	m := value.NewMap(value.Root())
	m.MapSet("Region", value.NewString("us-east-1", value.Root().Key("Region")))
	return m
}

func TestResolveVariable_LiteralBindingReturnsSingleton(t *testing.T) {
	rf := &ast.RulesFile{Assignments: []ast.LetExpr{{
		Name:  "expected",
		Value: ast.LiteralValue{Value: value.NewBool(true, value.Root())},
	}}}
	sc := NewRoot(rf, docWithRegion())

	vals, err := sc.ResolveVariable("expected")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.True(t, vals[0].Bool())
}

func TestResolveVariable_QueryBindingResolvesLazilyAndMemoizes(t *testing.T) {
	rf := &ast.RulesFile{Assignments: []ast.LetExpr{{
		Name: "region",
		Value: ast.AccessClause{Query: ast.AccessQuery{
			Parts:    []ast.QueryPart{ast.Key{Name: "Region"}},
			MatchAll: true,
		}},
	}}}
	sc := NewRoot(rf, docWithRegion())

	first, err := sc.ResolveVariable("region")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "us-east-1", first[0].Str())

	// second lookup comes from the memo, not a re-resolution
	second, err := sc.ResolveVariable("region")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveVariable_ChildFallsThroughToParentOnMiss(t *testing.T) {
	rf := &ast.RulesFile{Assignments: []ast.LetExpr{{
		Name:  "outer",
		Value: ast.LiteralValue{Value: value.NewInt(1, value.Root())},
	}}}
	sc := NewRoot(rf, docWithRegion())
	child := sc.Child()
	child.Bind(ast.LetExpr{Name: "inner", Value: ast.LiteralValue{Value: value.NewInt(2, value.Root())}})

	inner, err := child.ResolveVariable("inner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner[0].Int())

	outer, err := child.ResolveVariable("outer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), outer[0].Int())

	// the parent never sees the child's bindings
	_, err = sc.ResolveVariable("inner")
	assert.Error(t, err)
}

func TestResolveVariable_ChildBindingShadowsParent(t *testing.T) {
	rf := &ast.RulesFile{Assignments: []ast.LetExpr{{
		Name:  "x",
		Value: ast.LiteralValue{Value: value.NewInt(1, value.Root())},
	}}}
	sc := NewRoot(rf, docWithRegion())
	child := sc.Child()
	child.Bind(ast.LetExpr{Name: "x", Value: ast.LiteralValue{Value: value.NewInt(9, value.Root())}})

	vals, err := child.ResolveVariable("x")
	require.NoError(t, err)
	assert.Equal(t, int64(9), vals[0].Int())
}

func TestResolveVariable_UnboundNameIsMissingVariableError(t *testing.T) {
	sc := NewRoot(&ast.RulesFile{}, docWithRegion())
	_, err := sc.ResolveVariable("nope")
	require.Error(t, err)
	assert.True(t, guarderrors.IsType(err, guarderrors.ErrMissingVariable))
}

func TestRuleStatusCache_BeginEndAndCycleDetection(t *testing.T) {
	rf := &ast.RulesFile{Rules: []ast.Rule{{Name: "a"}, {Name: "b"}}}
	sc := NewRoot(rf, docWithRegion())

	_, ok := sc.RuleStatus("a")
	assert.False(t, ok)

	require.NoError(t, sc.BeginRule("a"))
	err := sc.BeginRule("a")
	require.Error(t, err)
	assert.True(t, guarderrors.IsType(err, guarderrors.ErrCycle))

	sc.EndRule("a", status.Pass)
	st, ok := sc.RuleStatus("a")
	require.True(t, ok)
	assert.Equal(t, status.Pass, st)

	// finished rules can be consulted again without tripping the cycle
	// detector
	require.NoError(t, sc.BeginRule("a"))
	sc.EndRule("a", status.Pass)
}

func TestRuleStatusCache_VisibleFromNestedChildScopes(t *testing.T) {
	rf := &ast.RulesFile{Rules: []ast.Rule{{Name: "a"}}}
	sc := NewRoot(rf, docWithRegion())
	require.NoError(t, sc.BeginRule("a"))
	sc.EndRule("a", status.Fail)

	grandchild := sc.Child().Child()
	st, ok := grandchild.RuleStatus("a")
	require.True(t, ok)
	assert.Equal(t, status.Fail, st)

	r, ok := grandchild.Rule("a")
	require.True(t, ok)
	assert.Equal(t, "a", r.Name)
}

func TestChildWithRoot_RebasesQueriesButKeepsBindings(t *testing.T) {
	rf := &ast.RulesFile{Assignments: []ast.LetExpr{{
		Name:  "flag",
		Value: ast.LiteralValue{Value: value.NewBool(true, value.Root())},
	}}}
	sc := NewRoot(rf, docWithRegion())

	elem := value.NewMap(value.Root().Key("Resources").Key("V"))
	elem.MapSet("Type", value.NewString("AWS::EC2::Volume", value.Root()))
	child := sc.ChildWithRoot(elem)

	assert.Equal(t, "AWS::EC2::Volume", func() string {
		v, _ := child.Root().MapGet("Type")
		return v.Str()
	}())

	vals, err := child.ResolveVariable("flag")
	require.NoError(t, err)
	assert.True(t, vals[0].Bool())
}
