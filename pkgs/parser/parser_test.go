package parser

import (
	"testing"

	"github.com/guardlang/guard/pkgs/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareTypeBlockBecomesDefaultRule(t *testing.T) {
	file, err := Parse("t", `AWS::EC2::Volume Encrypted == true`)
	require.NoError(t, err)
	require.Len(t, file.Rules, 1)
	assert.Equal(t, ast.DefaultRuleName, file.Rules[0].Name)

	require.Len(t, file.Rules[0].Block.Conjunctions, 1)
	row := file.Rules[0].Block.Conjunctions[0]
	require.Len(t, row, 1)
	tb, ok := row[0].(ast.TypeBlockRuleClause)
	require.True(t, ok)
	assert.Equal(t, "AWS::EC2::Volume", tb.Clause.TypeName)

	innerRow := tb.Clause.Block.Conjunctions[0]
	require.Len(t, innerRow, 1)
	clauseGuard, ok := innerRow[0].(ast.ClauseGuard)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, clauseGuard.Clause.Comparator.Op)
	assert.Equal(t, []ast.QueryPart{ast.Key{Name: "Encrypted"}}, clauseGuard.Clause.Query.Parts)
}

func TestParse_ThreeSegmentTypeNameAndModule(t *testing.T) {
	file, err := Parse("t", `AWS::EC2::Volume::MODULE Encrypted == true`)
	require.NoError(t, err)
	tb := file.Rules[0].Block.Conjunctions[0][0].(ast.TypeBlockRuleClause)
	assert.Equal(t, "AWS::EC2::Volume::MODULE", tb.Clause.TypeName)
}

func TestParse_NamedRuleBlockWithLetBinding(t *testing.T) {
	file, err := Parse("t", `
let required = true
rule encrypted_volumes {
  AWS::EC2::Volume Encrypted == %required
}
`)
	require.NoError(t, err)
	require.Len(t, file.Assignments, 1)
	assert.Equal(t, "required", file.Assignments[0].Name)

	require.Len(t, file.Rules, 1)
	assert.Equal(t, "encrypted_volumes", file.Rules[0].Name)
}

func TestParse_NegationAndCustomMessage(t *testing.T) {
	file, err := Parse("t", `not Encrypted == false <<must be encrypted>>`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	assert.True(t, clause.Negation)
	assert.Equal(t, "must be encrypted", clause.CustomMessage)
}

func TestParse_DisjunctionWithOr(t *testing.T) {
	file, err := Parse("t", `Size < 100 or Size == 0`)
	require.NoError(t, err)
	row := file.Rules[0].Block.Conjunctions[0]
	require.Len(t, row, 2)
}

func TestParse_NamedRuleReference(t *testing.T) {
	file, err := Parse("t", `
rule base {
  Encrypted == true
}
rule dependent {
  base
}
`)
	require.NoError(t, err)
	require.Len(t, file.Rules, 2)
	dep := file.Rules[1].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.NamedRuleGuard).Clause
	assert.Equal(t, "base", dep.DependentRule)
}

func TestParse_SomeQuantifier(t *testing.T) {
	file, err := Parse("t", `SOME Tags.*.Key == "env"`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	assert.False(t, clause.Query.MatchAll)
}

func TestParse_InOperatorWithListLiteral(t *testing.T) {
	file, err := Parse("t", `AvailabilityZone IN ["us-east-1a", "us-east-1b"]`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	assert.Equal(t, ast.OpIn, clause.Comparator.Op)
	lit, ok := clause.CompareWith.(ast.LiteralValue)
	require.True(t, ok)
	assert.True(t, lit.Value.IsList())
	assert.Len(t, lit.Value.List(), 2)
}

func TestParse_UnaryComparators(t *testing.T) {
	file, err := Parse("t", `Tags EXISTS`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	assert.Equal(t, ast.OpExists, clause.Comparator.Op)
	assert.Nil(t, clause.CompareWith)
}

func TestParse_BlockClauseOverFilteredSelection(t *testing.T) {
	file, err := Parse("t", `
Tags[Key == "env"] {
  Value == "prod"
}
`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.BlockGuard).Clause
	require.Len(t, clause.Query.Parts, 2)
	filter, ok := clause.Query.Parts[1].(ast.Filter)
	require.True(t, ok)
	require.Len(t, filter.Conjunctions, 1)
}

func TestParse_MapKeyFilterOnBareComparator(t *testing.T) {
	file, err := Parse("t", `Values[== "x"] EXISTS`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	mkf, ok := clause.Query.Parts[1].(ast.MapKeyFilter)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, mkf.Comparator.Op)
	assert.Equal(t, ast.OpExists, clause.Comparator.Op)
}

func TestParse_WhenGatedRule(t *testing.T) {
	file, err := Parse("t", `
rule conditional when Environment == "prod" {
  Encrypted == true
}
`)
	require.NoError(t, err)
	require.NotNil(t, file.Rules[0].Conditions)
}

func TestParse_MissingComparatorIsError(t *testing.T) {
	_, err := Parse("t", `Encrypted.Foo`)
	assert.Error(t, err)
}

func TestParse_UnterminatedBlockIsError(t *testing.T) {
	_, err := Parse("t", `rule r { Encrypted == true`)
	assert.Error(t, err)
}

func TestParse_NamedRuleTerminatedByNewline(t *testing.T) {
	file, err := Parse("t", `
rule base {
  Encrypted == true
}
rule dependent {
  base
  Size < 100
}
`)
	require.NoError(t, err)
	require.Len(t, file.Rules, 2)
	dep := file.Rules[1].Block
	require.Len(t, dep.Conjunctions, 2)
	named := dep.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.NamedRuleGuard).Clause
	assert.Equal(t, "base", named.DependentRule)
}

func TestParse_NamedRuleInWhenConditionsBeforeBlock(t *testing.T) {
	file, err := Parse("t", `
rule base {
  Encrypted == true
}
rule gated when base {
  Size < 100
}
`)
	require.NoError(t, err)
	gated := file.Rules[1]
	require.NotNil(t, gated.Conditions)
	named := gated.Conditions.Conjunctions[0][0].(ast.NamedRuleGuard).Clause
	assert.Equal(t, "base", named.DependentRule)
}

func TestParse_BareWordListLiteral(t *testing.T) {
	file, err := Parse("t", `let zones = [us-east-1a, us-east-1b]`)
	require.NoError(t, err)
	require.Len(t, file.Assignments, 1)
	lit := file.Assignments[0].Value.(ast.LiteralValue)
	require.True(t, lit.Value.IsList())
	items := lit.Value.List()
	require.Len(t, items, 2)
	assert.Equal(t, "us-east-1a", items[0].Str())
}

func TestParse_NotEmptySuffixOpensBlockClause(t *testing.T) {
	file, err := Parse("t", `
Tags[*] not EMPTY {
  Key EXISTS
}
`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.BlockGuard).Clause
	assert.True(t, clause.NotEmptySuffix)
}

func TestParse_ErrorCarriesLocationAndContext(t *testing.T) {
	_, err := Parse("broken.guard", "rule r {\n  Encrypted ==\n}")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "broken.guard", pe.File)
	assert.Equal(t, 3, pe.Line)
	assert.NotEmpty(t, pe.Context)
}

func TestParse_LiteralMapValue(t *testing.T) {
	file, err := Parse("t", `Tags == {env: "prod", team: "infra"}`)
	require.NoError(t, err)
	clause := file.Rules[0].Block.Conjunctions[0][0].(ast.ClauseRuleClause).Clause.(ast.ClauseGuard).Clause
	lit := clause.CompareWith.(ast.LiteralValue)
	assert.True(t, lit.Value.IsStruct())
	v, ok := lit.Value.MapGet("env")
	require.True(t, ok)
	assert.Equal(t, "prod", v.Str())
}
