package report

import (
	"testing"

	"github.com/guardlang/guard/pkgs/record"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingTrace() *record.Entry {
	rec := record.New()
	file := rec.Start(record.TypeFile, "rules.guard")
	rule := rec.Start(record.TypeRule, "encrypted_volumes")
	clause := rec.Start(record.TypeClause, "this.Encrypted")
	lhs := value.NewBool(false, value.Root().Key("Resources").Key("V").Key("Properties").Key("Encrypted"))
	rhs := value.NewBool(true, value.Root())
	clause.SetComparison(lhs, &rhs)
	clause.SetStatus(status.Fail)
	clause.End()
	rule.SetStatus(status.Fail)
	rule.End()
	file.SetStatus(status.Fail)
	file.End()
	return rec.Root()
}

func TestBuild_FlattensRulesAndStatus(t *testing.T) {
	fr := Build("rules.guard", "template.json", failingTrace())
	assert.Equal(t, "rules.guard", fr.RulesFile)
	assert.Equal(t, "template.json", fr.DataFile)
	assert.Equal(t, "FAIL", fr.Status)
	require.Len(t, fr.Rules, 1)
	assert.Equal(t, "encrypted_volumes", fr.Rules[0].Name)
	assert.Equal(t, "FAIL", fr.Rules[0].Status)
}

func TestBuild_DefaultFailureMessageNamesRulePathObservedExpected(t *testing.T) {
	fr := Build("rules.guard", "template.json", failingTrace())
	require.Len(t, fr.Rules[0].Messages, 1)
	msg := fr.Rules[0].Messages[0]
	assert.Contains(t, msg, "[encrypted_volumes]")
	assert.Contains(t, msg, "/Resources/V/Properties/Encrypted")
	assert.Contains(t, msg, "[false]")
	assert.Contains(t, msg, "[true]")
}

func TestBuild_CustomMessageReplacesDefaultText(t *testing.T) {
	rec := record.New()
	file := rec.Start(record.TypeFile, "rules.guard")
	rule := rec.Start(record.TypeRule, "r")
	clause := rec.Start(record.TypeClause, "this.Encrypted")
	clause.SetCustomMessage("volumes must be encrypted")
	clause.SetStatus(status.Fail)
	clause.End()
	rule.SetStatus(status.Fail)
	rule.End()
	file.SetStatus(status.Fail)
	file.End()

	fr := Build("rules.guard", "d.json", rec.Root())
	require.Len(t, fr.Rules, 1)
	require.Len(t, fr.Rules[0].Messages, 1)
	assert.Equal(t, "volumes must be encrypted", fr.Rules[0].Messages[0])
}

// A dependent rule evaluated on demand records nested under the clause
// that referenced it; Build must still report it exactly once.
func TestBuild_NestedRuleRecordsReportOnce(t *testing.T) {
	rec := record.New()
	file := rec.Start(record.TypeFile, "rules.guard")

	outer := rec.Start(record.TypeRule, "depends_first")
	clause := rec.Start(record.TypeClause, "defined_later")
	inner := rec.Start(record.TypeRule, "defined_later")
	inner.SetStatus(status.Pass)
	inner.End()
	clause.SetStatus(status.Pass)
	clause.End()
	outer.SetStatus(status.Pass)
	outer.End()

	file.SetStatus(status.Pass)
	file.End()

	fr := Build("rules.guard", "d.json", rec.Root())
	require.Len(t, fr.Rules, 2)
	names := []string{fr.Rules[0].Name, fr.Rules[1].Name}
	assert.Equal(t, []string{"depends_first", "defined_later"}, names)
}

func TestBuild_NilEntryReportsSkip(t *testing.T) {
	fr := Build("rules.guard", "d.json", nil)
	assert.Equal(t, "SKIP", fr.Status)
	assert.Nil(t, fr.Trace)
}

func TestSnapshotEntry_MirrorsTraceShape(t *testing.T) {
	fr := Build("rules.guard", "d.json", failingTrace())
	require.NotNil(t, fr.Trace)
	assert.Equal(t, "file", fr.Trace.Type)
	require.Len(t, fr.Trace.Children, 1)
	ruleNode := fr.Trace.Children[0]
	assert.Equal(t, "rule", ruleNode.Type)
	require.Len(t, ruleNode.Children, 1)
	clauseNode := ruleNode.Children[0]
	require.NotNil(t, clauseNode.LHS)
	assert.Equal(t, "bool", clauseNode.LHS.Kind)
	assert.Equal(t, "false", clauseNode.LHS.Repr)
}
