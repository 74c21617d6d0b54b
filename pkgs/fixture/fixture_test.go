package fixture

import (
	"testing"

	"github.com/guardlang/guard/pkgs/ast"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/parser"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumeFixture = `
- name: encrypted volume passes
  input:
    Resources:
      V:
        Type: AWS::EC2::Volume
        Properties:
          Encrypted: true
  expectations:
    rules:
      default: PASS
- name: unencrypted volume fails
  input:
    Resources:
      V:
        Type: AWS::EC2::Volume
        Properties:
          Encrypted: false
  expectations:
    rules:
      default: FAIL
- name: no volumes skips
  input:
    Resources: {}
  expectations:
    rules:
      default: SKIP
`

func TestLoad_ParsesYAMLFixture(t *testing.T) {
	f, err := Load("volumes.yaml", []byte(volumeFixture))
	require.NoError(t, err)
	require.Len(t, f.Specs, 3)
	assert.Equal(t, "encrypted volume passes", f.Specs[0].Name)
	assert.Equal(t, status.Pass, f.Specs[0].Expectations["default"])
	assert.True(t, f.Specs[0].Input.IsStruct())
}

func TestLoad_AcceptsJSONFixture(t *testing.T) {
	raw := `[{"input":{"Resources":{}},"expectations":{"rules":{"default":"SKIP"}}}]`
	f, err := Load("volumes.json", []byte(raw))
	require.NoError(t, err)
	require.Len(t, f.Specs, 1)

	results, err := Run("r.guard", mustParse(t, `AWS::EC2::Volume Encrypted == true`), f)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "test case #1", results[0].Name)
	assert.True(t, results[0].Passed())
}

func TestLoad_RejectsFixtureMissingExpectations(t *testing.T) {
	raw := `
- input:
    Resources: {}
`
	_, err := Load("broken.yaml", []byte(raw))
	require.Error(t, err)
	assert.True(t, guarderrors.IsType(err, guarderrors.ErrParse))
}

func TestLoad_RejectsUnknownExpectedStatus(t *testing.T) {
	raw := `
- input:
    Resources: {}
  expectations:
    rules:
      default: MAYBE
`
	_, err := Load("broken.yaml", []byte(raw))
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	_, err := Load("broken.yaml", []byte("{unclosed"))
	require.Error(t, err)
	assert.True(t, guarderrors.IsType(err, guarderrors.ErrParse))
}

func mustParse(t *testing.T, src string) *ast.RulesFile {
	t.Helper()
	rf, err := parser.Parse("r.guard", src)
	require.NoError(t, err)
	return rf
}

func TestRun_ComparesEvaluatedStatusesAgainstExpectations(t *testing.T) {
	f, err := Load("volumes.yaml", []byte(volumeFixture))
	require.NoError(t, err)
	rf := mustParse(t, `AWS::EC2::Volume Encrypted == true`)

	results, err := Run("r.guard", rf, f)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Passed(), "case %q should meet its expectation: %+v", r.Name, r.Mismatches)
	}
}

func TestRun_ReportsMismatchesWithExpectedAndGot(t *testing.T) {
	raw := `
- name: wrong expectation
  input:
    Resources:
      V:
        Type: AWS::EC2::Volume
        Properties:
          Encrypted: false
  expectations:
    rules:
      default: PASS
`
	f, err := Load("volumes.yaml", []byte(raw))
	require.NoError(t, err)
	rf := mustParse(t, `AWS::EC2::Volume Encrypted == true`)

	results, err := Run("r.guard", rf, f)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Passed())
	m := results[0].Mismatches[0]
	assert.Equal(t, "default", m.Rule)
	assert.Equal(t, status.Pass, m.Expected)
	assert.Equal(t, status.Fail, m.Got)
}

func TestRun_MissingRuleReportsAsSkipMismatch(t *testing.T) {
	raw := `
- input:
    Resources: {}
  expectations:
    rules:
      no_such_rule: PASS
`
	f, err := Load("volumes.yaml", []byte(raw))
	require.NoError(t, err)
	rf := mustParse(t, `AWS::EC2::Volume Encrypted == true`)

	results, err := Run("r.guard", rf, f)
	require.NoError(t, err)
	require.Len(t, results[0].Mismatches, 1)
	assert.Equal(t, status.Skip, results[0].Mismatches[0].Got)
}
