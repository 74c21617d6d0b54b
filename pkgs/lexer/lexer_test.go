package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type tokenExpectation struct {
	Type  TokenType
	Value string
}

func assertTokens(t *testing.T, src string, want []tokenExpectation) {
	t.Helper()
	toks, err := New(src).TokenizeAll()
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	require.Equal(t, EOF, toks[len(toks)-1].Type)

	got := make([]tokenExpectation, len(toks)-1)
	for i, tok := range toks[:len(toks)-1] {
		got[i] = tokenExpectation{Type: tok.Type, Value: tok.Value}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch for %q (-want +got):\n%s", src, diff)
	}
}

func TestLexer_Comparators(t *testing.T) {
	assertTokens(t, "Encrypted == true", []tokenExpectation{
		{IDENT, "Encrypted"}, {Eq, "=="}, {KwTrue, "true"},
	})
}

func TestLexer_LessVsCustomMessage(t *testing.T) {
	assertTokens(t, "Size < 100", []tokenExpectation{
		{IDENT, "Size"}, {Lt, "<"}, {INT, "100"},
	})
	assertTokens(t, "Size <= 100", []tokenExpectation{
		{IDENT, "Size"}, {Le, "<="}, {INT, "100"},
	})
	assertTokens(t, `Size < 100 <<too big>>`, []tokenExpectation{
		{IDENT, "Size"}, {Lt, "<"}, {INT, "100"}, {CUSTOMMSG, "too big"},
	})
}

func TestLexer_RegexWithEscapedSlash(t *testing.T) {
	assertTokens(t, `/amazonaws\.com\/path$/`, []tokenExpectation{
		{REGEX, `amazonaws\.com/path$`},
	})
}

func TestLexer_VariableReference(t *testing.T) {
	assertTokens(t, "%require_encryption", []tokenExpectation{
		{VARIABLE, "require_encryption"},
	})
}

func TestLexer_RangeLiteral(t *testing.T) {
	assertTokens(t, "r(10,20)", []tokenExpectation{
		{RANGE, "r(10,20)"},
	})
	assertTokens(t, "r[a,z]", []tokenExpectation{
		{RANGE, "r[a,z]"},
	})
}

func TestLexer_IdentifierNotConfusedWithRangePrefix(t *testing.T) {
	assertTokens(t, "rule", []tokenExpectation{{KwRule, "rule"}})
	assertTokens(t, "regionName", []tokenExpectation{{IDENT, "regionName"}})
}

func TestLexer_ModuleAndDoubleColon(t *testing.T) {
	assertTokens(t, "AWS::EC2::Volume::MODULE", []tokenExpectation{
		{IDENT, "AWS"}, {DoubleColon, "::"}, {IDENT, "EC2"}, {DoubleColon, "::"},
		{IDENT, "Volume"}, {DoubleColon, "::"}, {KwModule, "MODULE"},
	})
}

func TestLexer_CommentsAreSkipped(t *testing.T) {
	assertTokens(t, "Encrypted # this is a comment\n== true", []tokenExpectation{
		{IDENT, "Encrypted"}, {Eq, "=="}, {KwTrue, "true"},
	})
}

func TestLexer_StringLiteral(t *testing.T) {
	assertTokens(t, `"hello world"`, []tokenExpectation{{STRING, "hello world"}})
	assertTokens(t, `'single quoted'`, []tokenExpectation{{STRING, "single quoted"}})
}

func TestLexer_FloatAndNegativeNumbers(t *testing.T) {
	assertTokens(t, "-1.5e3", []tokenExpectation{{FLOAT, "-1.5e3"}})
	assertTokens(t, "-10", []tokenExpectation{{INT, "-10"}})
}

func TestLexer_UnterminatedStringIsError(t *testing.T) {
	_, err := New(`"unterminated`).TokenizeAll()
	require.Error(t, err)
}

func TestLexer_UnterminatedCustomMessageIsError(t *testing.T) {
	_, err := New("Size < 1 <<oops").TokenizeAll()
	require.Error(t, err)
}
