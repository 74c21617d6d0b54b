package value

import (
	"strconv"
	"strings"

	guarderrors "github.com/guardlang/guard/pkgs/errors"
)

// ParseRangeLiteral decodes the raw text of a range literal token
// (e.g. "r(10,20)", "r[10, 20)", "r(a,z]") into a RangeInt/RangeFloat/
// RangeChar Value, honoring open/close bracket inclusivity. Bound type is chosen by trying float, then int, then a bare
// single-character bound, in that order, matching the lexer's own
// literal-parsing precedence.
func ParseRangeLiteral(raw string, p Path) (Value, error) {
	if len(raw) < 4 || raw[0] != 'r' {
		return Value{}, guarderrors.New(guarderrors.ErrParse, "malformed range literal: "+raw)
	}
	body := raw[1:]
	open := body[0]
	shut := body[len(body)-1]
	if (open != '(' && open != '[') || (shut != ')' && shut != ']') {
		return Value{}, guarderrors.New(guarderrors.ErrParse, "malformed range literal: "+raw)
	}
	inner := body[1 : len(body)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return Value{}, guarderrors.New(guarderrors.ErrParse, "range literal requires exactly two bounds: "+raw)
	}
	lowerText := strings.TrimSpace(parts[0])
	upperText := strings.TrimSpace(parts[1])

	var bits uint8
	if open == '[' {
		bits |= LowerInclusive
	}
	if shut == ']' {
		bits |= UpperInclusive
	}

	if lf, uf, ok := tryFloatBounds(lowerText, upperText); ok {
		return NewRangeFloat(lf, uf, bits, p), nil
	}
	if li, ui, ok := tryIntBounds(lowerText, upperText); ok {
		return NewRangeInt(li, ui, bits, p), nil
	}
	if lc, uc, ok := tryCharBounds(lowerText, upperText); ok {
		return NewRangeChar(lc, uc, bits, p), nil
	}
	return Value{}, guarderrors.New(guarderrors.ErrParse, "range literal bounds must both be int, float, or char: "+raw)
}

func tryFloatBounds(lowerText, upperText string) (float64, float64, bool) {
	if !strings.ContainsAny(lowerText, ".eE") && !strings.ContainsAny(upperText, ".eE") {
		return 0, 0, false
	}
	lf, err := strconv.ParseFloat(lowerText, 64)
	if err != nil {
		return 0, 0, false
	}
	uf, err := strconv.ParseFloat(upperText, 64)
	if err != nil {
		return 0, 0, false
	}
	return lf, uf, true
}

func tryIntBounds(lowerText, upperText string) (int64, int64, bool) {
	li, err := strconv.ParseInt(lowerText, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	ui, err := strconv.ParseInt(upperText, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return li, ui, true
}

func tryCharBounds(lowerText, upperText string) (rune, rune, bool) {
	lr := []rune(lowerText)
	ur := []rune(upperText)
	if len(lr) != 1 || len(ur) != 1 {
		return 0, 0, false
	}
	return lr[0], ur[0], true
}
