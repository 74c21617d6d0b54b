package value

import guarderrors "github.com/guardlang/guard/pkgs/errors"

// Equal implements the engine's cross-variant equality rules: numeric
// widening, String==Regex via a regex search, and recursive structural
// equality for List/Map. Any other cross-type pair is NotComparable.
func Equal(a, b Value) (bool, error) {
	switch {
	case a.kind == KindNull && b.kind == KindNull:
		return true, nil
	case a.kind == KindBool && b.kind == KindBool:
		return a.b == b.b, nil
	case isNumeric(a.kind) && isNumeric(b.kind):
		return asFloat(a) == asFloat(b), nil
	case a.kind == KindChar && b.kind == KindChar:
		return a.c == b.c, nil
	case a.kind == KindString && b.kind == KindString:
		return a.s == b.s, nil
	case a.kind == KindString && b.kind == KindRegex:
		return regexMatches(b, a.s)
	case a.kind == KindRegex && b.kind == KindString:
		return regexMatches(a, b.s)
	case a.kind == KindList && b.kind == KindList:
		return listEqual(a.list, b.list)
	case a.kind == KindMap && b.kind == KindMap:
		return mapEqual(a, b)
	default:
		return false, guarderrors.NewNotComparableError(a.kind.String(), b.kind.String())
	}
}

func regexMatches(re Value, s string) (bool, error) {
	compiled, err := re.Regexp()
	if err != nil {
		return false, guarderrors.NewRegexCompileError(re.s, err)
	}
	return compiled.MatchString(s), nil
}

// listEqual is ordered equality, with a legacy reshape for lists of the
// same length: when the last element on one side is a single-element
// nested list and the other side's last element is not a list, the
// nested element is compared instead (some older rule files depend on
// [a, [b]] comparing equal to [a, b]). A length mismatch is inequality.
func listEqual(a, b []Value) (bool, error) {
	if len(a) == len(b) {
		for i := range a {
			x, y := a[i], b[i]
			if i == len(a)-1 && x.kind == KindList && len(x.list) == 1 && y.kind != KindList {
				x = x.list[0]
			} else if i == len(a)-1 && y.kind == KindList && len(y.list) == 1 && x.kind != KindList {
				y = y.list[0]
			}
			eq, err := Equal(x, y)
			if err != nil {
				return false, err
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil
	}
	if reshaped, ok := reshapeNestedSingleton(a, b); ok {
		return listEqual(reshaped, b)
	}
	if reshaped, ok := reshapeNestedSingleton(b, a); ok {
		return listEqual(a, reshaped)
	}
	return false, nil
}

// reshapeNestedSingleton unwraps the last element of longer when longer
// has one more element than shorter and that last element is a
// single-element list, e.g. [a, b, [c]] becomes [a, b, c]. The result
// keeps longer's length, so the listEqual call it feeds still reports
// inequality.
func reshapeNestedSingleton(longer, shorter []Value) ([]Value, bool) {
	if len(longer) != len(shorter)+1 {
		return nil, false
	}
	last := longer[len(longer)-1]
	if last.kind != KindList || len(last.list) != 1 {
		return nil, false
	}
	reshaped := make([]Value, 0, len(longer))
	reshaped = append(reshaped, longer[:len(longer)-1]...)
	reshaped = append(reshaped, last.list[0])
	return reshaped, true
}

func mapEqual(a, b Value) (bool, error) {
	if a.MapLen() != b.MapLen() {
		return false, nil
	}
	for _, key := range a.MapKeys() {
		av, _ := a.MapGet(key.s)
		bv, ok := b.MapGet(key.s)
		if !ok {
			return false, nil
		}
		eq, err := Equal(av, bv)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

// Less implements the ordering comparators (<, <=, >, >=): numeric int/float widen to float64; char ranges compare by scalar
// codepoint; strings compare bytewise. Any other pair is NotComparable.
func Less(a, b Value) (bool, error) {
	switch {
	case isNumeric(a.kind) && isNumeric(b.kind):
		return asFloat(a) < asFloat(b), nil
	case a.kind == KindChar && b.kind == KindChar:
		return a.c < b.c, nil
	case a.kind == KindString && b.kind == KindString:
		return a.s < b.s, nil
	default:
		return false, guarderrors.NewNotComparableError(a.kind.String(), b.kind.String())
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func asFloat(v Value) float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// InRange reports whether a scalar value lies within a Range, honoring
// its inclusivity bits.
func InRange(scalar, rng Value) (bool, error) {
	switch rng.kind {
	case KindRangeInt:
		if scalar.kind != KindInt {
			return false, guarderrors.NewNotComparableError(scalar.kind.String(), rng.kind.String())
		}
		return withinInt(scalar.i, rng.rng), nil
	case KindRangeFloat:
		if !isNumeric(scalar.kind) {
			return false, guarderrors.NewNotComparableError(scalar.kind.String(), rng.kind.String())
		}
		return withinFloat(asFloat(scalar), rng.rng), nil
	case KindRangeChar:
		if scalar.kind != KindChar {
			return false, guarderrors.NewNotComparableError(scalar.kind.String(), rng.kind.String())
		}
		return withinChar(scalar.c, rng.rng), nil
	default:
		return false, guarderrors.NewNotComparableError(scalar.kind.String(), rng.kind.String())
	}
}

func withinInt(v int64, r Range) bool {
	lowOK := v > r.LowerInt || (r.lowerInclusive() && v == r.LowerInt)
	highOK := v < r.UpperInt || (r.upperInclusive() && v == r.UpperInt)
	return lowOK && highOK
}

func withinFloat(v float64, r Range) bool {
	lowOK := v > r.LowerFloat || (r.lowerInclusive() && v == r.LowerFloat)
	highOK := v < r.UpperFloat || (r.upperInclusive() && v == r.UpperFloat)
	return lowOK && highOK
}

func withinChar(v rune, r Range) bool {
	lowOK := v > r.LowerChar || (r.lowerInclusive() && v == r.LowerChar)
	highOK := v < r.UpperChar || (r.upperInclusive() && v == r.UpperChar)
	return lowOK && highOK
}
