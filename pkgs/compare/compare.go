// Package compare implements the comparison-operator engine:
// broadcasting a comparator across scalar and list operands, IN/set
// membership, range membership, and the two independent negation
// mechanisms (the comparator's own "not" prefix and a clause's outer
// negation) layered on top of a single aggregated boolean.
package compare

import (
	"github.com/guardlang/guard/pkgs/ast"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/value"
)

// MatchAll selects how a list of per-element results is reduced to one
// boolean: ALL (the default, every element must match) or SOME/ANY (at
// least one element must match).
type MatchAll bool

const (
	All  MatchAll = true
	Some MatchAll = false
)

// Eval applies comparator to the (lhs, rhs) operand pair, broadcasting
// over lists as needed, aggregating per-element results per matchAll,
// and finally applying comparator.Negated exactly once to the
// aggregated result. The clause-level outer "not" (GuardAccessClause's
// Negation field) is layered on by the caller, not here — both
// negations are independent and compose by a second XOR, never by
// negating per element: every operator negates once, after
// aggregation, and IN is no different (which is what makes !IN
// set-level rather than element-wise).
func Eval(comparator ast.Comparator, lhs value.Value, rhs *value.Value, matchAll MatchAll) (bool, error) {
	base, err := evalBase(comparator.Op, lhs, rhs, matchAll)
	if err != nil {
		return false, err
	}
	if comparator.Negated {
		return !base, nil
	}
	return base, nil
}

func evalBase(op ast.Op, lhs value.Value, rhs *value.Value, matchAll MatchAll) (bool, error) {
	if op.IsUnary() {
		return evalUnary(op, lhs)
	}
	if rhs == nil {
		return false, guarderrors.New(guarderrors.ErrParse, "comparator "+op.String()+" requires a right-hand operand")
	}
	switch op {
	case ast.OpIn:
		return evalIn(lhs, *rhs, matchAll)
	default:
		return broadcast(op, lhs, *rhs, matchAll)
	}
}

func evalUnary(op ast.Op, v value.Value) (bool, error) {
	switch op {
	case ast.OpExists:
		return !v.IsNull(), nil
	case ast.OpEmpty:
		return v.IsEmpty(), nil
	case ast.OpIsString:
		return v.IsString(), nil
	case ast.OpIsList:
		return v.IsList(), nil
	case ast.OpIsStruct:
		return v.IsStruct(), nil
	case ast.OpIsBool:
		return v.IsBool(), nil
	case ast.OpIsInt:
		return v.IsInt(), nil
	case ast.OpIsFloat:
		return v.IsFloat(), nil
	case ast.OpIsNull:
		return v.IsNull(), nil
	default:
		return false, guarderrors.New(guarderrors.ErrParse, "not a unary comparator: "+op.String())
	}
}

// broadcast implements the broadcast rules for binary scalar
// comparators (==, !=, <, <=, >, >=): a singleton operand broadcasts
// against every element of the other side; two lists compare pairwise
// for ordering comparators, with an equal-length requirement and no
// reshape. == and != are the one exception: two whole lists are handed
// to value.Equal directly rather than reduced element-wise, so its
// reshape-on-equality special case applies to a real list-vs-list
// comparison instead of only ever firing on two same-index elements
// that each happen to be singleton nested lists.
func broadcast(op ast.Op, lhs, rhs value.Value, matchAll MatchAll) (bool, error) {
	lhsList, lhsIsList := asComparisonList(lhs)
	rhsList, rhsIsList := asComparisonList(rhs)

	if lhsIsList && rhsIsList && (op == ast.OpEq || op == ast.OpNe) {
		eq, err := value.Equal(lhs, rhs)
		if err != nil {
			return false, err
		}
		if op == ast.OpNe {
			return !eq, nil
		}
		return eq, nil
	}

	switch {
	case !lhsIsList && !rhsIsList:
		return compareScalar(op, lhs, rhs)
	case lhsIsList && !rhsIsList:
		return reduce(lhsList, func(e value.Value) (bool, error) {
			return compareScalar(op, e, rhs)
		}, matchAll)
	case !lhsIsList && rhsIsList:
		return reduce(rhsList, func(e value.Value) (bool, error) {
			return compareScalar(op, lhs, e)
		}, matchAll)
	default:
		if len(lhsList) != len(rhsList) {
			return false, nil
		}
		return reduceIndexed(lhsList, rhsList, func(a, b value.Value) (bool, error) {
			return compareScalar(op, a, b)
		}, matchAll)
	}
}

// asComparisonList reports whether v should be treated as a list for
// broadcast purposes, returning its elements.
func asComparisonList(v value.Value) ([]value.Value, bool) {
	if v.IsList() {
		return v.List(), true
	}
	return nil, false
}

func compareScalar(op ast.Op, a, b value.Value) (bool, error) {
	switch op {
	case ast.OpEq:
		return value.Equal(a, b)
	case ast.OpNe:
		eq, err := value.Equal(a, b)
		return !eq, err
	case ast.OpLt:
		if b.IsRange() {
			return rangeRelation(op, a, b)
		}
		return value.Less(a, b)
	case ast.OpLe:
		if b.IsRange() {
			return rangeRelation(op, a, b)
		}
		lt, err := value.Less(a, b)
		if err != nil {
			return false, err
		}
		if lt {
			return true, nil
		}
		return value.Equal(a, b)
	case ast.OpGt:
		if b.IsRange() {
			return rangeRelation(op, a, b)
		}
		return value.Less(b, a)
	case ast.OpGe:
		if b.IsRange() {
			return rangeRelation(op, a, b)
		}
		lt, err := value.Less(b, a)
		if err != nil {
			return false, err
		}
		if lt {
			return true, nil
		}
		return value.Equal(a, b)
	default:
		return false, guarderrors.New(guarderrors.ErrParse, "unsupported comparator: "+op.String())
	}
}

// rangeRelation handles the case where the RHS of <, <=, >, >= is a
// range literal, meaning "is the LHS within the range". <, <= both
// mean membership; >, >= are not
// meaningful against a range and are rejected.
func rangeRelation(op ast.Op, scalar, rng value.Value) (bool, error) {
	switch op {
	case ast.OpLt, ast.OpLe:
		return value.InRange(scalar, rng)
	default:
		return false, guarderrors.NewNotComparableError(scalar.Kind().String(), rng.Kind().String())
	}
}

// evalIn implements IN / set membership: the RHS is
// always treated as a set (a list, or a singleton scalar treated as a
// one-element set). When the LHS is itself a list, matchAll selects
// whether every element (ALL) or some element (SOME/ANY) of the LHS
// must be present in the RHS set; negation of the whole clause (for
// !IN) is layered on by Eval, once, after this aggregated result —
// never element-by-element.
func evalIn(lhs, rhs value.Value, matchAll MatchAll) (bool, error) {
	rhsSet, ok := asComparisonList(rhs)
	if !ok {
		rhsSet = []value.Value{rhs}
	}

	memberOf := func(needle value.Value) (bool, error) {
		for _, candidate := range rhsSet {
			eq, err := value.Equal(needle, candidate)
			if err != nil {
				continue // incomparable pair is simply not a match, not an error
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	}

	if lhsList, ok := asComparisonList(lhs); ok {
		return reduce(lhsList, memberOf, matchAll)
	}
	return memberOf(lhs)
}

func reduce(items []value.Value, f func(value.Value) (bool, error), matchAll MatchAll) (bool, error) {
	if len(items) == 0 {
		return bool(matchAll), nil
	}
	for _, item := range items {
		ok, err := f(item)
		if err != nil {
			return false, err
		}
		if matchAll == All && !ok {
			return false, nil
		}
		if matchAll == Some && ok {
			return true, nil
		}
	}
	return bool(matchAll == All), nil
}

func reduceIndexed(a, b []value.Value, f func(value.Value, value.Value) (bool, error), matchAll MatchAll) (bool, error) {
	if len(a) == 0 {
		return bool(matchAll), nil
	}
	for i := range a {
		ok, err := f(a[i], b[i])
		if err != nil {
			return false, err
		}
		if matchAll == All && !ok {
			return false, nil
		}
		if matchAll == Some && ok {
			return true, nil
		}
	}
	return bool(matchAll == All), nil
}
