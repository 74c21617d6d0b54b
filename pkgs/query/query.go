// Package query implements the resolver that walks an AccessQuery over
// a value.Value tree. The resolver is polymorphic in match_all:
// when true, a missing key or an incompatible-type traversal is an
// error; when false, that branch ends in an UnResolved result instead.
package query

import (
	"fmt"
	"strings"

	"github.com/guardlang/guard/pkgs/ast"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
)

// ResultKind discriminates the three shapes a QueryResult can take.
type ResultKind int

const (
	Literal ResultKind = iota
	Resolved
	UnResolved
)

// Result is one leaf produced by resolving an AccessQuery. All fan-out
// across the query accumulates into a flat slice of Results.
type Result struct {
	Kind        ResultKind
	Value       value.Value    // set for Literal and Resolved
	TraversedTo value.Value    // set for UnResolved: how far the walk got
	Remaining   []ast.QueryPart // set for UnResolved: what was left to do
	Reason      string
}

// VariableLookup resolves a %-prefixed name to the set of values bound
// to it in the current scope. Implemented by pkgs/scope;
// defined here, not there, to keep the dependency one-directional.
type VariableLookup interface {
	ResolveVariable(name string) ([]value.Value, error)
}

// ClauseEvaluator evaluates a nested GuardClause against a candidate
// root, used by Filter. Implemented by pkgs/eval; defined here
// for the same reason as VariableLookup — avoids a query<->eval
// import cycle.
type ClauseEvaluator interface {
	EvalGuardClause(root value.Value, clause ast.GuardClause, vars VariableLookup) (status.Status, error)
}

// Resolve walks parts over root, fanning out across lists/maps as each
// part demands, and returns the flat accumulated result set. A %variable
// in root position means the variable's bound values become the roots of
// the rest of the walk; a %variable in any later position interpolates
// map keys instead.
func Resolve(root value.Value, parts []ast.QueryPart, matchAll bool, vars VariableLookup, clauses ClauseEvaluator) ([]Result, error) {
	frontier := []value.Value{root}
	var unresolved []Result

	start := 0
	if len(parts) > 0 {
		if k, ok := parts[0].(ast.Key); ok && len(k.Name) > 1 && k.Name[0] == '%' {
			vals, err := vars.ResolveVariable(k.Name[1:])
			if err != nil {
				return nil, err
			}
			frontier = vals
			start = 1
		}
	}

	for i := start; i < len(parts); i++ {
		part := parts[i]
		remaining := parts[i+1:]
		var next []value.Value
		for _, v := range frontier {
			results, err := applyPart(part, v, matchAll, vars, clauses)
			if err != nil {
				return nil, err
			}
			for _, r := range results {
				if r.Kind == UnResolved {
					r.Remaining = remaining
					if matchAll {
						return nil, guarderrors.NewRetrievalError(queryPathString(parts[:i+1]), r.Reason)
					}
					unresolved = append(unresolved, r)
					continue
				}
				next = append(next, r.Value)
			}
		}
		frontier = next
		if len(frontier) == 0 && len(unresolved) == 0 && matchAll {
			return nil, guarderrors.NewRetrievalError(queryPathString(parts[:i+1]), "query resolved to nothing")
		}
	}

	out := make([]Result, 0, len(frontier)+len(unresolved))
	for _, v := range frontier {
		out = append(out, Result{Kind: Resolved, Value: v})
	}
	out = append(out, unresolved...)
	return out, nil
}

func applyPart(part ast.QueryPart, v value.Value, matchAll bool, vars VariableLookup, clauses ClauseEvaluator) ([]Result, error) {
	switch p := part.(type) {
	case ast.This:
		return []Result{{Kind: Resolved, Value: v}}, nil

	case ast.Key:
		return resolveKey(p.Name, v, matchAll, vars)

	case ast.Index:
		return resolveIndex(p.Value, v, matchAll)

	case ast.AllIndices:
		return resolveAllIndices(v), nil

	case ast.AllValues:
		return resolveAllValues(v), nil

	case ast.MapKeyFilter:
		return resolveMapKeyFilter(p, v, vars, clauses)

	case ast.Filter:
		return resolveFilter(p, v, vars, clauses)

	default:
		return nil, fmt.Errorf("unrecognized query part %T", part)
	}
}

// resolveKey implements the Key part: map lookup, with
// stringified-index fallback on lists, and %-prefixed variable-bound
// key interpolation.
func resolveKey(name string, v value.Value, matchAll bool, vars VariableLookup) ([]Result, error) {
	if len(name) > 0 && name[0] == '%' {
		return resolveVariableKeys(name[1:], v, matchAll, vars)
	}

	switch {
	case v.IsStruct():
		val, ok := v.MapGet(name)
		if !ok {
			return unresolvedOrPrune(v, name, "key not found: "+name)
		}
		return []Result{{Kind: Resolved, Value: val}}, nil
	case v.IsList():
		if idx, ok := parseListIndex(name); ok {
			return resolveIndex(idx, v, matchAll)
		}
		return unresolvedOrPrune(v, name, "cannot use key "+name+" on a list")
	default:
		return unresolvedOrPrune(v, name, "cannot traverse into a "+v.Kind().String()+" with key "+name)
	}
}

func resolveVariableKeys(varName string, v value.Value, matchAll bool, vars VariableLookup) ([]Result, error) {
	keys, err := vars.ResolveVariable(varName)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, k := range keys {
		sub, err := resolveKey(k.Str(), v, matchAll, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func parseListIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// resolveIndex implements the Index part, with negative indices
// treated by absolute value.
func resolveIndex(idx int, v value.Value, matchAll bool) ([]Result, error) {
	if !v.IsList() {
		return unresolvedOrPrune(v, fmt.Sprintf("[%d]", idx), "cannot index into a "+v.Kind().String())
	}
	if idx < 0 {
		idx = -idx
	}
	list := v.List()
	if idx >= len(list) {
		return unresolvedOrPrune(v, fmt.Sprintf("[%d]", idx), "index out of range")
	}
	return []Result{{Kind: Resolved, Value: list[idx]}}, nil
}

// resolveAllIndices fans out over a list's elements; on a scalar it
// passes the scalar through unchanged (legacy broadcast).
func resolveAllIndices(v value.Value) []Result {
	if v.IsList() {
		out := make([]Result, len(v.List()))
		for i, e := range v.List() {
			out[i] = Result{Kind: Resolved, Value: e}
		}
		return out
	}
	return []Result{{Kind: Resolved, Value: v}}
}

// resolveAllValues fans out over a map's values, or behaves like
// AllIndices on a list.
func resolveAllValues(v value.Value) []Result {
	if v.IsStruct() {
		vals := v.MapValues()
		out := make([]Result, len(vals))
		for i, e := range vals {
			out[i] = Result{Kind: Resolved, Value: e}
		}
		return out
	}
	return resolveAllIndices(v)
}

// resolveMapKeyFilter implements the MapKeyFilter part: select keys
// satisfying the comparison against compare_with, itself possibly a
// query to resolve first.
func resolveMapKeyFilter(p ast.MapKeyFilter, v value.Value, vars VariableLookup, clauses ClauseEvaluator) ([]Result, error) {
	if !v.IsStruct() {
		return unresolvedOrPrune(v, "[key filter]", "cannot filter keys on a "+v.Kind().String())
	}
	rhs, err := resolveLetValue(p.CompareWith, v, vars, clauses)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, key := range v.MapKeys() {
		match := false
		if rhs != nil {
			ok, err := matchComparator(p.Comparator, key, *rhs)
			if err != nil {
				return nil, err
			}
			match = ok
		}
		if match {
			val, _ := v.MapGet(key.Str())
			out = append(out, Result{Kind: Resolved, Value: val})
		}
	}
	return out, nil
}

// resolveFilter implements the Filter part: keep list elements for which
// the inner conjunctions evaluate to PASS against that element as the
// new root.
func resolveFilter(p ast.Filter, v value.Value, vars VariableLookup, clauses ClauseEvaluator) ([]Result, error) {
	if !v.IsList() {
		return unresolvedOrPrune(v, "[filter]", "cannot filter elements of a "+v.Kind().String())
	}
	var out []Result
	for _, elem := range v.List() {
		keep, err := evalConjunctionsAgainst(elem, p.Conjunctions, vars, clauses)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, Result{Kind: Resolved, Value: elem})
		}
	}
	return out, nil
}

func evalConjunctionsAgainst(root value.Value, conjunctions ast.Conjunctions[ast.GuardClause], vars VariableLookup, clauses ClauseEvaluator) (bool, error) {
	for _, disjunction := range conjunctions {
		rowPassed := false
		for _, clause := range disjunction {
			st, err := clauses.EvalGuardClause(root, clause, vars)
			if err != nil {
				return false, err
			}
			if st == status.Pass {
				rowPassed = true
				break
			}
		}
		if !rowPassed {
			return false, nil
		}
	}
	return true, nil
}

func unresolvedOrPrune(traversedTo value.Value, key string, reason string) ([]Result, error) {
	return []Result{{Kind: UnResolved, TraversedTo: traversedTo, Reason: reason}}, nil
}

// queryPathString renders the parts traversed so far as a dotted path for
// error messages, mirroring how the original tool reports retrieval
// failures anchored at a concrete query prefix.
func queryPathString(parts []ast.QueryPart) string {
	var sb strings.Builder
	sb.WriteString("this")
	for _, part := range parts {
		switch p := part.(type) {
		case ast.This:
			// no-op, root already written
		case ast.Key:
			sb.WriteByte('.')
			sb.WriteString(p.Name)
		case ast.Index:
			fmt.Fprintf(&sb, "[%d]", p.Value)
		case ast.AllIndices:
			sb.WriteString("[*]")
		case ast.AllValues:
			sb.WriteString(".*")
		case ast.MapKeyFilter:
			sb.WriteString("[key-filter]")
		case ast.Filter:
			sb.WriteString("[filter]")
		}
	}
	return sb.String()
}

// resolveLetValue resolves a LetValue (literal or nested query) to a
// single representative Value for comparison purposes; callers needing
// full fan-out (a LetValue that resolves to many values) should prefer
// the comparator engine's own broadcast semantics over this helper.
func resolveLetValue(lv ast.LetValue, root value.Value, vars VariableLookup, clauses ClauseEvaluator) (*value.Value, error) {
	switch t := lv.(type) {
	case ast.LiteralValue:
		v := t.Value
		return &v, nil
	case ast.AccessClause:
		results, err := Resolve(root, t.Query.Parts, t.Query.MatchAll, vars, clauses)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		if len(results) == 1 {
			return &results[0].Value, nil
		}
		items := make([]value.Value, 0, len(results))
		for _, r := range results {
			if r.Kind != UnResolved {
				items = append(items, r.Value)
			}
		}
		list := value.NewList(items, root.Path())
		return &list, nil
	default:
		return nil, fmt.Errorf("unrecognized let-value %T", lv)
	}
}

func matchComparator(cmp ast.Comparator, lhs, rhs value.Value) (bool, error) {
	switch cmp.Op {
	case ast.OpEq:
		eq, err := value.Equal(lhs, rhs)
		return eq != cmp.Negated, err
	case ast.OpNe:
		eq, err := value.Equal(lhs, rhs)
		return (!eq) != cmp.Negated, err
	case ast.OpIn:
		set := []value.Value{rhs}
		if rhs.IsList() {
			set = rhs.List()
		}
		for _, candidate := range set {
			eq, err := value.Equal(lhs, candidate)
			if err != nil {
				continue
			}
			if eq {
				return !cmp.Negated, nil
			}
		}
		return cmp.Negated, nil
	default:
		return false, guarderrors.New(guarderrors.ErrParse, "unsupported map-key-filter comparator: "+cmp.Op.String())
	}
}
