// Package eval implements the evaluator: a recursive descent over
// the rule AST that produces a Status at every level and emits a parallel
// trace into the record package. It is the one place that ties together
// the AST, the value model, the query resolver, the comparison engine, and
// the scope/binding tree.
package eval

import (
	"fmt"
	"strings"

	"github.com/guardlang/guard/pkgs/ast"
	"github.com/guardlang/guard/pkgs/compare"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/query"
	"github.com/guardlang/guard/pkgs/record"
	"github.com/guardlang/guard/pkgs/scope"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
)

// Evaluator holds the single recorder for one Evaluate call. It carries no
// state beyond that, so running independent (rules, document) pairs
// concurrently is just a matter of constructing one Evaluator per
// pair.
type Evaluator struct {
	rec *record.Recorder
}

// Evaluate runs rulesFile against root and returns the file-level trace
// entry, whose Status field is the overall PASS/FAIL/SKIP outcome. A non-nil error means something fatal happened
// (an undefined dependent rule, a cyclic rule reference) — the partial
// trace built so far is still returned for diagnostics. A malformed regex
// literal is not fatal: it fails only the clause that uses it.
func Evaluate(file string, rulesFile *ast.RulesFile, root value.Value) (*record.Entry, error) {
	rec := record.New()
	e := &Evaluator{rec: rec}
	sc := scope.NewRoot(rulesFile, root)
	sc.SetClauseEvaluator(e)

	fileScope := rec.Start(record.TypeFile, file)
	defer fileScope.End()

	statuses := make([]status.Status, 0, len(rulesFile.Rules))
	for i := range rulesFile.Rules {
		st, err := e.evalNamedRule(rulesFile.Rules[i].Name, sc)
		if err != nil {
			return rec.Root(), err
		}
		statuses = append(statuses, st)
	}
	fileScope.SetStatus(status.ElementAggregate(statuses))
	return rec.Root(), nil
}

// EvalGuardClause implements query.ClauseEvaluator: it evaluates a single
// nested clause against a candidate element produced by a Filter query
// part. vars is always the *scope.Scope that issued the Resolve
// call — the query package never constructs its own VariableLookup, so
// the assertion below cannot fail in practice.
func (e *Evaluator) EvalGuardClause(root value.Value, clause ast.GuardClause, vars query.VariableLookup) (status.Status, error) {
	sc, ok := vars.(*scope.Scope)
	if !ok {
		return status.Fail, fmt.Errorf("eval: EvalGuardClause requires a *scope.Scope VariableLookup, got %T", vars)
	}
	return e.evalGuardClauseWithScope(clause, sc.ChildWithRoot(root))
}

// evalNamedRule resolves a rule by name, memoizing its status in the root
// scope and detecting cyclic dependent-rule references.
func (e *Evaluator) evalNamedRule(name string, sc *scope.Scope) (status.Status, error) {
	if st, ok := sc.RuleStatus(name); ok {
		return st, nil
	}
	rule, ok := sc.Rule(name)
	if !ok {
		return status.Fail, guarderrors.NewMissingValueError(name)
	}
	if err := sc.BeginRule(name); err != nil {
		return status.Fail, err
	}

	ruleScope := e.rec.Start(record.TypeRule, rule.Name)
	defer ruleScope.End()

	ruleSc := sc.Child()
	for _, a := range rule.Block.Assignments {
		ruleSc.Bind(a)
	}

	st, err := e.evalWhenGated(rule.Conditions, ruleSc, func() (status.Status, error) {
		return evalRows(rule.Block.Conjunctions, ruleSc, e.evalRuleClause)
	})
	if err != nil {
		return status.Fail, err
	}
	ruleScope.SetStatus(st)
	sc.EndRule(name, st)
	return st, nil
}

// evalWhenGated implements WHEN gating: a FAILing or SKIPping
// condition set SKIPs the guarded body outright (never FAILs it); an
// error evaluating the conditions propagates.
func (e *Evaluator) evalWhenGated(cond *ast.WhenConditions, sc *scope.Scope, body func() (status.Status, error)) (status.Status, error) {
	if cond == nil {
		return body()
	}
	condStatus, err := evalRows(cond.Conjunctions, sc, e.evalGuardClauseWithScope)
	if err != nil {
		return status.Fail, err
	}
	if condStatus != status.Pass {
		return status.Skip, nil
	}
	return body()
}

func (e *Evaluator) evalRuleClause(rc ast.RuleClause, sc *scope.Scope) (status.Status, error) {
	switch c := rc.(type) {
	case ast.ClauseRuleClause:
		return e.evalGuardClauseWithScope(c.Clause, sc)
	case ast.TypeBlockRuleClause:
		return e.evalTypeBlock(c.Clause, sc)
	case ast.WhenBlockRuleClause:
		return e.evalWhenGated(&c.Conditions, sc, func() (status.Status, error) {
			return e.evalBlock(c.Body, sc)
		})
	default:
		return status.Fail, fmt.Errorf("eval: unrecognized rule clause %T", rc)
	}
}

func (e *Evaluator) evalGuardClauseWithScope(gc ast.GuardClause, sc *scope.Scope) (status.Status, error) {
	switch c := gc.(type) {
	case ast.ClauseGuard:
		return e.evalGuardAccessClause(c.Clause, sc)
	case ast.NamedRuleGuard:
		return e.evalGuardNamedRuleClause(c.Clause, sc)
	case ast.BlockGuard:
		return e.evalBlockGuardClause(c.Clause, sc)
	case ast.WhenGuard:
		return e.evalWhenGated(&c.Conditions, sc, func() (status.Status, error) {
			return e.evalBlock(c.Body, sc)
		})
	default:
		return status.Fail, fmt.Errorf("eval: unrecognized guard clause %T", gc)
	}
}

// evalBlock evaluates a brace-delimited Block[GuardClause]: its own `let`
// assignments shadow the enclosing scope, then its conjunctions reduce to
// one status.
func (e *Evaluator) evalBlock(block ast.Block[ast.GuardClause], sc *scope.Scope) (status.Status, error) {
	child := sc.Child()
	for _, a := range block.Assignments {
		child.Bind(a)
	}
	blockScope := e.rec.Start(record.TypeBlock, "")
	defer blockScope.End()

	st, err := evalRows(block.Conjunctions, child, e.evalGuardClauseWithScope)
	if err != nil {
		return status.Fail, err
	}
	blockScope.SetStatus(st)
	return st, nil
}

// evalGuardNamedRuleClause evaluates (and caches) the dependent rule, then
// applies this clause's own negation on top of its cached status.
func (e *Evaluator) evalGuardNamedRuleClause(c ast.GuardNamedRuleClause, sc *scope.Scope) (status.Status, error) {
	clauseScope := e.rec.Start(record.TypeClause, c.DependentRule)
	defer clauseScope.End()
	clauseScope.SetCustomMessage(c.CustomMessage)

	st, err := e.evalNamedRule(c.DependentRule, sc)
	if err != nil {
		return status.Fail, err
	}
	if c.Negation {
		st = negateStatus(st)
	}
	clauseScope.SetStatus(st)
	return st, nil
}

// evalBlockGuardClause implements the block clause: select the query's
// target(s), SKIP if the selection is empty (unless the `EXISTS`-like
// not-empty suffix demands a FAIL instead), and evaluate the nested block
// once per selected element.
func (e *Evaluator) evalBlockGuardClause(c ast.BlockGuardClause, sc *scope.Scope) (status.Status, error) {
	clauseScope := e.rec.Start(record.TypeClause, queryString(c.Query))
	defer clauseScope.End()

	// The selection resolves under SOME semantics regardless of the
	// query's own quantifier: an absent target means the block has
	// nothing to say (SKIP, or FAIL under the not-empty suffix), the
	// same way a TypeBlock skips over an absent type.
	results, err := e.resolveClauseQuery(sc, c.Query, false)
	if err != nil {
		clauseScope.SetMessage(err.Error())
		clauseScope.SetStatus(status.Fail)
		return status.Fail, nil
	}

	selection := resolvedValues(results)
	if len(selection) == 0 {
		st := status.Skip
		if c.NotEmptySuffix {
			st = status.Fail
		}
		clauseScope.SetStatus(st)
		return st, nil
	}

	memberStatuses := make([]status.Status, 0, len(selection))
	for _, v := range selection {
		st, err := e.evalBlock(c.Block, sc.ChildWithRoot(v))
		if err != nil {
			return status.Fail, err
		}
		memberStatuses = append(memberStatuses, st)
	}
	st := status.ElementAggregate(memberStatuses)
	clauseScope.SetStatus(st)
	return st, nil
}

// evalTypeBlock implements the TypeBlock: the implicit
// target is every Resources.* entry whose Type matches, each evaluated as
// a new root against the nested block.
func (e *Evaluator) evalTypeBlock(tb ast.TypeBlock, sc *scope.Scope) (status.Status, error) {
	tbScope := e.rec.Start(record.TypeTypeBlock, tb.TypeName)
	defer tbScope.End()

	selection, err := selectResourcesByType(tb.TypeName, sc, e)
	if err != nil {
		return status.Fail, err
	}
	if len(selection) == 0 {
		tbScope.SetStatus(status.Skip)
		return status.Skip, nil
	}

	st, err := e.evalWhenGated(tb.Conditions, sc, func() (status.Status, error) {
		memberStatuses := make([]status.Status, 0, len(selection))
		for _, elem := range selection {
			st, err := e.evalBlock(tb.Block, sc.ChildWithRoot(elem))
			if err != nil {
				return status.Fail, err
			}
			memberStatuses = append(memberStatuses, st)
		}
		return status.ElementAggregate(memberStatuses), nil
	})
	if err != nil {
		return status.Fail, err
	}
	tbScope.SetStatus(st)
	return st, nil
}

// selectResourcesByType resolves the implicit `Resources.*[Type ==
// typeName]` target. It resolves under SOME semantics regardless
// of the enclosing clause's own quantifier, since a type block with no
// matching resources is meant to SKIP quietly, never to abort the whole
// file with a retrieval error.
func selectResourcesByType(typeName string, sc *scope.Scope, clauses query.ClauseEvaluator) ([]value.Value, error) {
	typeEq := ast.ClauseGuard{Clause: ast.GuardAccessClause{
		Query:       ast.AccessQuery{Parts: []ast.QueryPart{ast.Key{Name: "Type"}}, MatchAll: true},
		Comparator:  ast.Comparator{Op: ast.OpEq},
		CompareWith: ast.LiteralValue{Value: value.NewString(typeName, value.Root())},
	}}
	parts := []ast.QueryPart{
		ast.Key{Name: "Resources"},
		ast.AllValues{},
	}
	results, err := query.Resolve(sc.Root(), parts, false, sc, clauses)
	if err != nil {
		return nil, err
	}
	// Each resource is a map, so the Type check runs against the resource
	// itself rather than through a list Filter.
	var selected []value.Value
	for _, v := range resolvedValues(results) {
		st, err := clauses.EvalGuardClause(v, typeEq, sc)
		if err != nil {
			return nil, err
		}
		if st == status.Pass {
			selected = append(selected, v)
		}
	}
	return selected, nil
}

// evalGuardAccessClause implements the atomic `<query> <comparator>
// <value|query>` assertion.
func (e *Evaluator) evalGuardAccessClause(c ast.GuardAccessClause, sc *scope.Scope) (status.Status, error) {
	clauseScope := e.rec.Start(record.TypeClause, queryString(c.Query))
	defer clauseScope.End()
	clauseScope.SetCustomMessage(c.CustomMessage)

	// EXISTS, EMPTY, and `== null` assert over absence, so resolution
	// must not hard-fail on a missing path the way ALL semantics
	// otherwise demand.
	resolveAll := c.Query.MatchAll
	switch {
	case c.Comparator.Op == ast.OpExists, c.Comparator.Op == ast.OpEmpty:
		resolveAll = false
	case c.Comparator.Op == ast.OpEq && isNullLiteral(c.CompareWith):
		resolveAll = false
	}

	results, err := e.resolveClauseQuery(sc, c.Query, resolveAll)
	if err != nil {
		clauseScope.SetMessage(err.Error())
		clauseScope.SetStatus(status.Fail)
		return status.Fail, nil
	}

	st, err := e.evalComparatorOverResults(c, results, sc, clauseScope)
	if err != nil {
		return status.Fail, err
	}
	if c.Negation {
		st = negateStatus(st)
	}
	clauseScope.SetStatus(st)
	return st, nil
}

// resolveClauseQuery resolves a clause's LHS (or RHS) query against the
// scope's root. When the root is a resource entry (a map carrying a
// Properties map) and the query's first key misses the entry but hits
// Properties, the query is rebased under Properties — the type-block
// shorthand that lets `Encrypted == true` address
// Properties.Encrypted.
func (e *Evaluator) resolveClauseQuery(sc *scope.Scope, q ast.AccessQuery, matchAll bool) ([]query.Result, error) {
	parts := q.Parts
	root := sc.Root()
	if len(parts) > 0 && root.IsStruct() {
		if k, ok := parts[0].(ast.Key); ok && len(k.Name) > 0 && k.Name[0] != '%' {
			if _, direct := root.MapGet(k.Name); !direct {
				if props, ok := root.MapGet("Properties"); ok && props.IsStruct() {
					if _, inProps := props.MapGet(k.Name); inProps {
						rebased := make([]ast.QueryPart, 0, len(parts)+1)
						rebased = append(rebased, ast.Key{Name: "Properties"})
						rebased = append(rebased, parts...)
						parts = rebased
					}
				}
			}
		}
	}
	return query.Resolve(root, parts, matchAll, sc, e)
}

// clauseLevelError reports whether err is one of the failure classes
// confined to the clause (FAIL with reason) rather than one that
// unwinds the rule-file evaluation.
func clauseLevelError(err error) bool {
	return guarderrors.IsType(err, guarderrors.ErrMissingVariable) ||
		guarderrors.IsType(err, guarderrors.ErrRetrieval) ||
		guarderrors.IsType(err, guarderrors.ErrIncompatible) ||
		guarderrors.IsType(err, guarderrors.ErrNotComparable) ||
		guarderrors.IsType(err, guarderrors.ErrRegexCompile)
}

func (e *Evaluator) evalComparatorOverResults(c ast.GuardAccessClause, results []query.Result, sc *scope.Scope, rscope *record.Scope) (status.Status, error) {
	resolved := resolvedValues(results)
	matchAll := compare.MatchAll(c.Query.MatchAll)

	switch c.Comparator.Op {
	case ast.OpExists:
		return passFail(boolXor(len(resolved) > 0, c.Comparator.Negated)), nil
	case ast.OpEmpty:
		return passFail(boolXor(isEmptyResultSet(resolved, matchAll), c.Comparator.Negated)), nil
	}

	// The remaining unary comparators (IS_*) test each resolved value,
	// not the synthesized list a fan-out would otherwise collapse into;
	// the aggregate follows matchAll and the negation applies once after
	// it.
	if c.Comparator.Op.IsUnary() {
		if len(resolved) == 0 {
			return status.Fail, nil
		}
		base := ast.Comparator{Op: c.Comparator.Op}
		agg := matchAll == compare.All
		for _, v := range resolved {
			ok, err := compare.Eval(base, v, nil, matchAll)
			if err != nil {
				rscope.SetMessage(err.Error())
				return status.Fail, nil
			}
			if matchAll == compare.All && !ok {
				agg = false
				break
			}
			if matchAll == compare.Some && ok {
				agg = true
				break
			}
		}
		return passFail(boolXor(agg, c.Comparator.Negated)), nil
	}

	lhs, ok := combineResolved(resolved)
	if !ok {
		if c.Comparator.Op == ast.OpEq && isNullLiteral(c.CompareWith) {
			return passFail(boolXor(true, c.Comparator.Negated)), nil
		}
		return status.Fail, nil
	}

	var rhs *value.Value
	if c.CompareWith != nil {
		v, err := e.resolveCompareWith(c.CompareWith, sc)
		if err != nil {
			if clauseLevelError(err) {
				rscope.SetMessage(err.Error())
				return status.Fail, nil
			}
			return status.Fail, err
		}
		rhs = v
	}

	pass, err := compare.Eval(c.Comparator, lhs, rhs, matchAll)
	if err != nil {
		rscope.SetMessage(err.Error())
		return status.Fail, nil
	}
	rscope.SetComparison(lhs, rhs)
	return passFail(pass), nil
}

// resolveCompareWith resolves a GuardAccessClause's RHS, which is either a
// literal or a nested query, to one representative value — a synthesized
// list when the query fanned out to more than one leaf, mirroring
// resolveLetValue in package query (duplicated here rather than exported
// there, since this is the evaluator's own RHS resolution, done with the
// evaluator as the ClauseEvaluator for any nested filters).
func (e *Evaluator) resolveCompareWith(lv ast.LetValue, sc *scope.Scope) (*value.Value, error) {
	switch t := lv.(type) {
	case ast.LiteralValue:
		v := t.Value
		return &v, nil
	case ast.AccessClause:
		results, err := e.resolveClauseQuery(sc, t.Query, t.Query.MatchAll)
		if err != nil {
			return nil, err
		}
		v, ok := combineResolved(resolvedValues(results))
		if !ok {
			return nil, nil
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("eval: unrecognized let-value %T", lv)
	}
}

func resolvedValues(results []query.Result) []value.Value {
	out := make([]value.Value, 0, len(results))
	for _, r := range results {
		if r.Kind != query.UnResolved {
			out = append(out, r.Value)
		}
	}
	return out
}

// combineResolved collapses a fanned-out result set to the single Value
// compare.Eval expects: the lone value when there is exactly one, or a
// synthesized list standing in for the fan-out so broadcast rules apply
// uniformly.
func combineResolved(resolved []value.Value) (value.Value, bool) {
	switch len(resolved) {
	case 0:
		return value.Value{}, false
	case 1:
		return resolved[0], true
	default:
		return value.NewList(resolved, resolved[0].Path()), true
	}
}

// isEmptyResultSet implements the EMPTY unary comparator's aggregate
// reading over a (possibly fanned-out) result set.
func isEmptyResultSet(resolved []value.Value, matchAll compare.MatchAll) bool {
	if len(resolved) == 0 {
		return true
	}
	if matchAll == compare.All {
		for _, v := range resolved {
			if !v.IsEmpty() {
				return false
			}
		}
		return true
	}
	for _, v := range resolved {
		if v.IsEmpty() {
			return true
		}
	}
	return false
}

func isNullLiteral(lv ast.LetValue) bool {
	if lv == nil {
		return false
	}
	lit, ok := lv.(ast.LiteralValue)
	return ok && lit.Value.IsNull()
}

func passFail(pass bool) status.Status {
	if pass {
		return status.Pass
	}
	return status.Fail
}

func boolXor(base, negated bool) bool {
	if negated {
		return !base
	}
	return base
}

// negateStatus applies a clause's outer negation to a cached status: PASS
// and FAIL swap, SKIP is left alone — negating "nothing to assert" still
// asserts nothing.
func negateStatus(st status.Status) status.Status {
	switch st {
	case status.Pass:
		return status.Fail
	case status.Fail:
		return status.Pass
	default:
		return st
	}
}

// evalRows reduces a Conjunctions[T] (AND of ORs) to one Status, stopping
// each disjunction row at its first PASS.
func evalRows[T any](conjunctions ast.Conjunctions[T], sc *scope.Scope, evalOne func(T, *scope.Scope) (status.Status, error)) (status.Status, error) {
	rowStatuses := make([]status.Status, 0, len(conjunctions))
	for _, row := range conjunctions {
		memberStatuses := make([]status.Status, 0, len(row))
		for _, member := range row {
			st, err := evalOne(member, sc)
			if err != nil {
				return status.Fail, err
			}
			memberStatuses = append(memberStatuses, st)
			if st == status.Pass {
				break
			}
		}
		rowStatuses = append(rowStatuses, status.Disjunction(memberStatuses))
	}
	return status.Conjunction(rowStatuses), nil
}

func queryString(q ast.AccessQuery) string {
	var sb strings.Builder
	sb.WriteString("this")
	for _, part := range q.Parts {
		switch p := part.(type) {
		case ast.This:
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
