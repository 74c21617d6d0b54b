// Package scope implements the hierarchical variable-binding and
// rule-status cache: a root scope owning the RulesFile's
// top-level assignments and rule lookup table, with child block scopes that
// fall through to their parent on a lookup miss.
package scope

import (
	"github.com/guardlang/guard/pkgs/ast"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/query"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
)

// Scope is one node of the binding tree. The root scope additionally owns
// the rule lookup map and the per-run rule-status cache; child
// scopes leave those fields nil and delegate to their parent.
type Scope struct {
	parent *Scope
	root   value.Value

	literals map[string]value.Value
	queries  map[string]ast.AccessQuery
	memo     map[string][]value.Value

	rules      map[string]*ast.Rule
	ruleStatus map[string]status.Status
	inProgress map[string]bool
	clauses    query.ClauseEvaluator
}

// NewRoot constructs the root scope for one (rules, document) evaluation,
// binding the RulesFile's top-level `let` assignments and indexing its
// named rules for dependent-rule lookup.
func NewRoot(rulesFile *ast.RulesFile, root value.Value) *Scope {
	s := &Scope{
		root:       root,
		literals:   make(map[string]value.Value),
		queries:    make(map[string]ast.AccessQuery),
		memo:       make(map[string][]value.Value),
		rules:      make(map[string]*ast.Rule),
		ruleStatus: make(map[string]status.Status),
		inProgress: make(map[string]bool),
	}
	for _, a := range rulesFile.Assignments {
		s.bind(a)
	}
	for i := range rulesFile.Rules {
		r := &rulesFile.Rules[i]
		s.rules[r.Name] = r
	}
	return s
}

// SetClauseEvaluator wires the evaluator used to satisfy nested Filter and
// MapKeyFilter clauses encountered while resolving a query-bound variable.
// Set after construction to break the scope<->eval import cycle: scope is
// built first, the evaluator is built holding a reference to it, then this
// ties the last wire back.
func (s *Scope) SetClauseEvaluator(c query.ClauseEvaluator) {
	s.clauses = c
}

// Child opens a new block scope (rule body, when-block, type-block) whose
// own assignments shadow the parent's on lookup.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent:   s,
		root:     s.root,
		literals: make(map[string]value.Value),
		queries:  make(map[string]ast.AccessQuery),
		memo:     make(map[string]([]value.Value)),
	}
}

// ChildWithRoot opens a child scope like Child, but rebases its root value
// — used when a block is re-evaluated against a selected element (a
// TypeBlock's resource, a BlockGuardClause's matched item, or a query
// Filter's candidate) rather than the enclosing scope's own root.
func (s *Scope) ChildWithRoot(root value.Value) *Scope {
	c := s.Child()
	c.root = root
	return c
}

// Bind records a `let` assignment in this scope: a literal value is
// stored immediately, a query binding is stored unevaluated and resolved
// lazily on first lookup.
func (s *Scope) Bind(expr ast.LetExpr) {
	s.bind(expr)
}

func (s *Scope) bind(expr ast.LetExpr) {
	switch v := expr.Value.(type) {
	case ast.LiteralValue:
		s.literals[expr.Name] = v.Value
	case ast.AccessClause:
		s.queries[expr.Name] = v.Query
	}
}

// clauseEvaluator returns the nearest ancestor's ClauseEvaluator, since only
// the root scope is wired directly.
func (s *Scope) clauseEvaluator() query.ClauseEvaluator {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.clauses != nil {
			return cur.clauses
		}
	}
	return nil
}

// ResolveVariable implements query.VariableLookup: a literal
// binding returns as a one-element slice, a query binding is resolved
// against this scope's root value and memoized, and a miss falls through
// to the parent scope.
func (s *Scope) ResolveVariable(name string) ([]value.Value, error) {
	if lit, ok := s.literals[name]; ok {
		return []value.Value{lit}, nil
	}
	if cached, ok := s.memo[name]; ok {
		return cached, nil
	}
	if q, ok := s.queries[name]; ok {
		results, err := query.Resolve(s.root, q.Parts, q.MatchAll, s, s.clauseEvaluator())
		if err != nil {
			return nil, err
		}
		vals := make([]value.Value, 0, len(results))
		for _, r := range results {
			if r.Kind != query.UnResolved {
				vals = append(vals, r.Value)
			}
		}
		s.memo[name] = vals
		return vals, nil
	}
	if s.parent != nil {
		return s.parent.ResolveVariable(name)
	}
	return nil, guarderrors.NewMissingVariableError(name)
}

// Rule looks up a named rule by its declared name, searching up to the
// owning root scope.
func (s *Scope) Rule(name string) (*ast.Rule, bool) {
	if s.rules != nil {
		r, ok := s.rules[name]
		return r, ok
	}
	if s.parent != nil {
		return s.parent.Rule(name)
	}
	return nil, false
}

// RuleStatus returns a cached status for a previously evaluated named rule,
// and whether such a cached status exists.
func (s *Scope) RuleStatus(name string) (status.Status, bool) {
	if s.ruleStatus != nil {
		st, ok := s.ruleStatus[name]
		return st, ok
	}
	if s.parent != nil {
		return s.parent.RuleStatus(name)
	}
	return status.Skip, false
}

// BeginRule marks a named rule as currently being evaluated, returning an
// error if it is already on the stack (a cycle).
func (s *Scope) BeginRule(name string) error {
	root := s.rootScope()
	if root.inProgress[name] {
		return guarderrors.NewCycleError([]string{name})
	}
	root.inProgress[name] = true
	return nil
}

// EndRule records a named rule's terminal status and clears its
// in-progress marker.
func (s *Scope) EndRule(name string, st status.Status) {
	root := s.rootScope()
	root.ruleStatus[name] = st
	delete(root.inProgress, name)
}

func (s *Scope) rootScope() *Scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Root returns the document value this scope's queries resolve against.
func (s *Scope) Root() value.Value { return s.root }
