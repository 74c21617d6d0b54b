// Package ast defines the typed abstract syntax tree produced by the
// rule-language parser. The tree is constructed once per parse,
// borrowed immutably during evaluation, and never mutated afterwards.
package ast

import (
	"fmt"

	"github.com/guardlang/guard/pkgs/value"
)

// SourceLoc pins an AST node to its origin in rule text, for located
// parse and evaluation errors.
type SourceLoc struct {
	File   string
	Line   int
	Column int
}

func (l SourceLoc) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Op is the closed set of comparison operators.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpExists
	OpEmpty
	OpIsString
	OpIsList
	OpIsStruct
	OpIsBool
	OpIsInt
	OpIsFloat
	OpIsNull
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIn:
		return "IN"
	case OpExists:
		return "EXISTS"
	case OpEmpty:
		return "EMPTY"
	case OpIsString:
		return "IS_STRING"
	case OpIsList:
		return "IS_LIST"
	case OpIsStruct:
		return "IS_STRUCT"
	case OpIsBool:
		return "IS_BOOL"
	case OpIsInt:
		return "IS_INT"
	case OpIsFloat:
		return "IS_FLOAT"
	case OpIsNull:
		return "IS_NULL"
	default:
		return "?"
	}
}

// IsUnary reports whether Op takes no RHS operand.
func (o Op) IsUnary() bool {
	switch o {
	case OpExists, OpEmpty, OpIsString, OpIsList, OpIsStruct, OpIsBool, OpIsInt, OpIsFloat, OpIsNull:
		return true
	default:
		return false
	}
}

// Comparator pairs an Op with the grammar's own "not" prefix on the
// comparator token itself (distinct from a clause's outer negation);
// both are applied, in either order, to produce the final boolean.
type Comparator struct {
	Op      Op
	Negated bool
}

// --- Query AST ---

// QueryPart is one hop of an AccessQuery.
type QueryPart interface{ isQueryPart() }

type This struct{}
type Key struct{ Name string }
type Index struct{ Value int }
type AllIndices struct{}
type AllValues struct{}

// Filter selects list elements for which the inner conjunctions
// evaluate to PASS against that element as the new root.
type Filter struct {
	Conjunctions Conjunctions[GuardClause]
}

// MapKeyFilter selects map keys satisfying a comparison.
type MapKeyFilter struct {
	Comparator  Comparator
	CompareWith LetValue
}

func (This) isQueryPart()         {}
func (Key) isQueryPart()          {}
func (Index) isQueryPart()        {}
func (AllIndices) isQueryPart()   {}
func (AllValues) isQueryPart()    {}
func (Filter) isQueryPart()       {}
func (MapKeyFilter) isQueryPart() {}

// AccessQuery is a full access path: a sequence of QueryParts plus the
// SOME/every quantifier.
type AccessQuery struct {
	Parts    []QueryPart
	MatchAll bool
	Loc      SourceLoc
}

// --- Let / value expressions ---

// LetValue is either a literal value or a query whose resolution
// supplies the bound value.
type LetValue interface{ isLetValue() }

type LiteralValue struct{ Value value.Value }
type AccessClause struct{ Query AccessQuery }

func (LiteralValue) isLetValue()  {}
func (AccessClause) isLetValue()  {}

// LetExpr is a `let name = value|query` assignment.
type LetExpr struct {
	Name  string
	Value LetValue
	Loc   SourceLoc
}

// --- Clauses ---

// GuardAccessClause is the atomic assertion `<query> <comparator>
// <value|query>?`.
type GuardAccessClause struct {
	Query         AccessQuery
	Comparator    Comparator
	CompareWith   LetValue // nil for unary comparators
	CustomMessage string
	Negation      bool
	Loc           SourceLoc
}

// GuardNamedRuleClause references another rule by name as a guard
// condition.
type GuardNamedRuleClause struct {
	DependentRule string
	Negation      bool
	CustomMessage string
	Loc           SourceLoc
}

// BlockGuardClause gates a nested block on a query's selection, e.g.
// `Properties.Tags[*] { ... }`.
type BlockGuardClause struct {
	Query          AccessQuery
	Block          Block[GuardClause]
	NotEmptySuffix bool
	Loc            SourceLoc
}

// GuardClause is the sum type used inside blocks.
type GuardClause interface{ isGuardClause() }

type ClauseGuard struct{ Clause GuardAccessClause }
type NamedRuleGuard struct{ Clause GuardNamedRuleClause }
type BlockGuard struct{ Clause BlockGuardClause }
type WhenGuard struct {
	Conditions WhenConditions
	Body       Block[GuardClause]
}

func (ClauseGuard) isGuardClause()    {}
func (NamedRuleGuard) isGuardClause() {}
func (BlockGuard) isGuardClause()     {}
func (WhenGuard) isGuardClause()      {}

// WhenConditions is the conjunction-of-disjunctions guard evaluated
// before a WHEN-gated body runs.
type WhenConditions struct {
	Conjunctions Conjunctions[GuardClause]
}

// --- Type blocks and rule-level clauses ---

// TypeBlock implicitly selects `Resources.*[ Type == type_name ]` and
// evaluates its Block once per selected element.
type TypeBlock struct {
	TypeName   string
	Conditions *WhenConditions
	Block      Block[GuardClause]
	Loc        SourceLoc
}

// RuleClause is the sum type for statements directly inside a rule body.
type RuleClause interface{ isRuleClause() }

type ClauseRuleClause struct{ Clause GuardClause }
type TypeBlockRuleClause struct{ Clause TypeBlock }
type WhenBlockRuleClause struct {
	Conditions WhenConditions
	Body       Block[GuardClause]
}

func (ClauseRuleClause) isRuleClause()    {}
func (TypeBlockRuleClause) isRuleClause() {}
func (WhenBlockRuleClause) isRuleClause() {}

// Rule is a named, optionally WHEN-gated collection of RuleClause
// conjunctions.
type Rule struct {
	Name       string
	Conditions *WhenConditions
	Block      Block[RuleClause]
	Loc        SourceLoc
}

// --- Generic block / conjunction structure ---

// Conjunctions is [][]T: the outer slice is AND'd, each inner slice is
// OR'd.
type Conjunctions[T any] [][]T

// Block is a brace-delimited body: local `let` assignments plus
// conjunctions of T.
type Block[T any] struct {
	Assignments  []LetExpr
	Conjunctions Conjunctions[T]
}

// RulesFile is the top-level parse result for one rule-text buffer.
// Top-level clauses not inside an explicit `rule` block are collected
// into a synthetic rule named DefaultRuleName, inserted first.
type RulesFile struct {
	Assignments []LetExpr
	Rules       []Rule
}

// DefaultRuleName is the synthetic rule name assembled from bare
// top-level clauses.
const DefaultRuleName = "default"
