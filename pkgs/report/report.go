// Package report builds the renderer-facing envelope from a
// recorder trace: a stable, owned snapshot of the evaluation tree plus
// a flattened per-rule result list, so renderers never have to walk
// record.Entry (and its *value.Value pointers) directly.
package report

import (
	"fmt"

	"github.com/guardlang/guard/pkgs/record"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/oklog/ulid/v2"
)

// TraceValue is the owned, renderer-safe snapshot of a value.Value
// consulted by a comparison record.
type TraceValue struct {
	Path string `json:"path" yaml:"path"`
	Kind string `json:"kind" yaml:"kind"`
	Repr string `json:"repr" yaml:"repr"`
}

func snapshotValue(v *value.Value) *TraceValue {
	if v == nil {
		return nil
	}
	return &TraceValue{Path: v.Path().String(), Kind: v.Kind().String(), Repr: reprValue(*v)}
}

// reprValue renders a value.Value as a short human-readable string for
// reports, deliberately not a full re-serialization of the original
// document.
func reprValue(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case value.KindInt:
		return fmt.Sprintf("%d", v.Int())
	case value.KindFloat:
		return fmt.Sprintf("%g", v.Float())
	case value.KindChar:
		return fmt.Sprintf("%q", v.Char())
	case value.KindString:
		return v.Str()
	case value.KindRegex:
		return "/" + v.Str() + "/"
	case value.KindList:
		items := v.List()
		out := "["
		for i, e := range items {
			if i > 0 {
				out += ", "
			}
			out += reprValue(e)
		}
		return out + "]"
	case value.KindMap:
		out := "{"
		for i, k := range v.MapKeys() {
			if i > 0 {
				out += ", "
			}
			val, _ := v.MapGet(k.Str())
			out += k.Str() + ": " + reprValue(val)
		}
		return out + "}"
	default:
		return v.Kind().String()
	}
}

// TraceNode is the owned mirror of a record.Entry.
type TraceNode struct {
	Type          string       `json:"type" yaml:"type"`
	Context       string       `json:"context,omitempty" yaml:"context,omitempty"`
	Status        string       `json:"status" yaml:"status"`
	LHS           *TraceValue  `json:"lhs,omitempty" yaml:"lhs,omitempty"`
	RHS           *TraceValue  `json:"rhs,omitempty" yaml:"rhs,omitempty"`
	Message       string       `json:"message,omitempty" yaml:"message,omitempty"`
	CustomMessage string       `json:"custom_message,omitempty" yaml:"custom_message,omitempty"`
	Children      []*TraceNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func snapshotEntry(e *record.Entry) *TraceNode {
	if e == nil {
		return nil
	}
	n := &TraceNode{
		Type:          e.Type.String(),
		Context:       e.Context,
		Status:        e.Status.String(),
		LHS:           snapshotValue(e.LHS),
		RHS:           snapshotValue(e.RHS),
		Message:       e.Message,
		CustomMessage: e.CustomMessage,
	}
	for _, c := range e.Children {
		n.Children = append(n.Children, snapshotEntry(c))
	}
	return n
}

// RuleResult is one rule's terminal outcome plus the failure messages
// collected from its FAILing clauses.
type RuleResult struct {
	Name     string   `json:"name" yaml:"name"`
	Status   string   `json:"status" yaml:"status"`
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// FileReport is one (rules, document) pair's outcome.
type FileReport struct {
	RulesFile string       `json:"rules_file" yaml:"rules_file"`
	DataFile  string       `json:"data_file" yaml:"data_file"`
	Status    string       `json:"status" yaml:"status"`
	Rules     []RuleResult `json:"rules" yaml:"rules"`
	Trace     *TraceNode   `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// Envelope wraps every (rules, document) pair evaluated in one CLI
// invocation, stamped with a run-correlation ULID. The
// ULID is carried in its canonical string form so every renderer
// (including YAML, which knows nothing of ulid.ULID's byte array)
// serializes it identically.
type Envelope struct {
	RunID string       `json:"run_id" yaml:"run_id"`
	Files []FileReport `json:"files" yaml:"files"`
}

// NewEnvelope stamps a fresh envelope with a run-correlation ULID.
func NewEnvelope() Envelope {
	return Envelope{RunID: ulid.Make().String()}
}

// Build snapshots a recorder's file-level entry into a FileReport,
// flattening every rule entry, top-level or nested, into RuleResult and collecting
// each FAILing clause's message underneath its owning rule.
func Build(rulesFile, dataFile string, fileEntry *record.Entry) FileReport {
	fr := FileReport{RulesFile: rulesFile, DataFile: dataFile, Trace: snapshotEntry(fileEntry)}
	if fileEntry == nil {
		fr.Status = "SKIP"
		return fr
	}
	fr.Status = fileEntry.Status.String()

	// A dependent rule evaluated on demand records its entry nested
	// under the clause that referenced it, not at the file level, so
	// the walk is recursive and deduplicates by name — every rule
	// appears exactly once, at its first (authoritative) record.
	seen := make(map[string]bool)
	var walk func(*record.Entry)
	walk = func(n *record.Entry) {
		if n.Type == record.TypeRule && !seen[n.Context] {
			seen[n.Context] = true
			rr := RuleResult{Name: n.Context, Status: n.Status.String()}
			rr.Messages = collectFailureMessages(n.Context, n)
			fr.Rules = append(fr.Rules, rr)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range fileEntry.Children {
		walk(c)
	}
	return fr
}

// collectFailureMessages walks a rule's subtree gathering a default
// (or custom) message for every FAILing clause record,
// naming the rule, the path, the observed value, and the expected
// value when no custom message was supplied.
func collectFailureMessages(ruleName string, e *record.Entry) []string {
	var out []string
	var walk func(*record.Entry)
	walk = func(n *record.Entry) {
		if n.Type == record.TypeClause && n.Status.String() == "FAIL" {
			out = append(out, describeFailure(ruleName, n))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range e.Children {
		walk(c)
	}
	return out
}

func describeFailure(ruleName string, n *record.Entry) string {
	if n.CustomMessage != "" {
		return n.CustomMessage
	}
	if n.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", ruleName, n.Context, n.Message)
	}
	if n.LHS != nil {
		path := n.LHS.Path().String()
		observed := reprValue(*n.LHS)
		if n.RHS != nil {
			return fmt.Sprintf("[%s] [%s] is [%s], expected [%s]", ruleName, path, observed, reprValue(*n.RHS))
		}
		return fmt.Sprintf("[%s] [%s] is [%s]", ruleName, path, observed)
	}
	return fmt.Sprintf("[%s] %s failed", ruleName, n.Context)
}
