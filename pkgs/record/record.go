// Package record implements the evaluation recorder: a tree of
// start/end scoped events describing how a rule file was evaluated against
// a document, from the file root down through rules, type-blocks, blocks,
// clauses, and individual comparisons. It is the sole input consumed by the
// report renderers.
package record

import (
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
)

// RecordType discriminates the six levels of the evaluation tree.
type RecordType int

const (
	TypeFile RecordType = iota
	TypeRule
	TypeTypeBlock
	TypeBlock
	TypeClause
	TypeComparison
)

func (t RecordType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeRule:
		return "rule"
	case TypeTypeBlock:
		return "type_block"
	case TypeBlock:
		return "block"
	case TypeClause:
		return "clause"
	case TypeComparison:
		return "comparison"
	default:
		return "unknown"
	}
}

// Entry is one node of the recorded tree. Status defaults to Skip until a
// scope explicitly sets it, so an entry left open by an early error still
// reports something meaningful rather than a zero value that reads as PASS.
type Entry struct {
	Type          RecordType
	Context       string
	Status        status.Status
	LHS           *value.Value
	RHS           *value.Value
	Message       string
	CustomMessage string
	Children      []*Entry
}

// Recorder owns the open-scope stack for one Evaluate call.
type Recorder struct {
	root  *Entry
	stack []*Entry
}

// New constructs an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// Root returns the top-level entry, the one opened by the first Start
// call. It is nil until then.
func (r *Recorder) Root() *Entry {
	return r.root
}

// Scope is a single open start/end pair. Callers set Status (and
// optionally LHS/RHS/Message/CustomMessage) any time before End is called;
// the pattern mirrored throughout eval is `scope := rec.Start(...); defer
// scope.End()`, so End always fires even on an early error return.
type Scope struct {
	entry    *Entry
	recorder *Recorder
	ended    bool
}

// Start opens a new entry nested under the currently open scope (or as the
// tree root, if none is open), and returns a handle for setting its
// outcome before it closes.
func (r *Recorder) Start(t RecordType, context string) *Scope {
	e := &Entry{Type: t, Context: context, Status: status.Skip}
	if len(r.stack) > 0 {
		parent := r.stack[len(r.stack)-1]
		parent.Children = append(parent.Children, e)
	} else if r.root == nil {
		r.root = e
	}
	r.stack = append(r.stack, e)
	return &Scope{entry: e, recorder: r}
}

// SetStatus records this scope's terminal status.
func (s *Scope) SetStatus(st status.Status) *Scope {
	s.entry.Status = st
	return s
}

// SetComparison attaches the (lhs, rhs) pair a comparison record describes.
// rhs may be nil for unary comparators.
func (s *Scope) SetComparison(lhs value.Value, rhs *value.Value) *Scope {
	s.entry.LHS = &lhs
	s.entry.RHS = rhs
	return s
}

// SetMessage attaches a diagnostic reason (e.g. a retrieval failure or
// comparison mismatch explanation).
func (s *Scope) SetMessage(msg string) *Scope {
	s.entry.Message = msg
	return s
}

// SetCustomMessage attaches the clause's author-supplied `<<...>>` message.
func (s *Scope) SetCustomMessage(msg string) *Scope {
	s.entry.CustomMessage = msg
	return s
}

// Entry exposes the underlying record for callers that need to read it
// back (e.g. to compute an aggregate status from children already
// recorded).
func (s *Scope) Entry() *Entry {
	return s.entry
}

// End closes this scope, popping it off the recorder's open-scope stack.
// Safe to call more than once; only the first call has effect, so `defer
// scope.End()` composes safely with an explicit early End on a success
// path.
func (s *Scope) End() {
	if s.ended {
		return
	}
	s.ended = true
	stack := s.recorder.stack
	s.recorder.stack = stack[:len(stack)-1]
}
