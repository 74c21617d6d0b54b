// Package value implements the path-aware value model:
// a closed variant type normalized from JSON or YAML documents, where
// every leaf carries the Path it was found at.
package value

import (
	"fmt"
	"regexp"
	"sync"
)

// Kind discriminates the closed Value variant set.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindRegex
	KindList
	KindMap
	KindRangeInt
	KindRangeFloat
	KindRangeChar
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindRegex:
		return "regex"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRangeInt, KindRangeFloat, KindRangeChar:
		return "range"
	default:
		return "unknown"
	}
}

// Range inclusivity bits: bit 0 = lower inclusive, bit 1 = upper
// inclusive.
const (
	LowerInclusive = 1 << 0
	UpperInclusive = 1 << 1
)

// Range carries the bounds and inclusivity for a RangeInt/RangeFloat/
// RangeChar value. Exactly one of the {Int,Float,Char} bound pairs is
// populated, matching the Value's Kind.
type Range struct {
	LowerInt, UpperInt     int64
	LowerFloat, UpperFloat float64
	LowerChar, UpperChar   rune
	InclusiveBits          uint8
}

func (r Range) lowerInclusive() bool { return r.InclusiveBits&LowerInclusive != 0 }
func (r Range) upperInclusive() bool { return r.InclusiveBits&UpperInclusive != 0 }

// Value is the engine's closed variant type. Every Value carries the
// Path of the document leaf it was produced from. Values are immutable
// once constructed; the Map variant is insertion-ordered.
type Value struct {
	kind  Kind
	path  Path
	b     bool
	i     int64
	f     float64
	c     rune
	s     string // String contents, or Regex pattern
	list  []Value
	m     *orderedMap
	rng   Range
	regex *compiledRegex
}

type compiledRegex struct {
	once sync.Once
	re   *regexp.Regexp
	err  error
}

// Kind returns the value's variant discriminator.
func (v Value) Kind() Kind { return v.kind }

// Path returns the document path this value was resolved from.
func (v Value) Path() Path { return v.path }

// WithPath returns a copy of v carrying a different path. Used when a
// value is re-homed under a new root during Filter/TypeBlock traversal.
func (v Value) WithPath(p Path) Value {
	v.path = p
	return v
}

// --- Constructors ---

func NewNull(p Path) Value   { return Value{kind: KindNull, path: p} }
func NewBool(b bool, p Path) Value { return Value{kind: KindBool, b: b, path: p} }
func NewInt(i int64, p Path) Value { return Value{kind: KindInt, i: i, path: p} }
func NewFloat(f float64, p Path) Value { return Value{kind: KindFloat, f: f, path: p} }
func NewChar(c rune, p Path) Value { return Value{kind: KindChar, c: c, path: p} }
func NewString(s string, p Path) Value { return Value{kind: KindString, s: s, path: p} }

// NewRegex builds a Regex value from its source pattern (without the
// surrounding slashes). Compilation is deferred until Regexp() is
// called.
func NewRegex(pattern string, p Path) Value {
	return Value{kind: KindRegex, s: pattern, path: p, regex: &compiledRegex{}}
}

func NewList(items []Value, p Path) Value {
	return Value{kind: KindList, list: items, path: p}
}

// NewMap builds an empty, insertion-ordered Map value.
func NewMap(p Path) Value {
	return Value{kind: KindMap, path: p, m: newOrderedMap()}
}

func NewRangeInt(lower, upper int64, bits uint8, p Path) Value {
	return Value{kind: KindRangeInt, rng: Range{LowerInt: lower, UpperInt: upper, InclusiveBits: bits}, path: p}
}

func NewRangeFloat(lower, upper float64, bits uint8, p Path) Value {
	return Value{kind: KindRangeFloat, rng: Range{LowerFloat: lower, UpperFloat: upper, InclusiveBits: bits}, path: p}
}

func NewRangeChar(lower, upper rune, bits uint8, p Path) Value {
	return Value{kind: KindRangeChar, rng: Range{LowerChar: lower, UpperChar: upper, InclusiveBits: bits}, path: p}
}

// --- Accessors (return the field's zero value if Kind mismatches; callers must check Kind first,
// matching how the rest of the engine always branches on Kind before
// reading a scalar field) ---

func (v Value) Bool() bool       { return v.b }
func (v Value) Int() int64       { return v.i }
func (v Value) Float() float64   { return v.f }
func (v Value) Char() rune       { return v.c }
func (v Value) Str() string      { return v.s }
func (v Value) List() []Value    { return v.list }
func (v Value) Range() Range     { return v.rng }

// Regexp lazily compiles the regex pattern and memoizes the result. The
// compiled pattern is shared if the same Value is consulted more than
// once; concurrent use across (rules, document) pairs is safe since the
// underlying sync.Once only ever compiles once.
func (v Value) Regexp() (*regexp.Regexp, error) {
	if v.kind != KindRegex {
		return nil, fmt.Errorf("not a regex value: %s", v.kind)
	}
	if v.regex == nil {
		// Value was copied before a *compiledRegex was attached (e.g. a
		// zero Value); compile without memoization.
		return regexp.Compile(deslash(v.s))
	}
	v.regex.once.Do(func() {
		v.regex.re, v.regex.err = regexp.Compile(deslash(v.s))
	})
	return v.regex.re, v.regex.err
}

// deslash turns the lexer's `\/`-escaped pattern into the literal slash
// the regexp package expects.
func deslash(pattern string) string {
	out := make([]byte, 0, len(pattern))
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) && pattern[i+1] == '/' {
			out = append(out, '/')
			i++
			continue
		}
		out = append(out, pattern[i])
	}
	return string(out)
}

// --- Map access ---

// MapLen returns the number of entries in a Map value.
func (v Value) MapLen() int {
	if v.kind != KindMap || v.m == nil {
		return 0
	}
	return v.m.len()
}

// MapGet looks up a key in a Map value.
func (v Value) MapGet(key string) (Value, bool) {
	if v.kind != KindMap || v.m == nil {
		return Value{}, false
	}
	return v.m.get(key)
}

// MapSet inserts or overwrites a key in a Map value, preserving
// insertion order for new keys.
func (v *Value) MapSet(key string, val Value) {
	if v.m == nil {
		v.m = newOrderedMap()
	}
	v.m.set(key, val)
}

// MapKeys returns the map's keys as string-typed Values, in insertion
// order, each carrying the map's own path (keys have no path of their
// own in the document).
func (v Value) MapKeys() []Value {
	if v.kind != KindMap || v.m == nil {
		return nil
	}
	keys := v.m.orderedKeys()
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = NewString(k, v.path)
	}
	return out
}

// MapValues returns the map's values in insertion order.
func (v Value) MapValues() []Value {
	if v.kind != KindMap || v.m == nil {
		return nil
	}
	keys := v.m.orderedKeys()
	out := make([]Value, len(keys))
	for i, k := range keys {
		val, _ := v.m.get(k)
		out[i] = val
	}
	return out
}

// --- Type predicates, used by the IS_* unary comparators ---

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsStruct() bool { return v.kind == KindMap }
func (v Value) IsRange() bool {
	return v.kind == KindRangeInt || v.kind == KindRangeFloat || v.kind == KindRangeChar
}

// IsEmpty implements the EMPTY unary comparator for a resolved value:
// true for null and for zero-length List/Map/String.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return v.MapLen() == 0
	case KindString:
		return v.s == ""
	default:
		return false
	}
}
