package parser

import (
	"fmt"
	"strings"

	"github.com/guardlang/guard/pkgs/lexer"
)

// ParseError is a located parse failure carrying everything a precise
// grammar diagnostic needs: file name, line, column, the stack of
// grammar rules being attempted, and a text fragment at the point of
// failure.
type ParseError struct {
	File     string
	Line     int
	Column   int
	Message  string
	Context  []string // grammar context stack, outermost first
	Fragment string
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Line, e.Column)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	msg := fmt.Sprintf("%s: %s", loc, e.Message)
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" (in %s)", strings.Join(e.Context, " > "))
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf("\n  near: %s", e.Fragment)
	}
	return msg
}

// pushContext and popContext maintain the grammar context stack used to
// annotate errors raised while inside a named production.
func (p *Parser) pushContext(name string) { p.context = append(p.context, name) }
func (p *Parser) popContext()             { p.context = p.context[:len(p.context)-1] }

// errorf raises a located ParseError anchored at the current token,
// including a short fragment of surrounding source text.
func (p *Parser) errorf(format string, args ...any) error {
	tok := p.current()
	ctx := make([]string, len(p.context))
	copy(ctx, p.context)
	return &ParseError{
		File:     p.file,
		Line:     tok.Line,
		Column:   tok.Column,
		Message:  fmt.Sprintf(format, args...),
		Context:  ctx,
		Fragment: p.fragmentAround(tok),
	}
}

// fragmentAround renders the offending token plus a little look-ahead,
// for human-readable error context.
func (p *Parser) fragmentAround(tok lexer.Token) string {
	end := p.pos + 4
	if end > len(p.tokens) {
		end = len(p.tokens)
	}
	var sb strings.Builder
	for i := p.pos; i < end; i++ {
		if i > p.pos {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.tokens[i].Value)
		if p.tokens[i].Value == "" {
			sb.WriteString(p.tokens[i].Type.String())
		}
	}
	return sb.String()
}
