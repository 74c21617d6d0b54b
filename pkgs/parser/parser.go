// Package parser implements the rule-language's single-pass recursive-
// descent parser: explicit backtracking only where the grammar
// is genuinely ambiguous (named-rule references vs. access queries),
// and a "cut" discipline — once a construct is recognizably committed
// (e.g. a comparator token has been consumed), falling through to a
// sibling production is no longer allowed.
package parser

import (
	"strconv"

	"github.com/guardlang/guard/pkgs/ast"
	"github.com/guardlang/guard/pkgs/lexer"
	"github.com/guardlang/guard/pkgs/value"
)

// Parser holds the full token stream for one rule-text buffer and a
// cursor into it. Tokens are produced eagerly by the lexer; there is
// no re-lexing.
type Parser struct {
	file    string
	tokens  []lexer.Token
	pos     int
	context []string
}

// Parse lexes and parses a complete rule-text buffer into a RulesFile.
func Parse(file, src string) (*ast.RulesFile, error) {
	lex := lexer.New(src)
	tokens, err := lex.TokenizeAll()
	if err != nil {
		return nil, err
	}
	p := &Parser{file: file, tokens: tokens}
	return p.parseRulesFile()
}

// --- Token cursor helpers ---

func (p *Parser) current() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) peek(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool { return p.current().Type == lexer.EOF }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.current().Type != tt {
		return lexer.Token{}, p.errorf("expected %s, found %s", tt, p.current().Type)
	}
	return p.advance(), nil
}

func (p *Parser) loc() ast.SourceLoc {
	tok := p.current()
	return ast.SourceLoc{File: p.file, Line: tok.Line, Column: tok.Column}
}

// save/restore implement the parser's only real backtracking point
// (named-rule vs. access-query disambiguation).
func (p *Parser) save() int        { return p.pos }
func (p *Parser) restore(mark int) { p.pos = mark }

// --- Top level ---

func (p *Parser) parseRulesFile() (*ast.RulesFile, error) {
	p.pushContext("rules_file")
	defer p.popContext()

	file := &ast.RulesFile{}
	var defaultConjunctions ast.Conjunctions[ast.RuleClause]

	for !p.atEnd() {
		switch {
		case p.current().Type == lexer.KwLet:
			le, err := p.parseLetExpr()
			if err != nil {
				return nil, err
			}
			file.Assignments = append(file.Assignments, le)

		case p.current().Type == lexer.KwRule ||
			(p.current().Type == lexer.KwWhen && p.peek(1).Type == lexer.KwRule):
			rule, err := p.parseRuleBlock()
			if err != nil {
				return nil, err
			}
			file.Rules = append(file.Rules, rule)

		default:
			group, err := p.parseRuleClauseGroup()
			if err != nil {
				return nil, err
			}
			defaultConjunctions = append(defaultConjunctions, group)
		}
	}

	if len(defaultConjunctions) > 0 {
		defaultRule := ast.Rule{
			Name:  ast.DefaultRuleName,
			Block: ast.Block[ast.RuleClause]{Conjunctions: defaultConjunctions},
		}
		file.Rules = append([]ast.Rule{defaultRule}, file.Rules...)
	}
	return file, nil
}

// --- let_expr ---

func (p *Parser) parseLetExpr() (ast.LetExpr, error) {
	p.pushContext("let_expr")
	defer p.popContext()

	loc := p.loc()
	if _, err := p.expect(lexer.KwLet); err != nil {
		return ast.LetExpr{}, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return ast.LetExpr{}, err
	}
	if p.current().Type != lexer.Assign && p.current().Type != lexer.Walrus {
		return ast.LetExpr{}, p.errorf("expected '=' or ':=' after let %s", nameTok.Value)
	}
	p.advance()
	val, err := p.parseValueOrQuery()
	if err != nil {
		return ast.LetExpr{}, err
	}
	return ast.LetExpr{Name: nameTok.Value, Value: val, Loc: loc}, nil
}

// --- rule_block ---

func (p *Parser) parseRuleBlock() (ast.Rule, error) {
	p.pushContext("rule_block")
	defer p.popContext()

	loc := p.loc()
	if p.current().Type == lexer.KwWhen && p.peek(1).Type == lexer.KwRule {
		p.advance() // leading "when" before "rule" carries no conditions of its own
	}
	if _, err := p.expect(lexer.KwRule); err != nil {
		return ast.Rule{}, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return ast.Rule{}, err
	}

	var conditions *ast.WhenConditions
	if p.current().Type == lexer.KwWhen {
		c, err := p.parseWhenConditions()
		if err != nil {
			return ast.Rule{}, err
		}
		conditions = &c
	}

	block, err := p.parseRuleClauseBlock()
	if err != nil {
		return ast.Rule{}, err
	}
	return ast.Rule{Name: nameTok.Value, Conditions: conditions, Block: block, Loc: loc}, nil
}

// --- block(rule_clause) ---

func (p *Parser) parseRuleClauseBlock() (ast.Block[ast.RuleClause], error) {
	p.pushContext("block<rule_clause>")
	defer p.popContext()

	if _, err := p.expect(lexer.LBrace); err != nil {
		return ast.Block[ast.RuleClause]{}, err
	}
	var block ast.Block[ast.RuleClause]
	for p.current().Type != lexer.RBrace && !p.atEnd() {
		if p.current().Type == lexer.KwLet {
			le, err := p.parseLetExpr()
			if err != nil {
				return ast.Block[ast.RuleClause]{}, err
			}
			block.Assignments = append(block.Assignments, le)
			continue
		}
		group, err := p.parseRuleClauseGroup()
		if err != nil {
			return ast.Block[ast.RuleClause]{}, err
		}
		block.Conjunctions = append(block.Conjunctions, group)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return ast.Block[ast.RuleClause]{}, err
	}
	return block, nil
}

func (p *Parser) parseRuleClauseGroup() ([]ast.RuleClause, error) {
	first, err := p.parseRuleClause()
	if err != nil {
		return nil, err
	}
	group := []ast.RuleClause{first}
	for p.current().Type == lexer.KwOr {
		p.advance()
		next, err := p.parseRuleClause()
		if err != nil {
			return nil, err
		}
		group = append(group, next)
	}
	return group, nil
}

// rule_clause := type_block | when_block(clause|rule_clause) | clause
func (p *Parser) parseRuleClause() (ast.RuleClause, error) {
	if p.current().Type == lexer.KwWhen {
		conds, err := p.parseWhenConditions()
		if err != nil {
			return nil, err
		}
		body, err := p.parseGuardClauseBlock()
		if err != nil {
			return nil, err
		}
		return ast.WhenBlockRuleClause{Conditions: conds, Body: body}, nil
	}
	if p.current().Type == lexer.IDENT && p.peek(1).Type == lexer.DoubleColon {
		tb, err := p.parseTypeBlock()
		if err != nil {
			return nil, err
		}
		return ast.TypeBlockRuleClause{Clause: tb}, nil
	}
	clause, err := p.parseGuardClause()
	if err != nil {
		return nil, err
	}
	return ast.ClauseRuleClause{Clause: clause}, nil
}

// --- type_block ---

func (p *Parser) parseTypeBlock() (ast.TypeBlock, error) {
	p.pushContext("type_block")
	defer p.popContext()

	loc := p.loc()
	first, err := p.expect(lexer.IDENT)
	if err != nil {
		return ast.TypeBlock{}, err
	}
	if _, err := p.expect(lexer.DoubleColon); err != nil {
		return ast.TypeBlock{}, err
	}
	second, err := p.expect(lexer.IDENT)
	if err != nil {
		return ast.TypeBlock{}, err
	}
	typeName := first.Value + "::" + second.Value

	// disambiguation rule 3: the 3-segment (and ::MODULE) forms extend
	// the 2-segment form greedily; a bare "name::name" is accepted
	// outright when no further "::" follows.
	for p.current().Type == lexer.DoubleColon {
		p.advance()
		if p.current().Type == lexer.KwModule {
			p.advance()
			typeName += "::MODULE"
			break
		}
		seg, err := p.expect(lexer.IDENT)
		if err != nil {
			return ast.TypeBlock{}, err
		}
		typeName += "::" + seg.Value
	}

	var conditions *ast.WhenConditions
	if p.current().Type == lexer.KwWhen {
		c, err := p.parseWhenConditions()
		if err != nil {
			return ast.TypeBlock{}, err
		}
		conditions = &c
	}

	var block ast.Block[ast.GuardClause]
	if p.current().Type == lexer.LBrace {
		block, err = p.parseGuardClauseBlock()
		if err != nil {
			return ast.TypeBlock{}, err
		}
	} else {
		clause, err := p.parseGuardClause()
		if err != nil {
			return ast.TypeBlock{}, err
		}
		block = ast.Block[ast.GuardClause]{
			Conjunctions: ast.Conjunctions[ast.GuardClause]{{clause}},
		}
	}
	return ast.TypeBlock{TypeName: typeName, Conditions: conditions, Block: block, Loc: loc}, nil
}

// --- when_conditions ---

func (p *Parser) parseWhenConditions() (ast.WhenConditions, error) {
	p.pushContext("when_conditions")
	defer p.popContext()

	if _, err := p.expect(lexer.KwWhen); err != nil {
		return ast.WhenConditions{}, err
	}
	var conjunctions ast.Conjunctions[ast.GuardClause]
	for {
		group, err := p.parseWhenClauseGroup()
		if err != nil {
			return ast.WhenConditions{}, err
		}
		conjunctions = append(conjunctions, group)
		if !p.startsWhenClause() {
			break
		}
	}
	return ast.WhenConditions{Conjunctions: conjunctions}, nil
}

func (p *Parser) parseWhenClauseGroup() ([]ast.GuardClause, error) {
	first, err := p.parseWhenClause()
	if err != nil {
		return nil, err
	}
	group := []ast.GuardClause{first}
	for p.current().Type == lexer.KwOr {
		p.advance()
		next, err := p.parseWhenClause()
		if err != nil {
			return nil, err
		}
		group = append(group, next)
	}
	return group, nil
}

// when_clause := guard_access_clause | named_rule_clause (no nested
// block_clause or when_block, per grammar) — so a bare name followed
// by '{' here is a named-rule reference terminated by the body the
// conditions gate, never a block clause.
func (p *Parser) parseWhenClause() (ast.GuardClause, error) {
	return p.parseGuardAccessOrNamedRule(false)
}

func (p *Parser) startsWhenClause() bool {
	switch p.current().Type {
	case lexer.KwWhen, lexer.LBrace, lexer.EOF, lexer.RBrace, lexer.KwLet, lexer.KwRule:
		return false
	default:
		return true
	}
}

// --- block(guard_clause) ---

func (p *Parser) parseGuardClauseBlock() (ast.Block[ast.GuardClause], error) {
	p.pushContext("block<clause>")
	defer p.popContext()

	if _, err := p.expect(lexer.LBrace); err != nil {
		return ast.Block[ast.GuardClause]{}, err
	}
	var block ast.Block[ast.GuardClause]
	for p.current().Type != lexer.RBrace && !p.atEnd() {
		if p.current().Type == lexer.KwLet {
			le, err := p.parseLetExpr()
			if err != nil {
				return ast.Block[ast.GuardClause]{}, err
			}
			block.Assignments = append(block.Assignments, le)
			continue
		}
		group, err := p.parseGuardClauseGroup()
		if err != nil {
			return ast.Block[ast.GuardClause]{}, err
		}
		block.Conjunctions = append(block.Conjunctions, group)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return ast.Block[ast.GuardClause]{}, err
	}
	return block, nil
}

func (p *Parser) parseGuardClauseGroup() ([]ast.GuardClause, error) {
	first, err := p.parseGuardClause()
	if err != nil {
		return nil, err
	}
	group := []ast.GuardClause{first}
	for p.current().Type == lexer.KwOr {
		p.advance()
		next, err := p.parseGuardClause()
		if err != nil {
			return nil, err
		}
		group = append(group, next)
	}
	return group, nil
}

// clause := when_block(clause) | block_clause | guard_access_clause |
// named_rule_clause
func (p *Parser) parseGuardClause() (ast.GuardClause, error) {
	if p.current().Type == lexer.KwWhen {
		conds, err := p.parseWhenConditions()
		if err != nil {
			return nil, err
		}
		body, err := p.parseGuardClauseBlock()
		if err != nil {
			return nil, err
		}
		return ast.WhenGuard{Conditions: conds, Body: body}, nil
	}
	return p.parseGuardAccessOrNamedRule(true)
}

// parseGuardAccessOrNamedRule implements block_clause, guard_access_clause
// and named_rule_clause together: all three share the "optional not,
// then an access query" prefix, so the query is parsed once and the
// token that follows it (a '{', a comparator, or a clause terminator)
// decides which production was actually written. allowBlock is false inside when-conditions, whose grammar
// has no block_clause production.
func (p *Parser) parseGuardAccessOrNamedRule(allowBlock bool) (ast.GuardClause, error) {
	p.pushContext("clause")
	defer p.popContext()

	loc := p.loc()
	negation := false
	if p.current().Type == lexer.KwNot {
		p.advance()
		negation = true
	}

	query, err := p.parseAccessQuery()
	if err != nil {
		return nil, err
	}
	queryEndLine := p.tokens[p.pos-1].Line

	if p.current().Type == lexer.LBrace {
		if !allowBlock {
			if name, ok := bareName(query); ok {
				return ast.NamedRuleGuard{Clause: ast.GuardNamedRuleClause{
					DependentRule: name, Negation: negation, Loc: loc,
				}}, nil
			}
			return nil, p.errorf("a when condition cannot open a block")
		}
		body, err := p.parseGuardClauseBlock()
		if err != nil {
			return nil, err
		}
		return ast.BlockGuard{Clause: ast.BlockGuardClause{Query: query, Block: body, Loc: loc}}, nil
	}

	if p.comparatorFollows() {
		comparator, err := p.parseComparator()
		if err != nil {
			return nil, err
		}
		// `<query> not EMPTY { ... }` is a block clause asserting the
		// selection is non-empty, not a unary comparison.
		if allowBlock && comparator.Op == ast.OpEmpty && comparator.Negated && p.current().Type == lexer.LBrace {
			body, err := p.parseGuardClauseBlock()
			if err != nil {
				return nil, err
			}
			return ast.BlockGuard{Clause: ast.BlockGuardClause{
				Query: query, Block: body, NotEmptySuffix: true, Loc: loc,
			}}, nil
		}
		var compareWith ast.LetValue
		if !comparator.Op.IsUnary() {
			compareWith, err = p.parseValueOrQuery()
			if err != nil {
				return nil, err
			}
		}
		msg := p.parseOptionalCustomMessage()
		return ast.ClauseGuard{Clause: ast.GuardAccessClause{
			Query: query, Comparator: comparator, CompareWith: compareWith,
			CustomMessage: msg, Negation: negation, Loc: loc,
		}}, nil
	}

	// Neither '{' nor a comparator follows: this can only be a
	// named_rule_clause, and only if the "query" we greedily parsed
	// turned out to be nothing more than a bare name (disambiguation
	// rule 2 — if it had grown dots, indices, or filters it was
	// definitely an access query, and the missing comparator is an
	// error instead of a silent fallback). The lexer drops newlines, so
	// "the next clause starts on a later line" stands in for the
	// grammar's newline lookahead.
	if name, ok := bareName(query); ok {
		msg := p.parseOptionalCustomMessage()
		if msg != "" || p.isClauseTerminator() || p.current().Line > queryEndLine {
			return ast.NamedRuleGuard{Clause: ast.GuardNamedRuleClause{
				DependentRule: name, Negation: negation, CustomMessage: msg, Loc: loc,
			}}, nil
		}
	}
	return nil, p.errorf("expected '{', a comparator, or end of a named-rule reference, found %s", p.current().Type)
}

func bareName(q ast.AccessQuery) (string, bool) {
	if len(q.Parts) != 1 {
		return "", false
	}
	k, ok := q.Parts[0].(ast.Key)
	if !ok {
		return "", false
	}
	return k.Name, true
}

func (p *Parser) isClauseTerminator() bool {
	switch p.current().Type {
	case lexer.EOF, lexer.RBrace, lexer.KwOr:
		return true
	default:
		return false
	}
}

func (p *Parser) comparatorFollows() bool {
	switch p.current().Type {
	case lexer.Eq, lexer.Ne, lexer.Le, lexer.Ge, lexer.Lt, lexer.Gt,
		lexer.KwIn, lexer.KwExists, lexer.KwEmpty,
		lexer.KwIsString, lexer.KwIsList, lexer.KwIsStruct,
		lexer.KwIsBool, lexer.KwIsInt, lexer.KwIsFloat, lexer.KwIsNull:
		return true
	case lexer.KwNot:
		switch p.peek(1).Type {
		case lexer.KwIn, lexer.KwExists, lexer.KwEmpty,
			lexer.KwIsString, lexer.KwIsList, lexer.KwIsStruct,
			lexer.KwIsBool, lexer.KwIsInt, lexer.KwIsFloat, lexer.KwIsNull:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

func (p *Parser) parseOptionalCustomMessage() string {
	if p.current().Type == lexer.CUSTOMMSG {
		return p.advance().Value
	}
	return ""
}

// --- comparator ---

func (p *Parser) parseComparator() (ast.Comparator, error) {
	p.pushContext("comparator")
	defer p.popContext()

	negated := false
	if p.current().Type == lexer.KwNot {
		p.advance()
		negated = true
	}
	tok := p.current()
	var op ast.Op
	switch tok.Type {
	case lexer.Eq:
		op = ast.OpEq
	case lexer.Ne:
		op = ast.OpNe
	case lexer.Le:
		op = ast.OpLe
	case lexer.Ge:
		op = ast.OpGe
	case lexer.Lt:
		op = ast.OpLt
	case lexer.Gt:
		op = ast.OpGt
	case lexer.KwIn:
		op = ast.OpIn
	case lexer.KwExists:
		op = ast.OpExists
	case lexer.KwEmpty:
		op = ast.OpEmpty
	case lexer.KwIsString:
		op = ast.OpIsString
	case lexer.KwIsList:
		op = ast.OpIsList
	case lexer.KwIsStruct:
		op = ast.OpIsStruct
	case lexer.KwIsBool:
		op = ast.OpIsBool
	case lexer.KwIsInt:
		op = ast.OpIsInt
	case lexer.KwIsFloat:
		op = ast.OpIsFloat
	case lexer.KwIsNull:
		op = ast.OpIsNull
	default:
		return ast.Comparator{}, p.errorf("expected a comparator, found %s", tok.Type)
	}
	p.advance()
	return ast.Comparator{Op: op, Negated: negated}, nil
}

// --- access_query ---

func (p *Parser) parseAccessQuery() (ast.AccessQuery, error) {
	p.pushContext("access_query")
	defer p.popContext()

	loc := p.loc()
	matchAll := true
	if p.current().Type == lexer.KwSome {
		p.advance()
		matchAll = false
	}

	var parts []ast.QueryPart
	switch p.current().Type {
	case lexer.KwThis:
		p.advance()
		parts = append(parts, ast.This{})
	case lexer.VARIABLE:
		tok := p.advance()
		parts = append(parts, ast.Key{Name: "%" + tok.Value})
	case lexer.IDENT:
		tok := p.advance()
		parts = append(parts, ast.Key{Name: tok.Value})
	default:
		return ast.AccessQuery{}, p.errorf("expected a query root (this, %%variable, or a name), found %s", p.current().Type)
	}

	for {
		switch p.current().Type {
		case lexer.Dot:
			p.advance()
			part, err := p.parseDottedPart()
			if err != nil {
				return ast.AccessQuery{}, err
			}
			parts = append(parts, part)
		case lexer.LBracket:
			part, err := p.parsePredicateOrIndex()
			if err != nil {
				return ast.AccessQuery{}, err
			}
			parts = append(parts, part)
		default:
			return ast.AccessQuery{Parts: parts, MatchAll: matchAll, Loc: loc}, nil
		}
	}
}

// dotted_part := "." (int | name | "%"name | "*")
func (p *Parser) parseDottedPart() (ast.QueryPart, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		idx, err := strconv.Atoi(tok.Value)
		if err != nil {
			return nil, p.errorf("invalid list index %q", tok.Value)
		}
		return ast.Index{Value: idx}, nil
	case lexer.IDENT:
		p.advance()
		return ast.Key{Name: tok.Value}, nil
	case lexer.VARIABLE:
		p.advance()
		return ast.Key{Name: "%" + tok.Value}, nil
	case lexer.Asterisk:
		p.advance()
		return ast.AllValues{}, nil
	default:
		return nil, p.errorf("expected an index, name, %%variable, or '*' after '.', found %s", tok.Type)
	}
}

// predicate_or_index := "[" (int | "*" | string | map_key_filter | filter_clauses) "]"
func (p *Parser) parsePredicateOrIndex() (ast.QueryPart, error) {
	p.pushContext("predicate_or_index")
	defer p.popContext()

	if _, err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}

	var part ast.QueryPart
	switch p.current().Type {
	case lexer.INT:
		tok := p.advance()
		idx, err := strconv.Atoi(tok.Value)
		if err != nil {
			return nil, p.errorf("invalid list index %q", tok.Value)
		}
		part = ast.Index{Value: idx}
	case lexer.Asterisk:
		p.advance()
		part = ast.AllIndices{}
	case lexer.STRING:
		tok := p.advance()
		part = ast.Key{Name: tok.Value}
	default:
		if p.comparatorFollows() {
			cmp, err := p.parseComparator()
			if err != nil {
				return nil, err
			}
			cw, err := p.parseValueOrQuery()
			if err != nil {
				return nil, err
			}
			part = ast.MapKeyFilter{Comparator: cmp, CompareWith: cw}
		} else {
			conjunctions, err := p.parseFilterConjunctions()
			if err != nil {
				return nil, err
			}
			part = ast.Filter{Conjunctions: conjunctions}
		}
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return part, nil
}

// filter_clauses is conj(clause) read up to the closing ']'.
func (p *Parser) parseFilterConjunctions() (ast.Conjunctions[ast.GuardClause], error) {
	p.pushContext("filter_clauses")
	defer p.popContext()

	var conjunctions ast.Conjunctions[ast.GuardClause]
	for {
		group, err := p.parseGuardClauseGroup()
		if err != nil {
			return nil, err
		}
		conjunctions = append(conjunctions, group)
		if p.current().Type == lexer.RBracket {
			return conjunctions, nil
		}
	}
}

// --- value | access_query ---

func (p *Parser) parseValueOrQuery() (ast.LetValue, error) {
	switch p.current().Type {
	case lexer.STRING, lexer.INT, lexer.FLOAT, lexer.REGEX, lexer.RANGE,
		lexer.KwTrue, lexer.KwFalse, lexer.KwNull, lexer.LBracket, lexer.LBrace:
		v, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		return ast.LiteralValue{Value: v}, nil
	case lexer.IDENT, lexer.VARIABLE, lexer.KwThis, lexer.KwSome:
		q, err := p.parseAccessQuery()
		if err != nil {
			return nil, err
		}
		return ast.AccessClause{Query: q}, nil
	default:
		return nil, p.errorf("expected a value or a query, found %s", p.current().Type)
	}
}

// parseLiteralValue parses the lexer's "value" primitives:
// null/bool before scalars, float before int, regex and ranges as
// their own tokens, and recursive lists/maps. Literal AST constants
// have no document location, so they carry the root path as a
// placeholder.
func (p *Parser) parseLiteralValue() (value.Value, error) {
	root := value.Root()
	tok := p.current()
	switch tok.Type {
	case lexer.KwNull:
		p.advance()
		return value.NewNull(root), nil
	case lexer.KwTrue:
		p.advance()
		return value.NewBool(true, root), nil
	case lexer.KwFalse:
		p.advance()
		return value.NewBool(false, root), nil
	case lexer.STRING:
		p.advance()
		return value.NewString(tok.Value, root), nil
	case lexer.REGEX:
		p.advance()
		return value.NewRegex(tok.Value, root), nil
	case lexer.RANGE:
		p.advance()
		return value.ParseRangeLiteral(tok.Value, root)
	case lexer.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return value.Value{}, p.errorf("invalid float literal %q", tok.Value)
		}
		return value.NewFloat(f, root), nil
	case lexer.INT:
		p.advance()
		i, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return value.Value{}, p.errorf("invalid integer literal %q", tok.Value)
		}
		return value.NewInt(i, root), nil
	case lexer.IDENT:
		// A bare word in literal position (list elements, map values) is
		// a string, e.g. [us-east-1a, us-east-1b].
		p.advance()
		return value.NewString(tok.Value, root), nil
	case lexer.LBracket:
		return p.parseLiteralList()
	case lexer.LBrace:
		return p.parseLiteralMap()
	default:
		return value.Value{}, p.errorf("expected a literal value, found %s", tok.Type)
	}
}

func (p *Parser) parseLiteralList() (value.Value, error) {
	root := value.Root()
	if _, err := p.expect(lexer.LBracket); err != nil {
		return value.Value{}, err
	}
	var items []value.Value
	for p.current().Type != lexer.RBracket {
		item, err := p.parseLiteralValue()
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, item)
		if p.current().Type == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return value.Value{}, err
	}
	return value.NewList(items, root), nil
}

func (p *Parser) parseLiteralMap() (value.Value, error) {
	root := value.Root()
	if _, err := p.expect(lexer.LBrace); err != nil {
		return value.Value{}, err
	}
	m := value.NewMap(root)
	for p.current().Type != lexer.RBrace {
		var key string
		switch p.current().Type {
		case lexer.IDENT:
			key = p.advance().Value
		case lexer.STRING:
			key = p.advance().Value
		default:
			return value.Value{}, p.errorf("expected a map key, found %s", p.current().Type)
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return value.Value{}, err
		}
		val, err := p.parseLiteralValue()
		if err != nil {
			return value.Value{}, err
		}
		m.MapSet(key, val)
		if p.current().Type == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return value.Value{}, err
	}
	return m, nil
}
