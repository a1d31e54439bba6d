package parser

import (
	"fmt"
	"strings"

	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/errs"
)

// clause keywords that end a WHERE expression or start an unsupported clause
var clauseKeywords = map[string]bool{
	"MATCH": true, "OPTIONAL": true, "RETURN": true, "WITH": true,
	"UNWIND": true, "CREATE": true, "MERGE": true, "DELETE": true,
	"DETACH": true, "SET": true, "REMOVE": true, "CALL": true,
	"UNION": true, "FOREACH": true, "LOAD": true,
}

// Parse parses a query into an openCypher-shaped tree.
func Parse(input string) (*Node, error) {
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseCypher()
}

// ParseQuery parses input and extracts its pattern and return items.
// Syntax failures are reported as errs.CodeSyntax.
func ParseQuery(input string) (*cypher.Query, error) {
	tree, err := Parse(input)
	if err != nil {
		return nil, errs.Syntax(input, err)
	}
	return cypher.NewQuery(input, tree)
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) Token {
	if p.pos+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+off]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atPunct(s string) bool {
	tok := p.peek()
	return tok.Kind == TokenPunct && tok.Text == s
}

func (p *parser) atKeyword(kw string) bool {
	return isKeyword(p.peek(), kw)
}

func isKeyword(tok Token, kw string) bool {
	return tok.Kind == TokenIdent && strings.EqualFold(tok.Text, kw)
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &SyntaxError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func describe(tok Token) string {
	if tok.Kind == TokenEOF {
		return tok.Kind.String()
	}
	return fmt.Sprintf("%q", tok.Text)
}

func (p *parser) expectPunct(s string) (*Node, error) {
	if !p.atPunct(s) {
		return nil, p.errorf(p.peek(), "expected %q, found %s", s, describe(p.peek()))
	}
	return terminal(p.next()), nil
}

func (p *parser) expectKeyword(kw string) (*Node, error) {
	if !p.atKeyword(kw) {
		return nil, p.errorf(p.peek(), "expected %s, found %s", kw, describe(p.peek()))
	}
	return terminal(p.next()), nil
}

func (p *parser) expectIdent(what string) (*Node, error) {
	if p.peek().Kind != TokenIdent {
		return nil, p.errorf(p.peek(), "expected %s, found %s", what, describe(p.peek()))
	}
	return terminal(p.next()), nil
}

func (p *parser) parseCypher() (*Node, error) {
	root := ruleNode(RuleCypher)
	query := ruleNode(RuleSingleQuery)
	root.add(query)

	returned := false
	for !returned && p.peek().Kind != TokenEOF && !p.atPunct(";") {
		tok := p.peek()
		switch {
		case isKeyword(tok, "MATCH") || isKeyword(tok, "OPTIONAL"):
			m, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			query.add(m)
		case isKeyword(tok, "RETURN"):
			r, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			query.add(r)
			returned = true
		case tok.Kind == TokenIdent && clauseKeywords[strings.ToUpper(tok.Text)]:
			return nil, p.errorf(tok, "unsupported clause %s", strings.ToUpper(tok.Text))
		default:
			return nil, p.errorf(tok, "expected MATCH or RETURN, found %s", describe(tok))
		}
	}
	if len(query.children) == 0 {
		return nil, p.errorf(p.peek(), "empty query")
	}
	if p.atPunct(";") {
		root.add(terminal(p.next()))
	}
	if p.peek().Kind != TokenEOF {
		return nil, p.errorf(p.peek(), "unexpected %s after end of query", describe(p.peek()))
	}
	return root, nil
}

func (p *parser) parseMatch() (*Node, error) {
	m := ruleNode(RuleMatch)
	if p.atKeyword("OPTIONAL") {
		m.add(terminal(p.next()))
	}
	kw, err := p.expectKeyword("MATCH")
	if err != nil {
		return nil, err
	}
	m.add(kw)

	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	m.add(pattern)

	if p.atKeyword("WHERE") {
		where := ruleNode(RuleWhere).add(terminal(p.next()))
		expr, err := p.parseExpression(stopAtClause)
		if err != nil {
			return nil, err
		}
		m.add(where.add(expr))
	}
	return m, nil
}

func (p *parser) parsePattern() (*Node, error) {
	pattern := ruleNode(RulePattern)
	for {
		part, err := p.parsePatternPart()
		if err != nil {
			return nil, err
		}
		pattern.add(part)
		if !p.atPunct(",") {
			return pattern, nil
		}
		pattern.add(terminal(p.next()))
	}
}

func (p *parser) parsePatternPart() (*Node, error) {
	part := ruleNode(RulePatternPart)
	// path = (a)-->(b)
	if p.peek().Kind == TokenIdent && p.peekAt(1).Kind == TokenPunct && p.peekAt(1).Text == "=" {
		part.add(ruleNode(RuleVariable).add(terminal(p.next())), terminal(p.next()))
	}
	elem, err := p.parsePatternElement()
	if err != nil {
		return nil, err
	}
	return part.add(elem), nil
}

func (p *parser) parsePatternElement() (*Node, error) {
	elem := ruleNode(RulePatternElement)
	if p.atPunct("(") && p.peekAt(1).Kind == TokenPunct && p.peekAt(1).Text == "(" {
		open := terminal(p.next())
		inner, err := p.parsePatternElement()
		if err != nil {
			return nil, err
		}
		closing, err := p.expectPunct(")")
		if err != nil {
			return nil, err
		}
		return elem.add(open, inner, closing), nil
	}

	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	elem.add(node)
	for p.atPunct("-") || p.atPunct("<") {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return nil, err
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		elem.add(ruleNode(RulePatternElementChain).add(rel, node))
	}
	return elem, nil
}

func (p *parser) parseNodePattern() (*Node, error) {
	n := ruleNode(RuleNodePattern)
	open, err := p.expectPunct("(")
	if err != nil {
		return nil, err
	}
	n.add(open)

	if p.peek().Kind == TokenIdent && !p.atKeyword("WHERE") {
		n.add(ruleNode(RuleVariable).add(terminal(p.next())))
	}
	for p.atPunct(":") {
		colon := terminal(p.next())
		name, err := p.expectIdent("label name")
		if err != nil {
			return nil, err
		}
		n.add(ruleNode(RuleNodeLabel).add(colon, name))
	}
	if p.atPunct("{") || p.peek().Kind == TokenParam {
		props, err := p.parseProperties()
		if err != nil {
			return nil, err
		}
		n.add(props)
	}
	if p.atKeyword("WHERE") {
		where := ruleNode(RuleWhere).add(terminal(p.next()))
		expr, err := p.parseExpression(stopAtPunct(")"))
		if err != nil {
			return nil, err
		}
		n.add(where.add(expr))
	}

	closing, err := p.expectPunct(")")
	if err != nil {
		return nil, err
	}
	return n.add(closing), nil
}

func (p *parser) parseRelationshipPattern() (*Node, error) {
	rel := ruleNode(RuleRelationshipPattern)
	if p.atPunct("<") {
		rel.add(terminal(p.next()))
	}
	dash, err := p.expectPunct("-")
	if err != nil {
		return nil, err
	}
	rel.add(dash)

	if p.atPunct("[") {
		detail, err := p.parseRelationshipDetail()
		if err != nil {
			return nil, err
		}
		rel.add(detail)
	}

	dash, err = p.expectPunct("-")
	if err != nil {
		return nil, err
	}
	rel.add(dash)
	if p.atPunct(">") {
		rel.add(terminal(p.next()))
	}
	return rel, nil
}

func (p *parser) parseRelationshipDetail() (*Node, error) {
	d := ruleNode(RuleRelationshipDetail).add(terminal(p.next()))

	if p.peek().Kind == TokenIdent && !p.atKeyword("WHERE") {
		d.add(ruleNode(RuleVariable).add(terminal(p.next())))
	}
	if p.atPunct(":") {
		types := ruleNode(RuleRelationshipTypes).add(terminal(p.next()))
		name, err := p.expectIdent("relationship type")
		if err != nil {
			return nil, err
		}
		types.add(name)
		for p.atPunct("|") {
			types.add(terminal(p.next()))
			if p.atPunct(":") {
				types.add(terminal(p.next()))
			}
			name, err := p.expectIdent("relationship type")
			if err != nil {
				return nil, err
			}
			types.add(name)
		}
		d.add(types)
	}
	if p.atPunct("*") {
		rng := ruleNode(RuleRangeLiteral).add(terminal(p.next()))
		if p.peek().Kind == TokenNumber {
			rng.add(terminal(p.next()))
		}
		if p.atPunct("..") {
			rng.add(terminal(p.next()))
			if p.peek().Kind == TokenNumber {
				rng.add(terminal(p.next()))
			}
		}
		d.add(rng)
	}
	if p.atPunct("{") || p.peek().Kind == TokenParam {
		props, err := p.parseProperties()
		if err != nil {
			return nil, err
		}
		d.add(props)
	}
	if p.atKeyword("WHERE") {
		where := ruleNode(RuleWhere).add(terminal(p.next()))
		expr, err := p.parseExpression(stopAtPunct("]"))
		if err != nil {
			return nil, err
		}
		d.add(where.add(expr))
	}

	closing, err := p.expectPunct("]")
	if err != nil {
		return nil, err
	}
	return d.add(closing), nil
}

// parseProperties reads a {...} map literal or a $parameter.
func (p *parser) parseProperties() (*Node, error) {
	props := ruleNode(RuleProperties)
	if p.peek().Kind == TokenParam {
		return props.add(terminal(p.next())), nil
	}
	start := p.peek()
	depth := 0
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			return nil, p.errorf(start, "unterminated property map")
		}
		props.add(terminal(p.next()))
		switch {
		case tok.Kind == TokenPunct && tok.Text == "{":
			depth++
		case tok.Kind == TokenPunct && tok.Text == "}":
			depth--
			if depth == 0 {
				return props, nil
			}
		}
	}
}

func (p *parser) parseReturn() (*Node, error) {
	ret := ruleNode(RuleReturn).add(terminal(p.next()))
	if p.atKeyword("DISTINCT") {
		ret.add(terminal(p.next()))
	}

	body := ruleNode(RuleProjectionBody)
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	body.add(items)

	if p.atKeyword("ORDER") {
		order, err := p.parseOrder()
		if err != nil {
			return nil, err
		}
		body.add(order)
	}
	if p.atKeyword("SKIP") {
		skip := ruleNode(RuleSkip).add(terminal(p.next()))
		expr, err := p.parseExpression(stopAtKeywords("LIMIT"))
		if err != nil {
			return nil, err
		}
		body.add(skip.add(expr))
	}
	if p.atKeyword("LIMIT") {
		limit := ruleNode(RuleLimit).add(terminal(p.next()))
		expr, err := p.parseExpression(stopAtKeywords())
		if err != nil {
			return nil, err
		}
		body.add(limit.add(expr))
	}
	return ret.add(body), nil
}

func (p *parser) parseProjectionItems() (*Node, error) {
	items := ruleNode(RuleProjectionItems)
	if p.atPunct("*") {
		items.add(terminal(p.next()))
		if !p.atPunct(",") {
			return items, nil
		}
		items.add(terminal(p.next()))
	}
	for {
		item := ruleNode(RuleProjectionItem)
		expr, err := p.parseExpression(stopAtKeywords("AS", "ORDER", "SKIP", "LIMIT"))
		if err != nil {
			return nil, err
		}
		item.add(expr)
		if p.atKeyword("AS") {
			item.add(terminal(p.next()))
			name, err := p.expectIdent("alias")
			if err != nil {
				return nil, err
			}
			item.add(ruleNode(RuleVariable).add(name))
		}
		items.add(item)
		if !p.atPunct(",") {
			return items, nil
		}
		items.add(terminal(p.next()))
	}
}

func (p *parser) parseOrder() (*Node, error) {
	order := ruleNode(RuleOrder).add(terminal(p.next()))
	by, err := p.expectKeyword("BY")
	if err != nil {
		return nil, err
	}
	order.add(by)
	for {
		sort := ruleNode(RuleSortItem)
		expr, err := p.parseExpression(stopAtKeywords("ASC", "ASCENDING", "DESC", "DESCENDING", "SKIP", "LIMIT"))
		if err != nil {
			return nil, err
		}
		sort.add(expr)
		for _, kw := range []string{"ASC", "ASCENDING", "DESC", "DESCENDING"} {
			if p.atKeyword(kw) {
				sort.add(terminal(p.next()))
				break
			}
		}
		order.add(sort)
		if !p.atPunct(",") {
			return order, nil
		}
		order.add(terminal(p.next()))
	}
}

// stopFunc reports whether tok ends an expression at nesting depth zero.
// prev is the token before tok.
type stopFunc func(tok, prev Token) bool

func stopAtClause(tok, prev Token) bool {
	if tok.Kind != TokenIdent || !clauseKeywords[strings.ToUpper(tok.Text)] {
		return false
	}
	// STARTS WITH / ENDS WITH
	if isKeyword(tok, "WITH") && (isKeyword(prev, "STARTS") || isKeyword(prev, "ENDS")) {
		return false
	}
	return true
}

func stopAtPunct(s string) stopFunc {
	return func(tok, _ Token) bool {
		return tok.Kind == TokenPunct && tok.Text == s
	}
}

// stopAtKeywords stops at a comma, a semicolon, a clause keyword or any of kws.
func stopAtKeywords(kws ...string) stopFunc {
	return func(tok, prev Token) bool {
		if tok.Kind == TokenPunct && (tok.Text == "," || tok.Text == ";") {
			return true
		}
		if stopAtClause(tok, prev) {
			return true
		}
		for _, kw := range kws {
			if isKeyword(tok, kw) {
				return true
			}
		}
		return false
	}
}

var closers = map[string]string{")": "(", "]": "[", "}": "{"}

// parseExpression collects a balanced run of tokens. Expressions are opaque
// to the translator, so no precedence structure is built.
func (p *parser) parseExpression(stop stopFunc) (*Node, error) {
	expr := ruleNode(RuleExpression)
	var (
		stack []string
		prev  Token
	)
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			if len(stack) > 0 {
				return nil, p.errorf(tok, "unbalanced %q in expression", stack[len(stack)-1])
			}
			break
		}
		// a property access like n.as never ends the expression
		afterDot := prev.Kind == TokenPunct && prev.Text == "."
		if len(stack) == 0 && !afterDot && stop(tok, prev) {
			break
		}
		if tok.Kind == TokenPunct {
			switch tok.Text {
			case "(", "[", "{":
				stack = append(stack, tok.Text)
			case ")", "]", "}":
				if len(stack) == 0 || stack[len(stack)-1] != closers[tok.Text] {
					return nil, p.errorf(tok, "unexpected %q in expression", tok.Text)
				}
				stack = stack[:len(stack)-1]
			}
		}
		expr.add(terminal(p.next()))
		prev = tok
	}
	if len(expr.children) == 0 {
		return nil, p.errorf(p.peek(), "expected expression, found %s", describe(p.peek()))
	}
	return expr, nil
}
