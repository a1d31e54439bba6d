package parser

import (
	"strings"

	"github.com/roach88/cypher2sql/pkg/cypher"
)

// Rule names emitted by the parser. They follow the openCypher grammar.
const (
	RuleCypher              = "oC_Cypher"
	RuleSingleQuery         = "oC_SingleQuery"
	RuleMatch               = "oC_Match"
	RuleWhere               = "oC_Where"
	RulePattern             = "oC_Pattern"
	RulePatternPart         = "oC_PatternPart"
	RulePatternElement      = "oC_PatternElement"
	RulePatternElementChain = "oC_PatternElementChain"
	RuleNodePattern         = "oC_NodePattern"
	RuleNodeLabel           = "oC_NodeLabel"
	RuleRelationshipPattern = "oC_RelationshipPattern"
	RuleRelationshipDetail  = "oC_RelationshipDetail"
	RuleRelationshipTypes   = "oC_RelationshipTypes"
	RuleRangeLiteral        = "oC_RangeLiteral"
	RuleProperties          = "oC_Properties"
	RuleVariable            = "oC_Variable"
	RuleReturn              = "oC_Return"
	RuleProjectionBody      = "oC_ProjectionBody"
	RuleProjectionItems     = "oC_ProjectionItems"
	RuleProjectionItem      = "oC_ProjectionItem"
	RuleOrder               = "oC_Order"
	RuleSortItem            = "oC_SortItem"
	RuleSkip                = "oC_Skip"
	RuleLimit               = "oC_Limit"
	RuleExpression          = "oC_Expression"
)

// Node is a parse tree node: either a rule with children or a terminal token.
type Node struct {
	rule     string
	token    Token
	children []*Node
}

var _ cypher.Tree = (*Node)(nil)

func ruleNode(rule string) *Node {
	return &Node{rule: rule}
}

func terminal(tok Token) *Node {
	return &Node{token: tok}
}

func (n *Node) add(children ...*Node) *Node {
	n.children = append(n.children, children...)
	return n
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) cypher.Tree { return n.children[i] }

// Rule returns the rule name, or "" for terminals.
func (n *Node) Rule() string { return n.rule }

// Token returns the token of a terminal node.
func (n *Node) Token() Token { return n.token }

// Children returns the node's children.
func (n *Node) Children() []*Node { return n.children }

// Text returns the terminal text, or the concatenated terminal text of a rule.
func (n *Node) Text() string {
	if n.rule == "" {
		return n.token.Text
	}
	var b strings.Builder
	for _, c := range n.children {
		b.WriteString(c.Text())
	}
	return b.String()
}

// Find returns the first descendant (or n itself) with the given rule.
func (n *Node) Find(rule string) *Node {
	if n.rule == rule {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(rule); found != nil {
			return found
		}
	}
	return nil
}

// String renders the tree as an s-expression, e.g. (oC_Variable n).
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n.rule == "" {
		b.WriteString(n.token.Text)
		return
	}
	b.WriteString("(")
	b.WriteString(n.rule)
	for _, c := range n.children {
		b.WriteString(" ")
		c.write(b)
	}
	b.WriteString(")")
}
