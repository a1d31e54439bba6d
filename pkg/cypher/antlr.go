package cypher

import (
	"github.com/antlr4-go/antlr/v4"
)

// FromANTLR adapts a tree produced by an ANTLR-generated Cypher parser.
// ruleNames is the generated parser's RuleNames table; rule contexts are
// named through their rule index, and every other node is a terminal.
func FromANTLR(tree antlr.Tree, ruleNames []string) Tree {
	if tree == nil {
		return nil
	}
	return antlrTree{node: tree, ruleNames: ruleNames}
}

type antlrTree struct {
	node      antlr.Tree
	ruleNames []string
}

func (a antlrTree) ChildCount() int {
	return a.node.GetChildCount()
}

func (a antlrTree) Child(i int) Tree {
	return antlrTree{node: a.node.GetChild(i), ruleNames: a.ruleNames}
}

func (a antlrTree) Rule() string {
	rc, ok := a.node.(interface{ GetRuleIndex() int })
	if !ok {
		return ""
	}
	idx := rc.GetRuleIndex()
	if idx < 0 || idx >= len(a.ruleNames) {
		return ""
	}
	return a.ruleNames[idx]
}

func (a antlrTree) Text() string {
	if pt, ok := a.node.(interface{ GetText() string }); ok {
		return pt.GetText()
	}
	return ""
}
