package cypher

import (
	"strings"

	"github.com/roach88/cypher2sql/pkg/errs"
)

// Extraction is the structured model pulled out of a parse tree.
type Extraction struct {
	// Pattern is the first pattern found, or nil when the query has none.
	Pattern *Pattern

	// ReturnItems are the projection items in source order.
	ReturnItems []ReturnItem
}

// Extract walks tree and returns its first pattern and its return items.
//
// The first patternPart/patternElement subtree establishes the pattern; every
// nodePattern and relationshipPattern beneath it, in left-to-right order,
// becomes a node or edge. Return items come from every returnItem or
// projectionItem production in the tree.
func Extract(tree Tree) (*Extraction, error) {
	if tree == nil {
		return &Extraction{}, nil
	}

	pattern, err := extractPattern(tree)
	if err != nil {
		return nil, err
	}
	items, err := extractReturnItems(tree)
	if err != nil {
		return nil, err
	}
	return &Extraction{Pattern: pattern, ReturnItems: items}, nil
}

func extractPattern(tree Tree) (*Pattern, error) {
	var root Tree
	Walk(tree, func(t Tree) bool {
		if root != nil {
			return false
		}
		if ruleIs(t, rulePatternPart, rulePatternElement) {
			root = t
			return false
		}
		return true
	})
	if root == nil {
		return nil, nil
	}

	var (
		nodes []Node
		edges []Edge
		err   error
	)
	Walk(root, func(t Tree) bool {
		if err != nil {
			return false
		}
		switch {
		case ruleIs(t, ruleNodePattern):
			var n Node
			n, err = parseNodePattern(t)
			nodes = append(nodes, n)
			return false
		case ruleIs(t, ruleRelationshipPattern):
			var e Edge
			e, err = parseRelationshipPattern(t)
			edges = append(edges, e)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	p, perr := NewPattern(nodes, edges)
	if perr != nil {
		return nil, errs.ParseShape(root.Text(), "malformed pattern: %v", perr)
	}
	return &p, nil
}

// surface joins the leaf tokens of t, stopping before an inline property map,
// a parameter or an inline WHERE predicate.
func surface(t Tree) string {
	var b strings.Builder
	for _, tok := range leaves(t) {
		if tok == "{" || strings.HasPrefix(tok, "$") || strings.EqualFold(tok, "WHERE") {
			break
		}
		b.WriteString(tok)
	}
	return b.String()
}

func parseNodePattern(t Tree) (Node, error) {
	text := surface(t)
	if !strings.HasPrefix(text, "(") {
		return Node{}, errs.ParseShape(t.Text(), "node pattern must start with '(': %q", t.Text())
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "("), ")")
	if body == "" {
		return Node{}, nil
	}

	parts := strings.Split(body, ":")
	n := Node{Variable: parts[0]}
	if n.Variable != "" && !isIdentifier(n.Variable) {
		return Node{}, errs.ParseShape(t.Text(), "invalid node variable %q", n.Variable)
	}
	for i, label := range parts[1:] {
		if !isIdentifier(label) {
			return Node{}, errs.ParseShape(t.Text(), "invalid node label %q", label)
		}
		if i == 0 {
			n.Label = label
		}
	}
	return n, nil
}

func parseRelationshipPattern(t Tree) (Edge, error) {
	full := strings.Join(leaves(t), "")

	var e Edge
	switch {
	case strings.Contains(full, "->"):
		e.Direction = LeftToRight
	case strings.Contains(full, "<-"):
		e.Direction = RightToLeft
	default:
		e.Direction = Undirected
	}

	text := surface(t)
	open := strings.Index(text, "[")
	if open < 0 {
		return e, nil
	}
	content := text[open+1:]
	if end := strings.Index(content, "]"); end >= 0 {
		content = content[:end]
	}

	variableLength := false
	if star := strings.Index(content, "*"); star >= 0 {
		variableLength = true
		content = content[:star]
	}

	// [:T] and [T] both name a type; only [v:T] binds a variable.
	typ := strings.TrimPrefix(content, ":")
	if colon := strings.Index(typ, ":"); colon >= 0 {
		e.Variable, typ = typ[:colon], typ[colon+1:]
	}
	if bar := strings.Index(typ, "|"); bar >= 0 {
		typ = typ[:bar]
	}

	if e.Variable != "" && !isIdentifier(e.Variable) {
		return Edge{}, errs.ParseShape(full, "invalid relationship variable %q", e.Variable)
	}
	if typ != "" && !isIdentifier(typ) {
		return Edge{}, errs.ParseShape(full, "invalid relationship type %q", typ)
	}
	if !variableLength {
		e.Type = typ
	}
	return e, nil
}

func extractReturnItems(tree Tree) ([]ReturnItem, error) {
	var (
		items []ReturnItem
		err   error
	)
	Walk(tree, func(t Tree) bool {
		if err != nil {
			return false
		}
		if !ruleIs(t, ruleReturnItem, ruleProjectionItem) {
			return true
		}
		var item ReturnItem
		item, err = parseReturnItem(t)
		items = append(items, item)
		return false
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func parseReturnItem(t Tree) (ReturnItem, error) {
	var b strings.Builder
	for i := 0; i < t.ChildCount(); i++ {
		child := t.Child(i)
		if isTerminal(child) && strings.EqualFold(strings.TrimSpace(child.Text()), "AS") {
			break
		}
		b.WriteString(child.Text())
	}
	expr := strings.TrimSpace(b.String())

	parts := strings.Split(expr, ".")
	switch {
	case len(parts) == 1 && isIdentifier(parts[0]):
		return ReturnItem{Variable: parts[0]}, nil
	case len(parts) == 2 && isIdentifier(parts[0]) && isIdentifier(parts[1]):
		return ReturnItem{Variable: parts[0], Property: parts[1]}, nil
	default:
		return ReturnItem{}, errs.UnsupportedProjection(expr)
	}
}
