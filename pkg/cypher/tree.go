package cypher

import (
	"strings"
	"unicode"
)

// Tree is the read-only view of a parse tree the extractor walks.
// Any grammar front end can satisfy it; rule names are matched loosely
// (case and punctuation are ignored), so "oC_NodePattern" and "nodePattern"
// are the same production.
type Tree interface {
	// ChildCount returns the number of children.
	ChildCount() int
	// Child returns the i-th child.
	Child(i int) Tree
	// Rule returns the production name, or "" for terminals.
	Rule() string
	// Text returns the token text of a terminal, or the concatenated
	// terminal text of a rule node.
	Text() string
}

// Production suffixes recognized by the extractor, in normalized form.
const (
	rulePatternPart         = "patternpart"
	rulePatternElement      = "patternelement"
	ruleNodePattern         = "nodepattern"
	ruleRelationshipPattern = "relationshippattern"
	ruleReturnItem          = "returnitem"
	ruleProjectionItem      = "projectionitem"
)

// normalizeRule lowercases name and drops everything but letters and digits.
func normalizeRule(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func ruleIs(t Tree, suffixes ...string) bool {
	name := t.Rule()
	if name == "" {
		return false
	}
	norm := normalizeRule(name)
	for _, s := range suffixes {
		if strings.HasSuffix(norm, s) {
			return true
		}
	}
	return false
}

func isTerminal(t Tree) bool {
	return t.Rule() == "" && t.ChildCount() == 0
}

// leaves returns the non-blank terminal texts under t, left to right.
func leaves(t Tree) []string {
	var out []string
	var walk func(Tree)
	walk = func(n Tree) {
		if n.ChildCount() == 0 {
			if text := strings.TrimSpace(n.Text()); text != "" {
				out = append(out, text)
			}
			return
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(t)
	return out
}

// Walk visits t depth-first, pre-order. Returning false from fn skips the
// node's children.
func Walk(t Tree, fn func(Tree) bool) {
	if t == nil {
		return
	}
	if !fn(t) {
		return
	}
	for i := 0; i < t.ChildCount(); i++ {
		Walk(t.Child(i), fn)
	}
}

// isIdentifier reports whether s is a letter or underscore followed by
// letters, digits or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
