// Package cypher holds the pattern and projection model extracted from a
// Cypher query, and the extractor that builds it from a parse tree.
//
// The extractor walks any Tree. The parser subpackage produces one from query
// text; a tree from an ANTLR-generated Cypher parser is adapted with FromANTLR:
//
//	p := gen.NewCypherParser(antlr.NewCommonTokenStream(lexer, 0))
//	ex, err := cypher.Extract(cypher.FromANTLR(p.OC_Cypher(), p.RuleNames))
package cypher

import (
	"fmt"
	"strings"
)

// Direction is the arrow direction of a relationship pattern.
type Direction int

const (
	// Undirected is written (a)-[]-(b).
	Undirected Direction = iota
	// LeftToRight is written (a)-[]->(b).
	LeftToRight
	// RightToLeft is written (a)<-[]-(b).
	RightToLeft
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "->"
	case RightToLeft:
		return "<-"
	default:
		return "--"
	}
}

// Node is one node occurrence in a pattern. Empty strings mean absent.
type Node struct {
	Variable string
	Label    string
}

// IsAnonymous reports whether the node binds no variable.
func (n Node) IsAnonymous() bool {
	return n.Variable == ""
}

// WithLabel returns a copy of n carrying label.
func (n Node) WithLabel(label string) Node {
	n.Label = label
	return n
}

func (n Node) String() string {
	if n.Label == "" {
		return "(" + n.Variable + ")"
	}
	return "(" + n.Variable + ":" + n.Label + ")"
}

// Edge is one relationship occurrence in a pattern.
// Type is empty for untyped and variable-length relationships.
type Edge struct {
	Variable  string
	Type      string
	Direction Direction
}

func (e Edge) String() string {
	inner := e.Variable
	if e.Type != "" {
		inner += ":" + e.Type
	}
	switch e.Direction {
	case LeftToRight:
		return "-[" + inner + "]->"
	case RightToLeft:
		return "<-[" + inner + "]-"
	default:
		return "-[" + inner + "]-"
	}
}

// Pattern is a chain of nodes where edge i connects node i and node i+1.
type Pattern struct {
	nodes []Node
	edges []Edge
}

// NewPattern builds a pattern. It fails unless len(edges) == len(nodes)-1,
// or both are empty.
func NewPattern(nodes []Node, edges []Edge) (Pattern, error) {
	if len(nodes) == 0 && len(edges) == 0 {
		return Pattern{}, nil
	}
	if len(edges) != len(nodes)-1 {
		return Pattern{}, fmt.Errorf("pattern has %d nodes and %d edges", len(nodes), len(edges))
	}
	return Pattern{
		nodes: append([]Node(nil), nodes...),
		edges: append([]Edge(nil), edges...),
	}, nil
}

// MustPattern is NewPattern that panics on error. For tests and literals.
func MustPattern(nodes []Node, edges []Edge) Pattern {
	p, err := NewPattern(nodes, edges)
	if err != nil {
		panic(err)
	}
	return p
}

// Nodes returns a copy of the pattern's nodes.
func (p Pattern) Nodes() []Node {
	return append([]Node(nil), p.nodes...)
}

// Edges returns a copy of the pattern's edges.
func (p Pattern) Edges() []Edge {
	return append([]Edge(nil), p.edges...)
}

// NodeAt returns the node at position i.
func (p Pattern) NodeAt(i int) Node {
	return p.nodes[i]
}

// EdgeAt returns the edge at position i.
func (p Pattern) EdgeAt(i int) Edge {
	return p.edges[i]
}

// Len returns the number of nodes.
func (p Pattern) Len() int {
	return len(p.nodes)
}

// AliasAt returns the SQL alias of the node at position i.
func AliasAt(i int) string {
	return fmt.Sprintf("t%d", i)
}

// RootAlias is the alias of the first node.
func (p Pattern) RootAlias() string {
	return AliasAt(0)
}

// AliasForVariable returns the alias of the first node binding variable.
func (p Pattern) AliasForVariable(variable string) (string, bool) {
	if variable == "" {
		return "", false
	}
	for i, n := range p.nodes {
		if n.Variable == variable {
			return AliasAt(i), true
		}
	}
	return "", false
}

func (p Pattern) String() string {
	var b strings.Builder
	for i, n := range p.nodes {
		b.WriteString(n.String())
		if i < len(p.edges) {
			b.WriteString(p.edges[i].String())
		}
	}
	return b.String()
}

// ReturnItem is one projected value: a whole variable or variable.property.
type ReturnItem struct {
	Variable string
	Property string
}

func (r ReturnItem) String() string {
	if r.Property == "" {
		return r.Variable
	}
	return r.Variable + "." + r.Property
}

// Query bundles a query's raw text, its tree and the extracted model.
// It is built once and never mutated.
type Query struct {
	raw         string
	tree        Tree
	patterns    []Pattern
	returnItems []ReturnItem
}

// NewQuery extracts patterns and return items from tree.
func NewQuery(raw string, tree Tree) (*Query, error) {
	ex, err := Extract(tree)
	if err != nil {
		return nil, err
	}
	q := &Query{raw: raw, tree: tree, returnItems: ex.ReturnItems}
	if ex.Pattern != nil {
		q.patterns = []Pattern{*ex.Pattern}
	}
	return q, nil
}

// NewQueryFromParts assembles a query from an already extracted model.
func NewQueryFromParts(raw string, patterns []Pattern, items []ReturnItem) *Query {
	return &Query{
		raw:         raw,
		patterns:    append([]Pattern(nil), patterns...),
		returnItems: append([]ReturnItem(nil), items...),
	}
}

// Raw returns the source text.
func (q *Query) Raw() string { return q.raw }

// Tree returns the parse tree the query was extracted from, or nil.
func (q *Query) Tree() Tree { return q.tree }

// Patterns returns the extracted patterns (zero or one).
func (q *Query) Patterns() []Pattern {
	return append([]Pattern(nil), q.patterns...)
}

// ReturnItems returns the projection list in source order.
func (q *Query) ReturnItems() []ReturnItem {
	return append([]ReturnItem(nil), q.returnItems...)
}
