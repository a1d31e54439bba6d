// Package mapping translates an extracted graph pattern into a relational
// SELECT by consulting a schema of label and relationship-type mappings.
//
// Translation is a pure function of the query and the schema:
//
//  1. Reject variable-length traversal ("[*" in the raw text).
//  2. Take the query's pattern; a query without nodes is an EmptyPattern error.
//  3. Resolve every edge mapping, then infer labels for anonymous nodes from
//     their neighboring edges.
//  4. Alias nodes t0..t(n-1) by position. Join-table aliases jK are minted
//     from a counter seeded at n.
//  5. Emit joins edge by edge in pattern order.
//  6. Resolve the RETURN items into select columns.
//
// Nothing partial is returned on failure. Edge direction is carried by the
// pattern but does not influence the joins.
package mapping

import (
	"fmt"
	"strings"

	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
)

// Schema is the lookup capability translation needs. *schema.Definition
// implements it.
type Schema interface {
	NodeForLabel(label string) (schema.NodeMapping, error)
	EdgeForType(typ string) (schema.EdgeMapping, error)
}

// Engine translates queries against one schema. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	schema Schema
}

// New returns an Engine over s.
func New(s Schema) *Engine {
	return &Engine{schema: s}
}

// Translate builds the SelectQuery for q.
func (e *Engine) Translate(q *cypher.Query) (*sqlast.SelectQuery, error) {
	return Translate(e.schema, q)
}

// Translate builds the SelectQuery for q against s.
func Translate(s Schema, q *cypher.Query) (*sqlast.SelectQuery, error) {
	if q == nil {
		return nil, errs.EmptyPattern()
	}
	if strings.Contains(q.Raw(), "[*") {
		return nil, errs.UnsupportedFeature("variable-length traversal")
	}

	patterns := q.Patterns()
	if len(patterns) == 0 || patterns[0].Len() == 0 {
		return nil, errs.EmptyPattern()
	}
	pattern := patterns[0]

	edges, err := resolveEdges(s, pattern)
	if err != nil {
		return nil, err
	}
	nodes, err := resolveLabels(pattern, edges)
	if err != nil {
		return nil, err
	}

	root, err := s.NodeForLabel(nodes[0].Label)
	if err != nil {
		return nil, err
	}
	sel := sqlast.NewSelect(root.Table, pattern.RootAlias())

	aliases := newJoinAliases(len(nodes))
	bound := make(map[string][]string)
	for i, edge := range pattern.Edges() {
		step := joinStep{
			mapping:    edges[i],
			left:       nodes[i],
			right:      nodes[i+1],
			leftAlias:  cypher.AliasAt(i),
			rightAlias: cypher.AliasAt(i + 1),
		}
		var columns []string
		columns, aliases, err = step.apply(s, sel, aliases)
		if err != nil {
			return nil, err
		}
		if edge.Variable != "" {
			bound[edge.Variable] = columns
		}
	}

	columns, err := project(pattern, q.ReturnItems(), bound)
	if err != nil {
		return nil, err
	}
	sel.Column(columns...)
	return sel, nil
}

// resolveEdges looks up every edge mapping in pattern order.
func resolveEdges(s Schema, p cypher.Pattern) ([]schema.EdgeMapping, error) {
	edges := make([]schema.EdgeMapping, 0, len(p.Edges()))
	for _, edge := range p.Edges() {
		m, err := s.EdgeForType(edge.Type)
		if err != nil {
			return nil, err
		}
		if m.Relationship == nil {
			return nil, fmt.Errorf("mapping: edge %s has no relationship", m.Type)
		}
		edges = append(edges, m)
	}
	return edges, nil
}

// resolveLabels returns the pattern's nodes with anonymous labels inferred
// from the edge on each side: the left edge's ToLabel and the right edge's
// FromLabel must agree when both exist. A node with neither stays unlabeled.
func resolveLabels(p cypher.Pattern, edges []schema.EdgeMapping) ([]cypher.Node, error) {
	nodes := p.Nodes()
	for i, n := range nodes {
		if n.Label != "" {
			continue
		}
		var inferred string
		if i > 0 {
			inferred = edges[i-1].Relationship.ToLabel()
		}
		if i < len(edges) {
			from := edges[i].Relationship.FromLabel()
			switch {
			case inferred == "":
				inferred = from
			case from != "" && from != inferred:
				return nil, errs.AmbiguousLabel(i, inferred, from)
			}
		}
		nodes[i] = n.WithLabel(inferred)
	}
	return nodes, nil
}
