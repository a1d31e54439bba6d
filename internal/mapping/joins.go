package mapping

import (
	"fmt"

	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
)

// joinAliases mints join-table aliases. It is a value: each join step
// returns the advanced counter.
type joinAliases struct {
	next int
}

func newJoinAliases(seed int) joinAliases {
	return joinAliases{next: seed}
}

func (a joinAliases) take() (string, joinAliases) {
	return fmt.Sprintf("j%d", a.next), joinAliases{next: a.next + 1}
}

// joinStep is one edge between two resolved, aliased nodes.
type joinStep struct {
	mapping    schema.EdgeMapping
	left       cypher.Node
	right      cypher.Node
	leftAlias  string
	rightAlias string
}

// apply appends the edge's joins to sel and returns the columns an edge
// variable projects to.
func (s joinStep) apply(sch Schema, sel *sqlast.SelectQuery, aliases joinAliases) ([]string, joinAliases, error) {
	switch rel := s.mapping.Relationship.(type) {
	case schema.JoinTable:
		return s.joinTable(sch, sel, rel, aliases)
	case schema.SelfReferential:
		cols, err := s.selfReferential(sch, sel, rel)
		return cols, aliases, err
	case schema.OneToMany:
		cols, err := s.oneToMany(sch, sel, rel)
		return cols, aliases, err
	default:
		panic(fmt.Sprintf("mapping: unhandled relationship %T for edge %s", rel, s.mapping.Type))
	}
}

// joinTable goes left -> association table -> right.
//
//	INNER JOIN <joinTable> jK ON left.pk = jK.fromJoinKey
//	INNER JOIN <rightTable> right ON jK.toJoinKey = right.pk
func (s joinStep) joinTable(sch Schema, sel *sqlast.SelectQuery, rel schema.JoinTable, aliases joinAliases) ([]string, joinAliases, error) {
	left, err := sch.NodeForLabel(s.left.Label)
	if err != nil {
		return nil, aliases, err
	}
	right, err := sch.NodeForLabel(s.right.Label)
	if err != nil {
		return nil, aliases, err
	}

	alias, aliases := aliases.take()
	sel.Join(rel.Table, alias, column(s.leftAlias, left.PrimaryKey)+" = "+column(alias, rel.FromJoinKey))
	sel.Join(right.Table, s.rightAlias, column(alias, rel.ToJoinKey)+" = "+column(s.rightAlias, right.PrimaryKey))
	return []string{alias + ".*"}, aliases, nil
}

// selfReferential joins the left node's table again under the right alias.
//
//	INNER JOIN <leftTable> right ON left.fromKey = right.toKey
func (s joinStep) selfReferential(sch Schema, sel *sqlast.SelectQuery, rel schema.SelfReferential) ([]string, error) {
	left, err := sch.NodeForLabel(s.left.Label)
	if err != nil {
		return nil, err
	}
	from, to := column(s.leftAlias, rel.FromKey), column(s.rightAlias, rel.ToKey)
	sel.Join(left.Table, s.rightAlias, from+" = "+to)
	return []string{from, to}, nil
}

// oneToMany joins the right node's table. The ON condition always reads
// child.fk = parent.pk; which side is the parent depends on the node labels.
// When parent and child share a label the left node is the parent.
func (s joinStep) oneToMany(sch Schema, sel *sqlast.SelectQuery, rel schema.OneToMany) ([]string, error) {
	right, err := sch.NodeForLabel(s.right.Label)
	if err != nil {
		return nil, err
	}

	var parentAlias, childAlias string
	switch {
	case s.left.Label == rel.ParentLabel && s.right.Label == rel.ChildLabel:
		parentAlias, childAlias = s.leftAlias, s.rightAlias
	case s.right.Label == rel.ParentLabel && s.left.Label == rel.ChildLabel:
		parentAlias, childAlias = s.rightAlias, s.leftAlias
	default:
		return nil, errs.MismatchedEndpointLabels(s.mapping.Type, s.left.Label, s.right.Label)
	}

	fk, pk := column(childAlias, rel.ChildForeignKey), column(parentAlias, rel.ParentPrimaryKey)
	sel.Join(right.Table, s.rightAlias, fk+" = "+pk)
	return []string{fk, pk}, nil
}

func column(alias, name string) string {
	return alias + "." + name
}
