package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/cypher2sql/pkg/errs"
)

// Definition holds the label and relationship-type lookup tables.
// It is immutable once built and safe for concurrent reads.
type Definition struct {
	nodes map[string]NodeMapping
	edges map[string]EdgeMapping
}

// NodeForLabel returns the mapping for label, or an errs.CodeUnknownLabel error.
func (d *Definition) NodeForLabel(label string) (NodeMapping, error) {
	if n, ok := d.nodes[label]; ok && label != "" {
		return n, nil
	}
	return NodeMapping{}, errs.UnknownLabel(label)
}

// EdgeForType returns the mapping for typ, or an errs.CodeUnknownRelationshipType error.
func (d *Definition) EdgeForType(typ string) (EdgeMapping, error) {
	if e, ok := d.edges[typ]; ok && typ != "" {
		return e, nil
	}
	return EdgeMapping{}, errs.UnknownRelationshipType(typ)
}

// Nodes returns the node mappings sorted by label.
func (d *Definition) Nodes() []NodeMapping {
	out := make([]NodeMapping, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Edges returns the edge mappings sorted by type.
func (d *Definition) Edges() []EdgeMapping {
	out := make([]EdgeMapping, 0, len(d.edges))
	for _, e := range d.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Builder accumulates mappings for a Definition.
//
//	def, err := schema.NewBuilder().
//		AddNode(schema.NodeMapping{Label: "Person", Table: "people", PrimaryKey: "id"}).
//		AddEdge("KNOWS", schema.SelfReferential{Label: "Person", FromKey: "id", ToKey: "friend_id"}).
//		Build()
type Builder struct {
	nodes []NodeMapping
	edges []EdgeMapping
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddNode adds a label mapping.
func (b *Builder) AddNode(n NodeMapping) *Builder {
	b.nodes = append(b.nodes, n)
	return b
}

// AddEdge adds a relationship-type mapping.
func (b *Builder) AddEdge(typ string, rel Relationship) *Builder {
	b.edges = append(b.edges, EdgeMapping{Type: typ, Relationship: rel})
	return b
}

// Build checks key uniqueness and required fields, then freezes the mappings.
// Cross-references between edges and nodes are not checked here; see Validate.
func (b *Builder) Build() (*Definition, error) {
	d := &Definition{
		nodes: make(map[string]NodeMapping, len(b.nodes)),
		edges: make(map[string]EdgeMapping, len(b.edges)),
	}

	var problems []error
	for _, n := range b.nodes {
		switch {
		case n.Label == "":
			problems = append(problems, errs.InvalidSchema("", "node mapping with empty label"))
			continue
		case n.Table == "" || n.PrimaryKey == "":
			problems = append(problems, errs.InvalidSchema(n.Label, "node %s: table and primaryKey are required", n.Label))
			continue
		}
		if _, dup := d.nodes[n.Label]; dup {
			problems = append(problems, errs.InvalidSchema(n.Label, "duplicate node label %s", n.Label))
			continue
		}
		d.nodes[n.Label] = n
	}
	for _, e := range b.edges {
		switch {
		case e.Type == "":
			problems = append(problems, errs.InvalidSchema("", "edge mapping with empty type"))
			continue
		case e.Relationship == nil:
			problems = append(problems, errs.InvalidSchema(e.Type, "edge %s: relationship is required", e.Type))
			continue
		}
		if missing := missingFields(e.Relationship); len(missing) > 0 {
			problems = append(problems, errs.InvalidSchema(e.Type, "edge %s (%s): missing %v", e.Type, e.Kind(), missing))
			continue
		}
		if _, dup := d.edges[e.Type]; dup {
			problems = append(problems, errs.InvalidSchema(e.Type, "duplicate edge type %s", e.Type))
			continue
		}
		d.edges[e.Type] = e
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return d, nil
}

// MustBuild is Build that panics on error. For tests and static schemas.
func (b *Builder) MustBuild() *Definition {
	d, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return d
}

func missingFields(rel Relationship) []string {
	var missing []string
	need := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	switch r := rel.(type) {
	case JoinTable:
		need("fromLabel", r.From)
		need("toLabel", r.To)
		need("joinTable", r.Table)
		need("fromJoinKey", r.FromJoinKey)
		need("toJoinKey", r.ToJoinKey)
	case SelfReferential:
		need("label", r.Label)
		need("fromKey", r.FromKey)
		need("toKey", r.ToKey)
	case OneToMany:
		need("parentLabel", r.ParentLabel)
		need("childLabel", r.ChildLabel)
		need("parentPrimaryKey", r.ParentPrimaryKey)
		need("childForeignKey", r.ChildForeignKey)
	default:
		missing = append(missing, fmt.Sprintf("supported relationship value (got %T)", rel))
	}
	return missing
}

// Validate checks that every label an edge refers to has a node mapping.
// All problems are reported together.
func Validate(d *Definition) error {
	var problems []error
	for _, e := range d.Edges() {
		labels := []string{e.Relationship.FromLabel()}
		if to := e.Relationship.ToLabel(); to != labels[0] {
			labels = append(labels, to)
		}
		for _, label := range labels {
			if _, ok := d.nodes[label]; !ok {
				problems = append(problems, errs.InvalidSchema(e.Type,
					"edge %s (%s) refers to undeclared label %s", e.Type, e.Kind(), label))
			}
		}
	}
	return errors.Join(problems...)
}
