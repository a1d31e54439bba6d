package schema

import (
	"fmt"

	"github.com/roach88/cypher2sql/internal/canonical"
)

// DomainSchema prefixes schema fingerprints; the version allows changing
// the canonical form later.
const DomainSchema = "cypher2sql/schema/v1"

// Fingerprint returns a stable hex SHA-256 of def's canonical JSON form.
// Two definitions with the same mappings share a fingerprint regardless of
// the order or format they were loaded from.
//
// Format: SHA256(DomainSchema + 0x00 + canonical JSON)
func Fingerprint(def *Definition) (string, error) {
	nodes := make([]any, 0)
	for _, n := range def.Nodes() {
		nodes = append(nodes, map[string]string{
			"label":      n.Label,
			"table":      n.Table,
			"primaryKey": n.PrimaryKey,
		})
	}
	edges := make([]any, 0)
	for _, e := range def.Edges() {
		edges = append(edges, map[string]any{
			"type":         e.Type,
			"kind":         e.Kind().String(),
			"relationship": relationshipFields(e.Relationship),
		})
	}

	sum, err := canonical.HashValue(DomainSchema, map[string]any{"nodes": nodes, "edges": edges})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return sum, nil
}

func relationshipFields(rel Relationship) map[string]string {
	switch r := rel.(type) {
	case JoinTable:
		return map[string]string{
			"fromLabel": r.From, "toLabel": r.To, "joinTable": r.Table,
			"fromJoinKey": r.FromJoinKey, "toJoinKey": r.ToJoinKey,
		}
	case SelfReferential:
		return map[string]string{"label": r.Label, "fromKey": r.FromKey, "toKey": r.ToKey}
	case OneToMany:
		return map[string]string{
			"parentLabel": r.ParentLabel, "childLabel": r.ChildLabel,
			"parentPrimaryKey": r.ParentPrimaryKey, "childForeignKey": r.ChildForeignKey,
		}
	default:
		panic(fmt.Sprintf("schema: unhandled relationship %T", rel))
	}
}
