// Package schema maps graph labels and relationship types onto relational
// tables, keys and join strategies.
package schema

import (
	"fmt"
	"strings"
)

// NodeMapping maps a label to a table and its primary key column.
type NodeMapping struct {
	Label      string `json:"label" yaml:"label"`
	Table      string `json:"table" yaml:"table"`
	PrimaryKey string `json:"primaryKey" yaml:"primaryKey"`
}

// Kind names a relationship strategy.
type Kind int

const (
	KindJoinTable Kind = iota + 1
	KindSelfReferential
	KindOneToMany
)

var kindNames = map[Kind]string{
	KindJoinTable:       "JOIN_TABLE",
	KindSelfReferential: "SELF_REFERENTIAL",
	KindOneToMany:       "ONE_TO_MANY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name case-insensitively. Dashes are accepted
// in place of underscores.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship kind %q (want JOIN_TABLE, SELF_REFERENTIAL or ONE_TO_MANY)", s)
}

// Relationship is how a relationship type is realized relationally.
// It is sealed: the only implementations are JoinTable, SelfReferential
// and OneToMany.
type Relationship interface {
	// Kind returns the strategy.
	Kind() Kind
	// FromLabel is the label inferred for the node left of the edge.
	FromLabel() string
	// ToLabel is the label inferred for the node right of the edge.
	ToLabel() string

	relationship()
}

// JoinTable is a many-to-many relationship through an association table.
type JoinTable struct {
	From        string `json:"fromLabel"`
	To          string `json:"toLabel"`
	Table       string `json:"joinTable"`
	FromJoinKey string `json:"fromJoinKey"`
	ToJoinKey   string `json:"toJoinKey"`
}

// SelfReferential relates rows of one table through a pair of its columns.
type SelfReferential struct {
	Label   string `json:"label"`
	FromKey string `json:"fromKey"`
	ToKey   string `json:"toKey"`
}

// OneToMany relates a parent table to a child table holding a foreign key.
type OneToMany struct {
	ParentLabel      string `json:"parentLabel"`
	ChildLabel       string `json:"childLabel"`
	ParentPrimaryKey string `json:"parentPrimaryKey"`
	ChildForeignKey  string `json:"childForeignKey"`
}

func (JoinTable) Kind() Kind          { return KindJoinTable }
func (j JoinTable) FromLabel() string { return j.From }
func (j JoinTable) ToLabel() string   { return j.To }
func (JoinTable) relationship()       {}

func (SelfReferential) Kind() Kind          { return KindSelfReferential }
func (s SelfReferential) FromLabel() string { return s.Label }
func (s SelfReferential) ToLabel() string   { return s.Label }
func (SelfReferential) relationship()       {}

func (OneToMany) Kind() Kind          { return KindOneToMany }
func (o OneToMany) FromLabel() string { return o.ParentLabel }
func (o OneToMany) ToLabel() string   { return o.ChildLabel }
func (OneToMany) relationship()       {}

// EdgeMapping maps a relationship type to its strategy.
type EdgeMapping struct {
	Type         string
	Relationship Relationship
}

// Kind returns the relationship's kind, or 0 when unset.
func (e EdgeMapping) Kind() Kind {
	if e.Relationship == nil {
		return 0
	}
	return e.Relationship.Kind()
}
