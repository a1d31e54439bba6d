package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cypher2sql/pkg/errs"
)

// yamlDocument is the on-disk YAML layout:
//
//	nodes:
//	  - label: Person
//	    table: people
//	    primaryKey: id
//	edges:
//	  - type: ACTED_IN
//	    kind: JOIN_TABLE
//	    fromLabel: Person
//	    toLabel: Movie
//	    joinTable: people_movies
//	    fromJoinKey: person_id
//	    toJoinKey: movie_id
type yamlDocument struct {
	Nodes []NodeMapping `yaml:"nodes"`
	Edges []yamlEdge    `yaml:"edges"`
}

type yamlEdge struct {
	Type string `yaml:"type"`
	Kind string `yaml:"kind"`

	FromLabel   string `yaml:"fromLabel,omitempty"`
	ToLabel     string `yaml:"toLabel,omitempty"`
	JoinTable   string `yaml:"joinTable,omitempty"`
	FromJoinKey string `yaml:"fromJoinKey,omitempty"`
	ToJoinKey   string `yaml:"toJoinKey,omitempty"`

	Label   string `yaml:"label,omitempty"`
	FromKey string `yaml:"fromKey,omitempty"`
	ToKey   string `yaml:"toKey,omitempty"`

	ParentLabel      string `yaml:"parentLabel,omitempty"`
	ChildLabel       string `yaml:"childLabel,omitempty"`
	ParentPrimaryKey string `yaml:"parentPrimaryKey,omitempty"`
	ChildForeignKey  string `yaml:"childForeignKey,omitempty"`
}

// fields set on e that belong to a kind other than k
func (e yamlEdge) foreignFields(k Kind) []string {
	groups := map[Kind]map[string]string{
		KindJoinTable: {
			"fromLabel": e.FromLabel, "toLabel": e.ToLabel, "joinTable": e.JoinTable,
			"fromJoinKey": e.FromJoinKey, "toJoinKey": e.ToJoinKey,
		},
		KindSelfReferential: {
			"label": e.Label, "fromKey": e.FromKey, "toKey": e.ToKey,
		},
		KindOneToMany: {
			"parentLabel": e.ParentLabel, "childLabel": e.ChildLabel,
			"parentPrimaryKey": e.ParentPrimaryKey, "childForeignKey": e.ChildForeignKey,
		},
	}
	var foreign []string
	for _, other := range []Kind{KindJoinTable, KindSelfReferential, KindOneToMany} {
		if other == k {
			continue
		}
		for _, name := range sortedKeys(groups[other]) {
			if groups[other][name] != "" {
				foreign = append(foreign, name)
			}
		}
	}
	return foreign
}

func (e yamlEdge) relationship() (Relationship, error) {
	k, err := ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}
	if foreign := e.foreignFields(k); len(foreign) > 0 {
		return nil, fmt.Errorf("fields %v do not apply to kind %s", foreign, k)
	}
	switch k {
	case KindJoinTable:
		return JoinTable{From: e.FromLabel, To: e.ToLabel, Table: e.JoinTable, FromJoinKey: e.FromJoinKey, ToJoinKey: e.ToJoinKey}, nil
	case KindSelfReferential:
		return SelfReferential{Label: e.Label, FromKey: e.FromKey, ToKey: e.ToKey}, nil
	case KindOneToMany:
		return OneToMany{ParentLabel: e.ParentLabel, ChildLabel: e.ChildLabel, ParentPrimaryKey: e.ParentPrimaryKey, ChildForeignKey: e.ChildForeignKey}, nil
	default:
		panic(fmt.Sprintf("schema: unhandled kind %s", k))
	}
}

// ParseYAML decodes a YAML schema document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.InvalidSchema("", "empty schema document")
		}
		e := errs.InvalidSchema("", "decode YAML schema")
		e.Err = err
		return nil, e
	}

	b := NewBuilder()
	for _, n := range doc.Nodes {
		b.AddNode(n)
	}
	var problems []error
	for i, e := range doc.Edges {
		rel, err := e.relationship()
		if err != nil {
			problems = append(problems, errs.InvalidSchema(e.Type, "edges[%d] %s: %v", i, e.Type, err))
			continue
		}
		b.AddEdge(e.Type, rel)
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return b.Build()
}

// LoadYAML reads and decodes a YAML schema file.
func LoadYAML(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	def, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// MarshalYAML encodes def in the layout ParseYAML reads, sorted by key.
func MarshalYAML(def *Definition) ([]byte, error) {
	doc := yamlDocument{Nodes: def.Nodes(), Edges: []yamlEdge{}}
	for _, e := range def.Edges() {
		ye := yamlEdge{Type: e.Type, Kind: e.Kind().String()}
		switch r := e.Relationship.(type) {
		case JoinTable:
			ye.FromLabel, ye.ToLabel, ye.JoinTable = r.From, r.To, r.Table
			ye.FromJoinKey, ye.ToJoinKey = r.FromJoinKey, r.ToJoinKey
		case SelfReferential:
			ye.Label, ye.FromKey, ye.ToKey = r.Label, r.FromKey, r.ToKey
		case OneToMany:
			ye.ParentLabel, ye.ChildLabel = r.ParentLabel, r.ChildLabel
			ye.ParentPrimaryKey, ye.ChildForeignKey = r.ParentPrimaryKey, r.ChildForeignKey
		default:
			panic(fmt.Sprintf("schema: unhandled relationship %T", e.Relationship))
		}
		doc.Edges = append(doc.Edges, ye)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode YAML schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode YAML schema: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
