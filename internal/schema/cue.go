package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// constraints every CUE schema document is unified with
const cueConstraints = `
#Ident: =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Node: {
	table:      string & !=""
	primaryKey: string & !=""
}

#JoinTable: {
	fromLabel:   #Ident
	toLabel:     #Ident
	table:       string & !=""
	fromJoinKey: string & !=""
	toJoinKey:   string & !=""
}

#SelfReferential: {
	label:   #Ident
	fromKey: string & !=""
	toKey:   string & !=""
}

#OneToMany: {
	parentLabel:      #Ident
	childLabel:       #Ident
	parentPrimaryKey: string & !=""
	childForeignKey:  string & !=""
}

#Edge: {joinTable: #JoinTable} | {selfReferential: #SelfReferential} | {oneToMany: #OneToMany}

#Schema: {
	node: [#Ident]: #Node
	edge: [#Ident]: #Edge
	...
}
`

// CompileError is a CUE schema problem with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err
	}

	first := list[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// CompileCUE builds a Definition from a CUE value shaped like:
//
//	node: Person: {table: "people", primaryKey: "id"}
//	edge: ACTED_IN: joinTable: {fromLabel: "Person", toLabel: "Movie", table: "people_movies", fromJoinKey: "person_id", toJoinKey: "movie_id"}
//	edge: MANAGES: selfReferential: {label: "Person", fromKey: "manager_id", toKey: "id"}
//	edge: WROTE: oneToMany: {parentLabel: "Person", childLabel: "Book", parentPrimaryKey: "id", childForeignKey: "author_id"}
func CompileCUE(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	constraints := v.Context().CompileString(cueConstraints, cue.Filename("constraints.cue"))
	if err := constraints.Err(); err != nil {
		return nil, fmt.Errorf("compile schema constraints: %w", err)
	}
	unified := constraints.LookupPath(cue.ParsePath("#Schema")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	b := NewBuilder()

	nodes := unified.LookupPath(cue.ParsePath("node"))
	if nodes.Exists() {
		iter, err := nodes.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			label := iter.Label()
			n := NodeMapping{Label: label}
			if n.Table, err = lookupString(iter.Value(), "table"); err != nil {
				return nil, err
			}
			if n.PrimaryKey, err = lookupString(iter.Value(), "primaryKey"); err != nil {
				return nil, err
			}
			b.AddNode(n)
		}
	}

	edges := unified.LookupPath(cue.ParsePath("edge"))
	if edges.Exists() {
		iter, err := edges.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rel, err := compileRelationship(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			b.AddEdge(iter.Label(), rel)
		}
	}

	return b.Build()
}

func compileRelationship(typ string, v cue.Value) (Relationship, error) {
	var (
		rel   Relationship
		found []string
	)
	for _, kind := range []string{"joinTable", "selfReferential", "oneToMany"} {
		body := v.LookupPath(cue.ParsePath(kind))
		if !body.Exists() {
			continue
		}
		found = append(found, kind)

		var (
			fields = map[string]string{}
			err    error
		)
		for _, name := range cueFieldNames[kind] {
			if fields[name], err = lookupString(body, name); err != nil {
				return nil, err
			}
		}
		switch kind {
		case "joinTable":
			rel = JoinTable{From: fields["fromLabel"], To: fields["toLabel"], Table: fields["table"],
				FromJoinKey: fields["fromJoinKey"], ToJoinKey: fields["toJoinKey"]}
		case "selfReferential":
			rel = SelfReferential{Label: fields["label"], FromKey: fields["fromKey"], ToKey: fields["toKey"]}
		case "oneToMany":
			rel = OneToMany{ParentLabel: fields["parentLabel"], ChildLabel: fields["childLabel"],
				ParentPrimaryKey: fields["parentPrimaryKey"], ChildForeignKey: fields["childForeignKey"]}
		}
	}
	if len(found) != 1 {
		return nil, &CompileError{
			Field:   "edge." + typ,
			Message: fmt.Sprintf("exactly one of joinTable, selfReferential, oneToMany is required (found %v)", found),
			Pos:     v.Pos(),
		}
	}
	return rel, nil
}

var cueFieldNames = map[string][]string{
	"joinTable":       {"fromLabel", "toLabel", "table", "fromJoinKey", "toJoinKey"},
	"selfReferential": {"label", "fromKey", "toKey"},
	"oneToMany":       {"parentLabel", "childLabel", "parentPrimaryKey", "childForeignKey"},
}

func lookupString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileCUEString compiles CUE source text into a Definition.
func CompileCUEString(src, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	return CompileCUE(ctx.CompileString(src, cue.Filename(filename)))
}

// LoadCUEDir loads every .cue file of the package in dir as one schema.
func LoadCUEDir(dir string) (*Definition, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load CUE schema: %w", inst.Err)
	}
	return CompileCUE(ctx.BuildInstance(inst))
}

// Load reads a schema from path: a directory of CUE files, a .cue file,
// or a YAML (or JSON) document. Edge labels are cross-checked with Validate.
func Load(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema not found: %w", err)
	}

	var def *Definition
	switch {
	case info.IsDir():
		def, err = LoadCUEDir(path)
	case filepath.Ext(path) == ".cue":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			def, err = CompileCUEString(string(data), path)
		}
	default:
		def, err = LoadYAML(path)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(def); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: inconsistent schema", path), err)
	}
	return def, nil
}
