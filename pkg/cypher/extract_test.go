package cypher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/cypher/parser"
	"github.com/roach88/cypher2sql/pkg/errs"
)

func extract(t *testing.T, query string) *cypher.Extraction {
	t.Helper()
	tree, err := parser.Parse(query)
	require.NoError(t, err)
	ex, err := cypher.Extract(tree)
	require.NoError(t, err)
	return ex
}

func TestExtractSingleHop(t *testing.T) {
	ex := extract(t, "MATCH (p:Person)-[r:ACTED_IN]->(m:Movie) RETURN p, m.title")

	require.NotNil(t, ex.Pattern)
	assert.Equal(t, []cypher.Node{
		{Variable: "p", Label: "Person"},
		{Variable: "m", Label: "Movie"},
	}, ex.Pattern.Nodes())
	assert.Equal(t, []cypher.Edge{
		{Variable: "r", Type: "ACTED_IN", Direction: cypher.LeftToRight},
	}, ex.Pattern.Edges())
	assert.Equal(t, []cypher.ReturnItem{
		{Variable: "p"},
		{Variable: "m", Property: "title"},
	}, ex.ReturnItems)
}

func TestExtractMultiHopChain(t *testing.T) {
	ex := extract(t, "MATCH (a:Person)-[:KNOWS]->(b)<-[:MANAGES]-(c:Person)-[w:WROTE]-(d) RETURN d")

	require.NotNil(t, ex.Pattern)
	assert.Equal(t, 4, ex.Pattern.Len())
	edges := ex.Pattern.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, cypher.Edge{Type: "KNOWS", Direction: cypher.LeftToRight}, edges[0])
	assert.Equal(t, cypher.Edge{Type: "MANAGES", Direction: cypher.RightToLeft}, edges[1])
	assert.Equal(t, cypher.Edge{Variable: "w", Type: "WROTE", Direction: cypher.Undirected}, edges[2])
	assert.Equal(t, cypher.Node{Variable: "b"}, ex.Pattern.NodeAt(1))
}

func TestExtractNodeShapes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  cypher.Node
	}{
		{"empty", "MATCH () RETURN *", cypher.Node{}},
		{"variable only", "MATCH (n) RETURN n", cypher.Node{Variable: "n"}},
		{"label only", "MATCH (:Person) RETURN *", cypher.Node{Label: "Person"}},
		{"first label wins", "MATCH (n:Person:Actor) RETURN n", cypher.Node{Variable: "n", Label: "Person"}},
		{"property map dropped", "MATCH (n:Person {name: 'Keanu'}) RETURN n", cypher.Node{Variable: "n", Label: "Person"}},
		{"parameter map dropped", "MATCH (n:Person $props) RETURN n", cypher.Node{Variable: "n", Label: "Person"}},
		{"inline where dropped", "MATCH (n:Person WHERE n.age > 30) RETURN n", cypher.Node{Variable: "n", Label: "Person"}},
		{"underscore identifiers", "MATCH (_n1:_Label2) RETURN _n1", cypher.Node{Variable: "_n1", Label: "_Label2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := extract(t, tt.query)
			require.NotNil(t, ex.Pattern)
			assert.Equal(t, tt.want, ex.Pattern.NodeAt(0))
		})
	}
}

func TestExtractRelationshipShapes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  cypher.Edge
	}{
		{"bare arrow", "MATCH (a)-->(b) RETURN a", cypher.Edge{Direction: cypher.LeftToRight}},
		{"bare undirected", "MATCH (a)--(b) RETURN a", cypher.Edge{Direction: cypher.Undirected}},
		{"type only", "MATCH (a)<-[:KNOWS]-(b) RETURN a", cypher.Edge{Type: "KNOWS", Direction: cypher.RightToLeft}},
		{"bare name is a type", "MATCH (a)-[KNOWS]->(b) RETURN a", cypher.Edge{Type: "KNOWS", Direction: cypher.LeftToRight}},
		{"bare name with alternatives", "MATCH (a)-[KNOWS|LIKES]-(b) RETURN a", cypher.Edge{Type: "KNOWS", Direction: cypher.Undirected}},
		{"bare name variable length", "MATCH (a)-[KNOWS*2]->(b) RETURN a", cypher.Edge{Direction: cypher.LeftToRight}},
		{"first of alternatives", "MATCH (a)-[r:KNOWS|LIKES]->(b) RETURN r", cypher.Edge{Variable: "r", Type: "KNOWS", Direction: cypher.LeftToRight}},
		{"properties dropped", "MATCH (a)-[r:KNOWS {since: 2020}]->(b) RETURN r", cypher.Edge{Variable: "r", Type: "KNOWS", Direction: cypher.LeftToRight}},
		{"variable length drops type", "MATCH (a)-[r:KNOWS*1..3]->(b) RETURN r", cypher.Edge{Variable: "r", Direction: cypher.LeftToRight}},
		{"bare star", "MATCH (a)-[*]-(b) RETURN a", cypher.Edge{Direction: cypher.Undirected}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := extract(t, tt.query)
			require.NotNil(t, ex.Pattern)
			assert.Equal(t, tt.want, ex.Pattern.EdgeAt(0))
		})
	}
}

func TestExtractReturnItems(t *testing.T) {
	ex := extract(t, "MATCH (n) RETURN DISTINCT n AS person, n.name AS name ORDER BY n.name LIMIT 3")

	assert.Equal(t, []cypher.ReturnItem{
		{Variable: "n"},
		{Variable: "n", Property: "name"},
	}, ex.ReturnItems)
}

func TestExtractReturnStarHasNoItems(t *testing.T) {
	ex := extract(t, "MATCH (n) RETURN *")
	assert.Empty(t, ex.ReturnItems)
}

func TestExtractUnsupportedProjection(t *testing.T) {
	for _, q := range []string{
		"MATCH (n) RETURN count(n)",
		"MATCH (n) RETURN n.address.city",
		"MATCH (n) RETURN n.age + 1",
		"MATCH (n) RETURN 42",
	} {
		t.Run(q, func(t *testing.T) {
			tree, err := parser.Parse(q)
			require.NoError(t, err)

			_, err = cypher.Extract(tree)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.CodeParseShape))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errs.ReasonUnsupportedProjection, e.Reason)
		})
	}
}

func TestExtractInvalidIdentifier(t *testing.T) {
	tree, err := parser.Parse("MATCH (`my node`:Person) RETURN 1")
	require.NoError(t, err)

	_, err = cypher.Extract(tree)
	assert.True(t, errs.Is(err, errs.CodeParseShape))
}

func TestExtractNoPattern(t *testing.T) {
	ex := extract(t, "RETURN x")
	assert.Nil(t, ex.Pattern)
	assert.Equal(t, []cypher.ReturnItem{{Variable: "x"}}, ex.ReturnItems)
}

func TestExtractFirstPatternOnly(t *testing.T) {
	ex := extract(t, "MATCH (a:Person), (b:Movie) RETURN a")
	require.NotNil(t, ex.Pattern)
	assert.Equal(t, []cypher.Node{{Variable: "a", Label: "Person"}}, ex.Pattern.Nodes())
}

func TestExtractNilTree(t *testing.T) {
	ex, err := cypher.Extract(nil)
	require.NoError(t, err)
	assert.Nil(t, ex.Pattern)
	assert.Empty(t, ex.ReturnItems)
}

// fakeTree mimics a grammar that keeps whitespace tokens and uses
// camelCase rule names.
type fakeTree struct {
	rule     string
	text     string
	children []*fakeTree
}

func (f *fakeTree) ChildCount() int         { return len(f.children) }
func (f *fakeTree) Child(i int) cypher.Tree { return f.children[i] }
func (f *fakeTree) Rule() string            { return f.rule }
func (f *fakeTree) Text() string {
	if f.rule == "" {
		return f.text
	}
	s := ""
	for _, c := range f.children {
		s += c.Text()
	}
	return s
}

func tok(text string) *fakeTree { return &fakeTree{text: text} }

func rule(name string, children ...*fakeTree) *fakeTree {
	return &fakeTree{rule: name, children: children}
}

func TestExtractForeignGrammarNames(t *testing.T) {
	tree := rule("query",
		rule("patternPart",
			rule("nodePattern", tok("("), tok("p"), tok(":"), tok("Person"), tok(")")),
			rule("relationshipPattern", tok("<"), tok("-"), tok("["), tok(":"), tok("KNOWS"), tok("]"), tok("-")),
			rule("nodePattern", tok("("), tok(")")),
		),
		tok(" "),
		rule("returnItem", rule("expression", tok("p"), tok("."), tok("name")), tok(" "), tok("as"), tok(" "), tok("n")),
	)

	ex, err := cypher.Extract(tree)
	require.NoError(t, err)
	require.NotNil(t, ex.Pattern)
	assert.Equal(t, []cypher.Node{{Variable: "p", Label: "Person"}, {}}, ex.Pattern.Nodes())
	assert.Equal(t, cypher.Edge{Type: "KNOWS", Direction: cypher.RightToLeft}, ex.Pattern.EdgeAt(0))
	assert.Equal(t, []cypher.ReturnItem{{Variable: "p", Property: "name"}}, ex.ReturnItems)
}

func TestExtractMalformedPatternCounts(t *testing.T) {
	tree := rule("patternElement",
		rule("nodePattern", tok("("), tok("a"), tok(")")),
		rule("relationshipPattern", tok("-"), tok("-")),
	)

	_, err := cypher.Extract(tree)
	assert.True(t, errs.Is(err, errs.CodeParseShape))
}

func TestNewQueryAccessorsReturnCopies(t *testing.T) {
	q, err := parser.ParseQuery("MATCH (p:Person) RETURN p")
	require.NoError(t, err)

	items := q.ReturnItems()
	items[0].Variable = "changed"
	assert.Equal(t, "p", q.ReturnItems()[0].Variable)

	pats := q.Patterns()
	require.Len(t, pats, 1)
	nodes := pats[0].Nodes()
	nodes[0].Label = "changed"
	assert.Equal(t, "Person", q.Patterns()[0].NodeAt(0).Label)

	assert.Equal(t, "MATCH (p:Person) RETURN p", q.Raw())
	assert.NotNil(t, q.Tree())
}
