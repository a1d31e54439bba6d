package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("parse", actedInQuery)
	require.NoError(t, err)
	assert.Equal(t, `pattern: (p:Person)-[:ACTED_IN]->(m:Movie)
  node 0: t0 variable="p" label="Person"
  node 1: t1 variable="m" label="Movie"
  edge 0: -> variable="" type="ACTED_IN"
return: p, m.title
`, out)
}

func TestParseNoReturnItems(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("parse", "MATCH ()<-[r:MANAGES]-()")
	require.NoError(t, err)
	assert.Contains(t, out, "pattern: ()<-[r:MANAGES]-()")
	assert.Contains(t, out, `edge 0: <- variable="r" type="MANAGES"`)
	assert.Contains(t, out, "return: *")
}

func TestParseJSON(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("--format", "json", "parse", "--tree", "MATCH (n:Person) RETURN n.name AS name")
	require.NoError(t, err)

	var res ParseResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &res))
	assert.Equal(t, "(n:Person)", res.Pattern)
	assert.Equal(t, []ParsedNode{{Variable: "n", Label: "Person", Alias: "t0"}}, res.Nodes)
	assert.Empty(t, res.Edges)
	assert.Equal(t, []string{"n.name"}, res.Return)
	assert.Contains(t, res.Tree, "(oC_Cypher")
}

func TestParseNeedsNoSchema(t *testing.T) {
	e := newEnv(t, "")

	// labels are not checked against any schema
	_, _, err := e.run("parse", "MATCH (r:Robot)-[:BUILDS]->(x) RETURN x")
	assert.NoError(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"syntax", "MATCH (n:Person", "SYNTAX"},
		{"unsupported clause", "MATCH (n) WITH n RETURN n", "SYNTAX"},
		{"unsupported projection", "MATCH (n:Person) RETURN count(n)", "PARSE_SHAPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			out, _, err := e.run("--format", "json", "parse", tt.query)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
