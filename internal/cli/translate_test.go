package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	actedInQuery = "MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN p, m.title"
	actedInSQL   = `SELECT t0.*, t1.title FROM "people" t0 INNER JOIN "people_movies" j2 ON t0.id = j2.person_id INNER JOIN "movies" t1 ON j2.movie_id = t1.id`
)

func decodeTranslate(t *testing.T, out string) (jsonResponse, TranslateResult) {
	t.Helper()
	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status, "output: %s", out)
	var res TranslateResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	return resp, res
}

func TestTranslateText(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("translate", "--schema", moviesSchema, actedInQuery)
	require.NoError(t, err)
	assert.Equal(t, actedInSQL+"\n", out)
}

func TestTranslateJSON(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("--format", "json", "translate", "-s", moviesSchema, actedInQuery)
	require.NoError(t, err)

	resp, res := decodeTranslate(t, out)
	assert.Len(t, resp.TraceID, 36)
	assert.Equal(t, actedInSQL, res.SQL)
	assert.Equal(t, "basic", res.Dialect)
	assert.Len(t, res.Fingerprint, 64)
	assert.False(t, res.Cached)
	assert.False(t, res.Verified)
}

func TestTranslateStdin(t *testing.T) {
	e := newEnv(t, "")
	e.stdin = "MATCH (n:Person)\nRETURN n.name\n"

	out, _, err := e.run("translate", "--schema", moviesSchema)
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.name FROM \"people\" t0\n", out)
}

func TestTranslateArgsJoined(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := e.run("translate", "--schema", moviesSchema, "MATCH", "(n:Person)", "RETURN", "n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.* FROM \"people\" t0\n", out)
}

func TestTranslateDialects(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"basic", `SELECT t0.manager_id, t1.id FROM "people" t0 INNER JOIN "people" t1 ON t0.manager_id = t1.id`},
		{"postgres", `SELECT t0.manager_id, t1.id FROM "people" t0 INNER JOIN "people" t1 ON t0.manager_id = t1.id`},
		{"mysql", "SELECT t0.manager_id, t1.id FROM `people` t0 INNER JOIN `people` t1 ON t0.manager_id = t1.id"},
		{"sqlserver", `SELECT t0.manager_id, t1.id FROM [people] t0 INNER JOIN [people] t1 ON t0.manager_id = t1.id`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			e := newEnv(t, "")
			out, _, err := e.run("translate", "-s", moviesSchema, "-d", tt.dialect, "MATCH ()-[r:MANAGES]->() RETURN r")
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		code     string
		subject  string
		exitCode int
	}{
		{"unknown label", "MATCH (r:Robot) RETURN r", "UNKNOWN_LABEL", "Robot", ExitFailure},
		{"unknown type", "MATCH (a:Person)-[:LIKES]->(b:Person)", "UNKNOWN_RELATIONSHIP_TYPE", "LIKES", ExitFailure},
		{"syntax", "MATCH (p:Person RETURN p", "SYNTAX", "MATCH (p:Person RETURN p", ExitFailure},
		{"variable length", "MATCH (a:Person)-[*]->(b:Movie)", "UNSUPPORTED_FEATURE", "variable-length traversal", ExitFailure},
		{"edge property", "MATCH ()-[r:MANAGES]->() RETURN r.since", "UNSUPPORTED_EDGE_PROPERTY", "r", ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			out, _, err := e.run("--format", "json", "translate", "-s", moviesSchema, tt.query)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			details, ok := resp.Error.Details.(map[string]any)
			require.True(t, ok, "details: %#v", resp.Error.Details)
			assert.Equal(t, tt.subject, details["subject"])
		})
	}
}

func TestTranslateAmbiguousLabelIndex(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run("--format", "json", "translate", "-s", moviesSchema,
		"MATCH (:Person)-[:ACTED_IN]->()-[:MANAGES]->()")
	require.Error(t, err)

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AMBIGUOUS_LABEL", resp.Error.Code)
	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, float64(1), details["index"])
}

func TestTranslateTextFailure(t *testing.T) {
	e := newEnv(t, "")
	out, _, err := e.run("translate", "-s", moviesSchema, "MATCH (r:Robot) RETURN r")
	require.Error(t, err)
	assert.Contains(t, out, "Error [UNKNOWN_LABEL]")
}

func TestTranslateCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no schema", []string{"translate", "MATCH (n:Person) RETURN n"}, ErrCodeSchema},
		{"missing schema", []string{"translate", "-s", "testdata/nope.yaml", "MATCH (n:Person) RETURN n"}, ErrCodeSchema},
		{"inconsistent schema", []string{"translate", "-s", "testdata/dangling.yaml", "MATCH (n:Person) RETURN n"}, ErrCodeSchema},
		{"bad dialect", []string{"translate", "-s", moviesSchema, "-d", "oracle", "MATCH (n:Person) RETURN n"}, ErrCodeConfig},
		{"no query", []string{"translate", "-s", moviesSchema}, ErrCodeInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			out, _, err := e.run(append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestTranslateVerify(t *testing.T) {
	e := newEnv(t, "")

	for _, d := range []string{"basic", "mysql", "sqlserver"} {
		out, _, err := e.run("--format", "json", "translate", "-s", moviesSchema, "-d", d, "--verify",
			"MATCH (a:Person)-[:MANAGES]->(b)-[:ACTED_IN]->(m:Movie)<-[:DIRECTED]-(w:Person) RETURN a.name, m.title, w")
		require.NoError(t, err, "dialect %s", d)
		_, res := decodeTranslate(t, out)
		assert.True(t, res.Verified)
	}
}

func TestTranslateCache(t *testing.T) {
	e := newEnv(t, "")
	cacheDir := filepath.Join(t.TempDir(), "cache")
	args := []string{"--format", "json", "translate", "-s", moviesSchema, "--cache-dir", cacheDir, actedInQuery}

	out, _, err := e.run(args...)
	require.NoError(t, err)
	_, first := decodeTranslate(t, out)
	assert.False(t, first.Cached)

	out, _, err = e.run(args...)
	require.NoError(t, err)
	_, second := decodeTranslate(t, out)
	assert.True(t, second.Cached)
	assert.False(t, second.Verified)
	assert.Equal(t, first.SQL, second.SQL)

	out, _, err = e.run("--format", "json", "cache", "stats", "--cache-dir", cacheDir)
	require.NoError(t, err)
	var stats CacheStats
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &stats))
	assert.Equal(t, 1, stats.Entries)

	out, _, err = e.run("cache", "purge", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 1 entr(ies)")

	out, _, err = e.run(args...)
	require.NoError(t, err)
	_, third := decodeTranslate(t, out)
	assert.False(t, third.Cached)
}

func TestTranslateCacheFromConfig(t *testing.T) {
	e := newEnv(t, "cache:\n  enabled: true\n")

	_, _, err := e.run("translate", "-s", moviesSchema, actedInQuery)
	require.NoError(t, err)

	out, _, err := e.run("cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(e.dataDir, "cache"))
	assert.Contains(t, out, "1 entr(ies)")
}

func TestTranslateUsesConfig(t *testing.T) {
	schemaPath, err := filepath.Abs(moviesSchema)
	require.NoError(t, err)
	e := newEnv(t, "schema: "+schemaPath+"\ntranslate:\n  dialect: mysql\n")

	out, _, err := e.run("translate", "MATCH (n:Person) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.* FROM `people` t0\n", out)

	// flags win over the config file
	out, _, err = e.run("translate", "-d", "sqlserver", "MATCH (n:Person) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.* FROM [people] t0\n", out)
}

func TestTranslateUsesEnv(t *testing.T) {
	e := newEnv(t, "")
	t.Setenv("CYPHER2SQL_SCHEMA", moviesSchema)
	t.Setenv("CYPHER2SQL_DIALECT", "postgres")

	out, _, err := e.run("--format", "json", "translate", "MATCH (n:Person) RETURN n")
	require.NoError(t, err)
	_, res := decodeTranslate(t, out)
	assert.Equal(t, "postgres", res.Dialect)
}

func TestTranslateVerbose(t *testing.T) {
	e := newEnv(t, "")

	out, errOut, err := e.run("-v", "--format", "json", "translate", "-s", moviesSchema, actedInQuery)
	require.NoError(t, err)
	decodeTranslate(t, out)
	assert.Contains(t, errOut, "trace ")
	assert.Contains(t, errOut, "msg=translated", "verbose raises the log level to debug")
}
