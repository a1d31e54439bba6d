package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypher2sql/internal/cache"
	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
	"github.com/roach88/cypher2sql/internal/sqlcheck"
	"github.com/roach88/cypher2sql/internal/store"
	"github.com/roach88/cypher2sql/internal/testutil"
)

const actedIn = "MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN p, m.title"

const actedInSQL = `SELECT t0.*, t1.title FROM "people" t0 INNER JOIN "people_movies" j2 ON t0.id = j2.person_id INNER JOIN "movies" t1 ON j2.movie_id = t1.id`

func testSchema() *schema.Definition {
	return schema.NewBuilder().
		AddNode(schema.NodeMapping{Label: "Person", Table: "people", PrimaryKey: "id"}).
		AddNode(schema.NodeMapping{Label: "Movie", Table: "movies", PrimaryKey: "id"}).
		AddEdge("ACTED_IN", schema.JoinTable{From: "Person", To: "Movie", Table: "people_movies", FromJoinKey: "person_id", ToJoinKey: "movie_id"}).
		AddEdge("MANAGES", schema.SelfReferential{Label: "Person", FromKey: "manager_id", ToKey: "id"}).
		MustBuild()
}

func newTranslator(t *testing.T, opts ...Option) *Translator {
	t.Helper()
	opts = append([]Option{WithIDGenerator(testutil.NewSequentialTraceGenerator("tr"))}, opts...)
	tr, err := New(testSchema(), opts...)
	require.NoError(t, err)
	return tr
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("disk on fire")
}

func (failingCache) Put(context.Context, string, cache.Entry) error {
	return errors.New("disk on fire")
}

type rejectingChecker struct{ calls int }

func (c *rejectingChecker) Check(context.Context, *sqlast.SelectQuery, sqlast.Dialect) error {
	c.calls++
	return errors.New("no such column")
}

func TestNewRequiresSchema(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	tr, err := New(testSchema())
	require.NoError(t, err)

	fp, err := schema.Fingerprint(testSchema())
	require.NoError(t, err)
	assert.Equal(t, fp, tr.Fingerprint())
	assert.Equal(t, "basic", tr.Dialect().Name())

	res, err := tr.Translate(context.Background(), actedIn)
	require.NoError(t, err)
	assert.Len(t, res.TraceID, 36, "UUIDv7 trace ID")
}

func TestTranslate(t *testing.T) {
	tr := newTranslator(t, WithIDGenerator(NewFixedGenerator("trace-1")))

	res, err := tr.Translate(context.Background(), actedIn)
	require.NoError(t, err)

	assert.Equal(t, "trace-1", res.TraceID)
	assert.Equal(t, actedInSQL, res.SQL)
	assert.Equal(t, "basic", res.Dialect)
	assert.Equal(t, tr.Fingerprint(), res.Fingerprint)
	assert.False(t, res.Cached)
	require.NotNil(t, res.Select)
	require.NotNil(t, res.Query)
	assert.Equal(t, actedIn, res.Query.Raw())
	assert.Len(t, res.Select.Joins, 2)
}

func TestTranslateDialect(t *testing.T) {
	tr := newTranslator(t, WithDialect(sqlast.MySQL))

	res, err := tr.Translate(context.Background(), "MATCH (a:Person)-[:MANAGES]->(b:Person) RETURN a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.* FROM `people` t0 INNER JOIN `people` t1 ON t0.manager_id = t1.id", res.SQL)
	assert.Equal(t, "mysql", res.Dialect)
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  errs.Code
	}{
		{"syntax", "MATCH (p:Person RETURN p", errs.CodeSyntax},
		{"unsupported clause", "CREATE (p:Person)", errs.CodeSyntax},
		{"unknown label", "MATCH (r:Robot) RETURN r", errs.CodeUnknownLabel},
		{"variable length", "MATCH (a:Person)-[*1..2]->(b:Person)", errs.CodeUnsupportedFeature},
		{"unknown return variable", "MATCH (p:Person) RETURN q", errs.CodeUnknownReturnVariable},
	}

	tr := newTranslator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tr.Translate(context.Background(), tt.query)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.code, errs.CodeOf(err), "error: %v", err)
		})
	}
}

func TestTranslateCanceledContext(t *testing.T) {
	tr := newTranslator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Translate(ctx, actedIn)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranslateCache(t *testing.T) {
	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	tr := newTranslator(t, WithCache(c))

	first, err := tr.Translate(ctx, actedIn)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := tr.Translate(ctx, actedIn+"\n")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Nil(t, second.Select)
	assert.Nil(t, second.Query)
	assert.NotEqual(t, first.TraceID, second.TraceID)

	entry, ok, err := c.Get(ctx, cache.Key(tr.Fingerprint(), "basic", actedIn))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, actedInSQL, entry.SQL)
	assert.Equal(t, tr.Fingerprint(), entry.Fingerprint)
}

func TestTranslateCacheKeyedByDialect(t *testing.T) {
	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, err = newTranslator(t, WithCache(c)).Translate(ctx, actedIn)
	require.NoError(t, err)

	res, err := newTranslator(t, WithCache(c), WithDialect(sqlast.SQLServer)).Translate(ctx, actedIn)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Contains(t, res.SQL, "[people]")
}

func TestTranslateCacheFailuresIgnored(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := newTranslator(t, WithCache(failingCache{}), WithLogger(logger))

	res, err := tr.Translate(context.Background(), actedIn)
	require.NoError(t, err)
	assert.Equal(t, actedInSQL, res.SQL)
	assert.Contains(t, logs.String(), "cache read failed")
	assert.Contains(t, logs.String(), "cache write failed")
}

func TestTranslateChecker(t *testing.T) {
	checker, err := sqlcheck.Open(context.Background())
	require.NoError(t, err)
	defer checker.Close()

	for _, d := range []sqlast.Dialect{sqlast.Basic, sqlast.Postgres, sqlast.MySQL, sqlast.SQLServer} {
		t.Run(d.Name(), func(t *testing.T) {
			tr := newTranslator(t, WithChecker(checker), WithDialect(d))
			_, err := tr.Translate(context.Background(), actedIn)
			assert.NoError(t, err)
		})
	}
}

func TestTranslateCheckerRejects(t *testing.T) {
	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()

	checker := &rejectingChecker{}
	tr := newTranslator(t, WithChecker(checker), WithCache(c))

	res, err := tr.Translate(context.Background(), actedIn)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "verify")
	assert.Equal(t, 1, checker.calls)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Zero(t, n, "rejected SQL must not be cached")
}

func TestTranslateHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer st.Close()

	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()

	clock := testutil.NewDeterministicClock()
	tr := newTranslator(t, WithHistory(st), WithCache(c), WithClock(clock.Now))
	ctx := context.Background()

	_, err = tr.Translate(ctx, actedIn)
	require.NoError(t, err)
	_, err = tr.Translate(ctx, actedIn)
	require.NoError(t, err)
	_, err = tr.Translate(ctx, "MATCH (r:Robot) RETURN r")
	require.Error(t, err)

	entries, err := st.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 2, "failed translations are not recorded")

	assert.Equal(t, "tr-2", entries[0].TraceID)
	assert.True(t, entries[0].Cached)
	assert.Equal(t, "tr-1", entries[1].TraceID)
	assert.False(t, entries[1].Cached)
	assert.Equal(t, actedInSQL, entries[1].SQL)
	assert.Equal(t, tr.Fingerprint(), entries[1].Fingerprint)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
}

func TestTranslateLogsTraceID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	tr := newTranslator(t, WithLogger(logger), WithIDGenerator(NewFixedGenerator("trace-log")))

	_, err := tr.Translate(context.Background(), actedIn)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"msg":"translated"`)
	assert.Contains(t, out, `"trace_id":"trace-log"`)
	assert.Contains(t, out, `"joins":2`)
}

func TestTranslateConcurrent(t *testing.T) {
	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()

	tr := newTranslator(t, WithCache(c))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := fmt.Sprintf("MATCH (p:Person) RETURN p.col%d", i%4)
			res, err := tr.Translate(context.Background(), query)
			if assert.NoError(t, err) {
				assert.Equal(t, fmt.Sprintf(`SELECT t0.col%d FROM "people" t0`, i%4), res.SQL)
			}
		}(i)
	}
	wg.Wait()
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7GeneratorSortable(t *testing.T) {
	var gen UUIDv7Generator
	a := gen.Generate()
	b := gen.Generate()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.LessOrEqual(t, a[:8], b[:8], "timestamp prefix is non-decreasing")
}
