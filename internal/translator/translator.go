// Package translator composes the translation pipeline: parse, map, render,
// and optionally verify, cache and record the result.
//
// A Translator is bound to one schema and one dialect. It is safe for
// concurrent use when its collaborators are; the ones in this module
// (cache.Cache, sqlcheck.Checker, store.Store) all are.
package translator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/cypher2sql/internal/cache"
	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/cypher/parser"
	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/mapping"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
	"github.com/roach88/cypher2sql/internal/store"
)

// Cache stores rendered SQL between runs. *cache.Cache implements it.
type Cache interface {
	Get(ctx context.Context, key string) (cache.Entry, bool, error)
	Put(ctx context.Context, key string, entry cache.Entry) error
}

// Checker verifies rendered SQL. *sqlcheck.Checker implements it.
type Checker interface {
	Check(ctx context.Context, sel *sqlast.SelectQuery, d sqlast.Dialect) error
}

// History records successful translations. *store.Store implements it.
type History interface {
	Record(ctx context.Context, e store.Entry) error
}

// Result is one successful translation.
type Result struct {
	TraceID     string
	SQL         string
	Dialect     string
	Fingerprint string

	// Select and Query are nil when the SQL came from the cache.
	Select *sqlast.SelectQuery
	Query  *cypher.Query

	Cached bool
}

// Translator runs the pipeline against one schema.
type Translator struct {
	engine      *mapping.Engine
	fingerprint string
	dialect     sqlast.Dialect
	cache       Cache
	checker     Checker
	history     History
	logger      *slog.Logger
	ids         IDGenerator
	now         func() time.Time
}

// Option configures a Translator.
type Option func(*Translator)

// WithDialect sets the rendering dialect. Default: sqlast.Basic.
func WithDialect(d sqlast.Dialect) Option {
	return func(t *Translator) {
		t.dialect = d
	}
}

// WithCache enables the translation cache.
func WithCache(c Cache) Option {
	return func(t *Translator) {
		t.cache = c
	}
}

// WithChecker verifies every freshly rendered statement before it is
// returned or cached.
func WithChecker(c Checker) Option {
	return func(t *Translator) {
		t.checker = c
	}
}

// WithHistory records every successful translation.
func WithHistory(h History) Option {
	return func(t *Translator) {
		t.history = h
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = l
	}
}

// WithIDGenerator sets the trace ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Translator) {
		t.ids = g
	}
}

// WithClock sets the time source for cache and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Translator) {
		t.now = now
	}
}

// New creates a Translator for def.
func New(def *schema.Definition, opts ...Option) (*Translator, error) {
	if def == nil {
		return nil, fmt.Errorf("translator: schema is required")
	}
	fp, err := schema.Fingerprint(def)
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}

	t := &Translator{
		engine:      mapping.New(def),
		fingerprint: fp,
		dialect:     sqlast.Basic,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:         UUIDv7Generator{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Dialect returns the rendering dialect.
func (t *Translator) Dialect() sqlast.Dialect { return t.dialect }

// Fingerprint returns the schema fingerprint the cache is keyed on.
func (t *Translator) Fingerprint() string { return t.fingerprint }

// Translate turns raw Cypher text into SQL.
//
// Cache read and write failures are logged and otherwise ignored, as are
// history failures. Translation and verification failures are returned.
func (t *Translator) Translate(ctx context.Context, raw string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		TraceID:     t.ids.Generate(),
		Dialect:     t.dialect.Name(),
		Fingerprint: t.fingerprint,
	}
	log := t.logger.With(
		slog.String("trace_id", res.TraceID),
		slog.String("dialect", res.Dialect),
	)

	var key string
	if t.cache != nil {
		key = cache.Key(t.fingerprint, res.Dialect, raw)
		entry, ok, err := t.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("cache read failed", slog.Any("error", err))
		case ok:
			res.SQL = entry.SQL
			res.Cached = true
			log.Debug("cache hit", slog.String("key", key))
			t.record(ctx, log, raw, res)
			return res, nil
		}
	}

	q, err := parser.ParseQuery(raw)
	if err != nil {
		log.Debug("parse failed", slog.String("code", string(errs.CodeOf(err))), slog.Any("error", err))
		return nil, err
	}
	sel, err := t.engine.Translate(q)
	if err != nil {
		log.Debug("translation failed", slog.String("code", string(errs.CodeOf(err))), slog.Any("error", err))
		return nil, err
	}
	res.Query = q
	res.Select = sel
	res.SQL = sel.Render(t.dialect)

	if t.checker != nil {
		if err := t.checker.Check(ctx, sel, t.dialect); err != nil {
			log.Error("verification failed", slog.String("sql", res.SQL), slog.Any("error", err))
			return nil, fmt.Errorf("verify: %w", err)
		}
	}

	if t.cache != nil {
		entry := cache.Entry{SQL: res.SQL, Dialect: res.Dialect, Fingerprint: t.fingerprint, CreatedAt: t.now().UTC()}
		if err := t.cache.Put(ctx, key, entry); err != nil {
			log.Warn("cache write failed", slog.Any("error", err))
		}
	}

	log.Info("translated",
		slog.Int("joins", len(sel.Joins)),
		slog.Int("columns", len(sel.Columns)),
		slog.Bool("cached", false),
	)
	t.record(ctx, log, raw, res)
	return res, nil
}

func (t *Translator) record(ctx context.Context, log *slog.Logger, raw string, res *Result) {
	if t.history == nil {
		return
	}
	err := t.history.Record(ctx, store.Entry{
		TraceID:     res.TraceID,
		Query:       raw,
		SQL:         res.SQL,
		Dialect:     res.Dialect,
		Fingerprint: res.Fingerprint,
		Cached:      res.Cached,
		CreatedAt:   t.now().UTC(),
	})
	if err != nil {
		log.Warn("history record failed", slog.Any("error", err))
	}
}
