// Package sqlast holds the relational query model produced by the mapping
// engine and renders it to SQL text.
//
// Every fragment stored in the model is pre-formed text taken from the schema.
// Only table names pass through the dialect's identifier quoting; values are
// never escaped or parameterized, so the model must not carry untrusted input.
package sqlast

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect is the pluggable part of rendering.
type Dialect interface {
	// Name identifies the dialect (e.g. "basic").
	Name() string

	// QuoteIdentifier quotes a table name.
	QuoteIdentifier(ident string) string
}

type quoting struct {
	name        string
	open, close string
}

func (q quoting) Name() string { return q.name }

// QuoteIdentifier wraps ident in the dialect's quotes, doubling any closing
// quote character inside it.
func (q quoting) QuoteIdentifier(ident string) string {
	return q.open + strings.ReplaceAll(ident, q.close, q.close+q.close) + q.close
}

var (
	// Basic quotes identifiers with double quotes. It is the default dialect.
	Basic Dialect = quoting{name: "basic", open: `"`, close: `"`}

	// Postgres quotes identifiers with double quotes.
	Postgres Dialect = quoting{name: "postgres", open: `"`, close: `"`}

	// MySQL quotes identifiers with backticks.
	MySQL Dialect = quoting{name: "mysql", open: "`", close: "`"}

	// SQLServer quotes identifiers with square brackets.
	SQLServer Dialect = quoting{name: "sqlserver", open: "[", close: "]"}
)

var dialects = map[string]Dialect{
	Basic.Name():     Basic,
	Postgres.Name():  Postgres,
	MySQL.Name():     MySQL,
	SQLServer.Name(): SQLServer,
}

// DialectByName looks up a registered dialect. Names are case-insensitive;
// the empty name selects Basic.
func DialectByName(name string) (Dialect, error) {
	if name == "" {
		return Basic, nil
	}
	if d, ok := dialects[strings.ToLower(name)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown dialect %q (valid: %s)", name, strings.Join(DialectNames(), ", "))
}

// DialectNames returns the registered dialect names, sorted.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
