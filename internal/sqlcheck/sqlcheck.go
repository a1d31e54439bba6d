// Package sqlcheck verifies rendered SELECT statements against an in-memory
// SQLite database.
//
// The database starts empty. For each check, shadow tables are created from
// the query itself: every table named in FROM/JOIN gets one column per
// alias.column reference found in the select list, ON conditions and WHERE
// conditions. The rendered SQL is then prepared (not executed) and the
// transaction is rolled back, leaving the database empty again.
//
// A successful check proves the statement parses and every column reference
// resolves to the alias it names. It says nothing about the real database.
package sqlcheck

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cypher2sql/internal/sqlast"
)

// placeholderColumn is used for tables no expression references by column.
const placeholderColumn = "_shadow"

var columnRef = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*|\*)`)

// Checker owns one in-memory SQLite connection.
type Checker struct {
	db *sql.DB
}

// CheckError is a statement SQLite refused to prepare.
type CheckError struct {
	SQL string
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("sqlcheck: %v (sql: %s)", e.Err, e.SQL)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Open starts an empty in-memory database.
func Open(ctx context.Context) (*Checker, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open check database: %w", err)
	}
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to check database: %w", err)
	}
	return &Checker{db: db}, nil
}

// Close releases the database.
func (c *Checker) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Check prepares sel rendered under d against shadow tables derived from sel.
// A refused statement is returned as *CheckError.
func (c *Checker) Check(ctx context.Context, sel *sqlast.SelectQuery, d sqlast.Dialect) error {
	rendered := sel.Render(d)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlcheck: begin: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range ShadowDDL(sel) {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlcheck: create shadow table: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, rendered)
	if err != nil {
		return &CheckError{SQL: rendered, Err: err}
	}
	return stmt.Close()
}

// ShadowDDL returns the CREATE TABLE statements Check runs for sel, sorted
// by table name. Aliases sharing a table share its columns.
func ShadowDDL(sel *sqlast.SelectQuery) []string {
	aliases := sel.Tables()
	columns := make(map[string]map[string]bool)
	for _, table := range aliases {
		columns[table] = make(map[string]bool)
	}

	exprs := append([]string{}, sel.Columns...)
	for _, j := range sel.Joins {
		exprs = append(exprs, j.On)
	}
	exprs = append(exprs, sel.Where...)
	for _, expr := range exprs {
		for _, m := range columnRef.FindAllStringSubmatch(expr, -1) {
			table, ok := aliases[m[1]]
			if !ok || m[2] == "*" {
				continue
			}
			columns[table][m[2]] = true
		}
	}

	tables := make([]string, 0, len(columns))
	for table := range columns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	ddl := make([]string, 0, len(tables))
	for _, table := range tables {
		cols := make([]string, 0, len(columns[table]))
		for col := range columns[table] {
			cols = append(cols, sqlast.Basic.QuoteIdentifier(col))
		}
		sort.Strings(cols)
		if len(cols) == 0 {
			cols = append(cols, placeholderColumn)
		}
		ddl = append(ddl, fmt.Sprintf("CREATE TABLE %s (%s)", sqlast.Basic.QuoteIdentifier(table), strings.Join(cols, ", ")))
	}
	return ddl
}
