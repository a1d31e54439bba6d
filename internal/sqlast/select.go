package sqlast

import (
	"fmt"
	"strings"
)

// JoinType is the kind of a join clause.
type JoinType int

const (
	Inner JoinType = iota
	Left
)

func (t JoinType) String() string {
	switch t {
	case Inner:
		return "INNER"
	case Left:
		return "LEFT"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

// JoinClause is one JOIN of a SelectQuery. On is pre-formed condition text.
type JoinClause struct {
	Type  JoinType
	Table string
	Alias string
	On    string
}

// SelectQuery is a single SELECT statement.
//
// Semantics:
//
//	SELECT <Columns> FROM <FromTable> <FromAlias> [<Type> JOIN <Table> <Alias> ON <On>]* [WHERE <Where[0]> AND ...]
//
// Columns and Where hold pre-formed expressions such as "t0.*" or
// "t0.id = j2.person_id". No component currently populates Where.
type SelectQuery struct {
	Columns   []string
	FromTable string
	FromAlias string
	Joins     []JoinClause
	Where     []string
}

// NewSelect returns a query reading table under alias.
func NewSelect(table, alias string) *SelectQuery {
	return &SelectQuery{FromTable: table, FromAlias: alias}
}

// Column appends select-column expressions.
func (q *SelectQuery) Column(exprs ...string) *SelectQuery {
	q.Columns = append(q.Columns, exprs...)
	return q
}

// Join appends an INNER JOIN.
func (q *SelectQuery) Join(table, alias, on string) *SelectQuery {
	q.Joins = append(q.Joins, JoinClause{Type: Inner, Table: table, Alias: alias, On: on})
	return q
}

// LeftJoin appends a LEFT JOIN.
func (q *SelectQuery) LeftJoin(table, alias, on string) *SelectQuery {
	q.Joins = append(q.Joins, JoinClause{Type: Left, Table: table, Alias: alias, On: on})
	return q
}

// AndWhere appends a condition; conditions are combined with AND.
func (q *SelectQuery) AndWhere(cond string) *SelectQuery {
	q.Where = append(q.Where, cond)
	return q
}

// Tables returns the alias to table name mapping of the FROM and JOIN clauses.
func (q *SelectQuery) Tables() map[string]string {
	tables := map[string]string{q.FromAlias: q.FromTable}
	for _, j := range q.Joins {
		tables[j.Alias] = j.Table
	}
	return tables
}

// Render returns the SQL text of q under d. Rendering is deterministic.
func (q *SelectQuery) Render(d Dialect) string {
	parts := []string{
		"SELECT", strings.Join(q.Columns, ", "),
		"FROM", d.QuoteIdentifier(q.FromTable), q.FromAlias,
	}
	for _, j := range q.Joins {
		parts = append(parts, j.Type.String(), "JOIN", d.QuoteIdentifier(j.Table), j.Alias, "ON", j.On)
	}
	if len(q.Where) > 0 {
		parts = append(parts, "WHERE", strings.Join(q.Where, " AND "))
	}
	return strings.Join(parts, " ")
}

// String renders q with the Basic dialect.
func (q *SelectQuery) String() string {
	return q.Render(Basic)
}
