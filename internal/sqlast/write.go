package sqlast

import "github.com/roach88/cypher2sql/pkg/errs"

// FeatureWrites is the feature reported by every write-statement render.
const FeatureWrites = "write queries disabled"

// Assignment is one column = expression pair.
type Assignment struct {
	Column string
	Expr   string
}

// InsertQuery accumulates the values of an INSERT. It cannot be rendered.
type InsertQuery struct {
	Table  string
	Values []Assignment
}

// Insert starts an INSERT into table.
func Insert(table string) *InsertQuery {
	return &InsertQuery{Table: table}
}

// Value adds a column value.
func (q *InsertQuery) Value(column, expr string) *InsertQuery {
	q.Values = append(q.Values, Assignment{Column: column, Expr: expr})
	return q
}

// IsEmpty reports whether no values were added.
func (q *InsertQuery) IsEmpty() bool { return len(q.Values) == 0 }

// Render always fails with errs.CodeUnsupportedFeature.
func (q *InsertQuery) Render(Dialect) (string, error) {
	return "", errs.UnsupportedFeature(FeatureWrites)
}

// UpdateQuery accumulates the assignments and conditions of an UPDATE.
// It cannot be rendered.
type UpdateQuery struct {
	Table       string
	Assignments []Assignment
	Where       []string
}

// Update starts an UPDATE of table.
func Update(table string) *UpdateQuery {
	return &UpdateQuery{Table: table}
}

// Set adds an assignment.
func (q *UpdateQuery) Set(column, expr string) *UpdateQuery {
	q.Assignments = append(q.Assignments, Assignment{Column: column, Expr: expr})
	return q
}

// AndWhere adds a condition.
func (q *UpdateQuery) AndWhere(cond string) *UpdateQuery {
	q.Where = append(q.Where, cond)
	return q
}

func (q *UpdateQuery) HasAssignments() bool { return len(q.Assignments) > 0 }
func (q *UpdateQuery) HasWhereClause() bool { return len(q.Where) > 0 }

// Render always fails with errs.CodeUnsupportedFeature.
func (q *UpdateQuery) Render(Dialect) (string, error) {
	return "", errs.UnsupportedFeature(FeatureWrites)
}

// DeleteQuery accumulates the conditions of a DELETE. It cannot be rendered.
type DeleteQuery struct {
	Table string
	Where []string
}

// DeleteFrom starts a DELETE from table.
func DeleteFrom(table string) *DeleteQuery {
	return &DeleteQuery{Table: table}
}

// AndWhere adds a condition.
func (q *DeleteQuery) AndWhere(cond string) *DeleteQuery {
	q.Where = append(q.Where, cond)
	return q
}

func (q *DeleteQuery) HasWhereClause() bool { return len(q.Where) > 0 }

// Render always fails with errs.CodeUnsupportedFeature.
func (q *DeleteQuery) Render(Dialect) (string, error) {
	return "", errs.UnsupportedFeature(FeatureWrites)
}
