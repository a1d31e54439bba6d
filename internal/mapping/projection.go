package mapping

import (
	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/errs"
)

// project resolves RETURN items into select columns, in item order.
// No items projects the root node's wildcard. Node variables take
// precedence over edge variables of the same name.
func project(p cypher.Pattern, items []cypher.ReturnItem, edges map[string][]string) ([]string, error) {
	if len(items) == 0 {
		return []string{p.RootAlias() + ".*"}, nil
	}

	var columns []string
	for _, item := range items {
		if alias, ok := p.AliasForVariable(item.Variable); ok {
			if item.Property == "" {
				columns = append(columns, alias+".*")
			} else {
				columns = append(columns, column(alias, item.Property))
			}
			continue
		}

		if bound, ok := edges[item.Variable]; ok {
			if item.Property != "" {
				return nil, errs.UnsupportedEdgeProperty(item.Variable, item.Property)
			}
			columns = append(columns, bound...)
			continue
		}

		return nil, errs.UnknownReturnVariable(item.Variable)
	}
	return columns, nil
}
