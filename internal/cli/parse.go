package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/pkg/cypher"
	"github.com/roach88/cypher2sql/pkg/cypher/parser"
	"github.com/roach88/cypher2sql/pkg/errs"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Tree bool
}

// ParsedNode is one node of the extracted pattern.
type ParsedNode struct {
	Variable string `json:"variable,omitempty"`
	Label    string `json:"label,omitempty"`
	Alias    string `json:"alias"`
}

// ParsedEdge is one relationship of the extracted pattern.
type ParsedEdge struct {
	Variable  string `json:"variable,omitempty"`
	Type      string `json:"type,omitempty"`
	Direction string `json:"direction"`
}

// ParseResult is what the extractor found in a query.
type ParseResult struct {
	Pattern string       `json:"pattern"`
	Nodes   []ParsedNode `json:"nodes"`
	Edges   []ParsedEdge `json:"edges"`
	Return  []string     `json:"return"`
	Tree    string       `json:"tree,omitempty"`
}

func (r ParseResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pattern: %s\n", r.Pattern)
	for i, n := range r.Nodes {
		fmt.Fprintf(&b, "  node %d: %s variable=%q label=%q\n", i, n.Alias, n.Variable, n.Label)
	}
	for i, e := range r.Edges {
		fmt.Fprintf(&b, "  edge %d: %s variable=%q type=%q\n", i, e.Direction, e.Variable, e.Type)
	}
	if len(r.Return) == 0 {
		b.WriteString("return: *")
	} else {
		fmt.Fprintf(&b, "return: %s", strings.Join(r.Return, ", "))
	}
	if r.Tree != "" {
		fmt.Fprintf(&b, "\ntree: %s", r.Tree)
	}
	return b.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Show the pattern and return items extracted from a query",
		Long: `Parse a query and print the node/relationship chain and RETURN items
the translator would work from. No schema is needed.

Examples:
  cypher2sql parse "MATCH (p:Person)-[r:ACTED_IN]->(m) RETURN p, r"
  cypher2sql parse --tree --format json "MATCH (n:Person) RETURN n.name"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "include the parse tree")

	return cmd
}

func runParse(opts *ParseOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	query, err := readQuery(args, cmd.InOrStdin())
	if err != nil {
		formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no query", err)
	}

	tree, err := parser.Parse(query)
	if err != nil {
		return formatter.TranslationFailure(errs.Syntax(query, err))
	}
	q, err := cypher.NewQuery(query, tree)
	if err != nil {
		return formatter.TranslationFailure(err)
	}

	result := ParseResult{Nodes: []ParsedNode{}, Edges: []ParsedEdge{}, Return: []string{}}
	if patterns := q.Patterns(); len(patterns) > 0 {
		p := patterns[0]
		result.Pattern = p.String()
		for i, n := range p.Nodes() {
			result.Nodes = append(result.Nodes, ParsedNode{Variable: n.Variable, Label: n.Label, Alias: cypher.AliasAt(i)})
		}
		for _, e := range p.Edges() {
			result.Edges = append(result.Edges, ParsedEdge{Variable: e.Variable, Type: e.Type, Direction: e.Direction.String()})
		}
	}
	for _, item := range q.ReturnItems() {
		result.Return = append(result.Return, item.String())
	}
	if opts.Tree {
		result.Tree = tree.String()
	}

	return formatter.Success(result)
}
