package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/internal/schema"
)

// SchemaSummary is the result of schema check.
type SchemaSummary struct {
	Path        string            `json:"path"`
	Nodes       int               `json:"nodes"`
	Edges       int               `json:"edges"`
	Kinds       map[string]int    `json:"kinds"`
	Tables      map[string]string `json:"tables"`
	Fingerprint string            `json:"fingerprint"`
}

func (s SchemaSummary) String() string {
	return fmt.Sprintf("✓ %s: %d node(s), %d edge(s), fingerprint %s", s.Path, s.Nodes, s.Edges, s.Fingerprint)
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Check and export schema documents",
	}
	cmd.AddCommand(newSchemaCheckCommand(rootOpts))
	cmd.AddCommand(newSchemaExportCommand(rootOpts))
	return cmd
}

func newSchemaCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <schema>",
		Short: "Load a schema and check it for consistency",
		Long: `Load a YAML schema, a .cue file or a directory of CUE files, and check
that every relationship refers to declared labels and names its key columns.

Examples:
  cypher2sql schema check movies.yaml
  cypher2sql schema check ./schema --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCheck(rootOpts, cmd, args[0])
		},
	}
}

func runSchemaCheck(opts *RootOptions, cmd *cobra.Command, path string) error {
	formatter := opts.formatter(cmd)

	def, err := schema.Load(path)
	if err != nil {
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid schema", err)
	}
	fp, err := schema.Fingerprint(def)
	if err != nil {
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprint", err)
	}

	summary := SchemaSummary{
		Path:        path,
		Kinds:       map[string]int{},
		Tables:      map[string]string{},
		Fingerprint: fp,
	}
	for _, n := range def.Nodes() {
		summary.Nodes++
		summary.Tables[n.Label] = n.Table
		formatter.VerboseLog("node %s -> %s(%s)", n.Label, n.Table, n.PrimaryKey)
	}
	for _, e := range def.Edges() {
		summary.Edges++
		summary.Kinds[e.Kind().String()]++
		formatter.VerboseLog("edge %s: %s", e.Type, e.Kind())
	}
	return formatter.Success(summary)
}

func newSchemaExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <schema>",
		Short: "Print a schema as canonical YAML",
		Long: `Load a schema in any supported format and print it as YAML, with nodes
sorted by label and edges sorted by type. The output loads back into the
same schema (same fingerprint).

Examples:
  cypher2sql schema export ./schema > schema.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaExport(rootOpts, cmd, args[0])
		},
	}
}

func runSchemaExport(opts *RootOptions, cmd *cobra.Command, path string) error {
	formatter := opts.formatter(cmd)

	def, err := schema.Load(path)
	if err != nil {
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid schema", err)
	}
	data, err := schema.MarshalYAML(def)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "export", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"yaml": string(data)})
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
