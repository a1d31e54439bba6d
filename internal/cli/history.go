package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Limit       int
	Fingerprint string
	TraceID     string
}

// HistoryResult is the payload of the history command.
type HistoryResult struct {
	Entries []store.Entry `json:"entries"`
}

func (r HistoryResult) String() string {
	if len(r.Entries) == 0 {
		return "No translations recorded."
	}
	var b strings.Builder
	for i, e := range r.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		cached := ""
		if e.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(&b, "%s  %s  %s%s\n", e.CreatedAt.Format(time.RFC3339), e.TraceID, e.Dialect, cached)
		fmt.Fprintf(&b, "  cypher: %s\n", oneLine(e.Query))
		fmt.Fprintf(&b, "  sql:    %s", e.SQL)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded translations",
		Long: `List translations recorded by "cypher2sql translate --history",
newest first.

Examples:
  cypher2sql history --limit 5
  cypher2sql history --trace 0190c3e4-7a51-7b9e-8f10-2c3d4e5f6a7b
  cypher2sql history --db ./history.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "history database (default from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum entries to list (default from config)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only entries made with this schema fingerprint")
	cmd.Flags().StringVar(&opts.TraceID, "trace", "", "show the single entry with this trace ID")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.settings()

	path := opts.Database
	if path == "" {
		path = cfg.HistoryPath()
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = cfg.History.Limit
	}

	if _, err := os.Stat(path); err != nil {
		if opts.TraceID != "" {
			formatter.Error(ErrCodeNotFound, fmt.Sprintf("history database not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "history not found", err)
		}
		formatter.VerboseLog("no history database at %s", path)
		return formatter.Success(HistoryResult{Entries: []store.Entry{}})
	}

	st, err := store.Open(path)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open history", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.TraceID != "" {
		entry, err := st.Get(ctx, opts.TraceID)
		if errors.Is(err, store.ErrNotFound) {
			formatter.Error(ErrCodeNotFound, fmt.Sprintf("no translation with trace ID %s", opts.TraceID), nil)
			return WrapExitError(ExitFailure, "not found", err)
		}
		if err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "history", err)
		}
		return formatter.SuccessTrace(entry.TraceID, HistoryResult{Entries: []store.Entry{entry}})
	}

	entries, err := st.Recent(ctx, limit, opts.Fingerprint)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "history", err)
	}
	formatter.VerboseLog("%d entr(ies) from %s", len(entries), path)
	return formatter.Success(HistoryResult{Entries: entries})
}
