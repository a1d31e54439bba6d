package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/internal/cache"
	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
	"github.com/roach88/cypher2sql/internal/sqlcheck"
	"github.com/roach88/cypher2sql/internal/store"
	"github.com/roach88/cypher2sql/internal/translator"
)

// TranslateOptions holds flags for the translate command. Unset flags fall
// back to the configuration.
type TranslateOptions struct {
	*RootOptions
	Schema   string
	Dialect  string
	Verify   bool
	Cache    bool
	CacheDir string
	History  bool
}

// TranslateResult is the payload of a successful translation.
type TranslateResult struct {
	SQL         string `json:"sql"`
	Dialect     string `json:"dialect"`
	Fingerprint string `json:"schema_fingerprint"`
	Cached      bool   `json:"cached"`
	Verified    bool   `json:"verified"`
}

func (r TranslateResult) String() string {
	return r.SQL
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate [query]",
		Short: "Translate a Cypher query into SQL",
		Long: `Translate a MATCH ... RETURN query into one SQL SELECT statement.

The query is taken from the arguments, or read from stdin when none are
given. Every translation gets a trace ID; with --history it is recorded
and can be listed with "cypher2sql history".

Examples:
  cypher2sql translate --schema movies.yaml "MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN p, m.title"
  echo "MATCH (n:Person) RETURN n" | cypher2sql translate --schema movies.cue --dialect mysql
  cypher2sql translate --schema ./schema --verify --cache --format json "MATCH (a)-[:MANAGES]->(b) RETURN a"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file or CUE directory")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect ("+strings.Join(sqlast.DialectNames(), "|")+")")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "prepare the SQL against shadow tables in SQLite")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "use the translation cache")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (implies --cache)")
	cmd.Flags().BoolVar(&opts.History, "history", false, "record the translation in the history database")

	return cmd
}

// resolve fills unset flags from the configuration.
func (o *TranslateOptions) resolve(cmd *cobra.Command) {
	cfg := o.settings()
	flags := cmd.Flags()
	if !flags.Changed("schema") {
		o.Schema = cfg.Schema
	}
	if !flags.Changed("dialect") {
		o.Dialect = cfg.Translate.Dialect
	}
	if !flags.Changed("verify") {
		o.Verify = cfg.Translate.Verify
	}
	if o.CacheDir != "" {
		o.Cache = true
	} else {
		o.CacheDir = cfg.CacheDir()
	}
	if !flags.Changed("cache") && !flags.Changed("cache-dir") {
		o.Cache = cfg.Cache.Enabled
	}
	if !flags.Changed("history") {
		o.History = cfg.History.Enabled
	}
}

func runTranslate(opts *TranslateOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)
	opts.resolve(cmd)

	query, err := readQuery(args, cmd.InOrStdin())
	if err != nil {
		formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no query", err)
	}

	tr, cleanup, err := opts.buildTranslator(cmd.Context(), formatter)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := tr.Translate(ctx, query)
	if err != nil {
		var checkErr *sqlcheck.CheckError
		if errors.As(err, &checkErr) {
			formatter.Error(ErrCodeVerify, checkErr.Err.Error(), map[string]string{"sql": checkErr.SQL})
			return WrapExitError(ExitFailure, "verification failed", err)
		}
		if errs.CodeOf(err) == "" {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "translate", err)
		}
		return formatter.TranslationFailure(err)
	}

	formatter.VerboseLog("trace %s (dialect %s, cached %v)", res.TraceID, res.Dialect, res.Cached)
	return formatter.SuccessTrace(res.TraceID, TranslateResult{
		SQL:         res.SQL,
		Dialect:     res.Dialect,
		Fingerprint: res.Fingerprint,
		Cached:      res.Cached,
		Verified:    opts.Verify && !res.Cached,
	})
}

// buildTranslator assembles the pipeline described by opts. cleanup
// releases every opened resource and is safe to call once.
func (o *TranslateOptions) buildTranslator(ctx context.Context, formatter *OutputFormatter) (*translator.Translator, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(code, msg string, err error) (*translator.Translator, func(), error) {
		cleanup()
		formatter.Error(code, fmt.Sprintf("%s: %v", msg, err), nil)
		return nil, func() {}, WrapExitError(ExitCommandError, msg, err)
	}

	if o.Schema == "" {
		return fail(ErrCodeSchema, "no schema", errors.New("use --schema, CYPHER2SQL_SCHEMA or the config file"))
	}
	def, err := schema.Load(o.Schema)
	if err != nil {
		return fail(ErrCodeSchema, "failed to load schema", err)
	}
	dialect, err := sqlast.DialectByName(o.Dialect)
	if err != nil {
		return fail(ErrCodeConfig, "invalid dialect", err)
	}

	topts := []translator.Option{
		translator.WithDialect(dialect),
		translator.WithLogger(o.logger()),
	}
	if o.Verify {
		checker, err := sqlcheck.Open(ctx)
		if err != nil {
			return fail(ErrCodeStore, "failed to open verifier", err)
		}
		closers = append(closers, checker.Close)
		topts = append(topts, translator.WithChecker(checker))
	}
	if o.Cache {
		if err := os.MkdirAll(o.CacheDir, 0o755); err != nil {
			return fail(ErrCodeStore, "failed to create cache directory", err)
		}
		c, err := cache.Open(o.CacheDir)
		if err != nil {
			return fail(ErrCodeStore, "failed to open cache", err)
		}
		closers = append(closers, c.Close)
		topts = append(topts, translator.WithCache(c))
	}
	if o.History {
		path := o.settings().HistoryPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fail(ErrCodeStore, "failed to create history directory", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return fail(ErrCodeStore, "failed to open history", err)
		}
		closers = append(closers, st.Close)
		topts = append(topts, translator.WithHistory(st))
	}

	tr, err := translator.New(def, topts...)
	if err != nil {
		return fail(ErrCodeSchema, "failed to build translator", err)
	}
	return tr, cleanup, nil
}

// readQuery joins args, or reads stdin when there are none.
func readQuery(args []string, stdin io.Reader) (string, error) {
	query := strings.Join(args, " ")
	if len(args) == 0 && stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read query from stdin: %w", err)
		}
		query = string(data)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("no query given (pass it as an argument or on stdin)")
	}
	return query, nil
}
