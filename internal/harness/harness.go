package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/cypher2sql/pkg/errs"
	"github.com/roach88/cypher2sql/internal/schema"
	"github.com/roach88/cypher2sql/internal/sqlast"
	"github.com/roach88/cypher2sql/internal/sqlcheck"
	"github.com/roach88/cypher2sql/internal/testutil"
	"github.com/roach88/cypher2sql/internal/translator"
)

// Harness runs scenario flows through a translator with a deterministic
// clock and trace IDs.
type Harness struct {
	translator *translator.Translator
	clock      *testutil.DeterministicClock
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the schema and build a translator for the scenario dialect
// 2. Translate every flow step, recording query and outcome events
// 3. Check each step against its expect clause
// 4. Evaluate assertions against the trace
//
// An error is returned only when the scenario cannot run at all; failed
// expectations are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	def, err := schema.Load(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	dialect, err := sqlast.DialectByName(scenario.Dialect)
	if err != nil {
		return nil, err
	}

	prefix := scenario.TraceID
	if prefix == "" {
		prefix = testutil.DefaultTraceID
	}
	clock := testutil.NewDeterministicClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	opts := []translator.Option{
		translator.WithDialect(dialect),
		translator.WithIDGenerator(testutil.NewSequentialTraceGenerator(prefix)),
		translator.WithClock(clock.Now),
		translator.WithLogger(logger),
	}
	if scenario.Verify {
		checker, err := sqlcheck.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open checker: %w", err)
		}
		defer checker.Close()
		opts = append(opts, translator.WithChecker(checker))
	}

	tr, err := translator.New(def, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	h := &Harness{
		translator: tr,
		clock:      clock,
		logger:     logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow translates every step and validates its expect clause.
//
// Translation errors carrying a code are outcomes, not failures of the
// harness; only errors without one (verification, cancellation) abort the
// flow.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		result.AddQueryTrace(i, step.Query, h.clock.Next())

		res, err := h.translator.Translate(ctx, step.Query)
		if err != nil {
			code := errs.CodeOf(err)
			if code == "" {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			result.AddErrorTrace(i, string(code), errs.SubjectOf(err), h.clock.Next())
			h.logger.Info("flow step failed", "step", i, "code", code)
		} else {
			result.AddSQLTrace(i, TraceEvent{
				Seq:     h.clock.Next(),
				TraceID: res.TraceID,
				SQL:     res.SQL,
				Tables:  tableNames(res.Select),
				Columns: res.Select.Columns,
				Joins:   len(res.Select.Joins),
			})
			h.logger.Info("flow step translated", "step", i, "trace_id", res.TraceID)
		}

		if step.Expect != nil {
			if msg := checkExpect(i, step.Expect, result.Outcome(i)); msg != "" {
				result.AddError(msg)
			}
		}
	}
	return nil
}

// checkExpect compares a step outcome with its expect clause and returns a
// failure message, or "" when they agree.
func checkExpect(step int, want *ExpectClause, got *TraceEvent) string {
	switch {
	case got == nil:
		return fmt.Sprintf("flow[%d]: no outcome recorded", step)
	case want.Error != "" && got.Type != EventError:
		return fmt.Sprintf("flow[%d]: expected error %s, got SQL %q", step, want.Error, got.SQL)
	case want.Error != "" && got.Code != want.Error:
		return fmt.Sprintf("flow[%d]: expected error %s, got %s", step, want.Error, got.Code)
	case want.Error != "" && want.Subject != "" && got.Subject != want.Subject:
		return fmt.Sprintf("flow[%d]: expected subject %q, got %q", step, want.Subject, got.Subject)
	case want.SQL != "" && got.Type != EventSQL:
		return fmt.Sprintf("flow[%d]: expected SQL, got error %s (%s)", step, got.Code, got.Subject)
	case want.SQL != "" && got.SQL != want.SQL:
		return fmt.Sprintf("flow[%d]: SQL mismatch\n  expected: %s\n  actual:   %s", step, want.SQL, got.SQL)
	}
	return ""
}

// tableNames returns the distinct tables a statement reads, sorted.
func tableNames(sel *sqlast.SelectQuery) []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range sel.Tables() {
		if !seen[t] {
			seen[t] = true
			names = append(names, t)
		}
	}
	sort.Strings(names)
	return names
}
