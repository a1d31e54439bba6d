package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Step     int          // Flow step the assertion applies to
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (step %d)\n", e.Type, e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventQuery:
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, event.Query)
		case EventSQL:
			fmt.Fprintf(&buf, "      => %s\n", event.SQL)
		case EventError:
			fmt.Fprintf(&buf, "      => %s %s\n", event.Code, event.Subject)
		}
	}

	return buf.String()
}

// sqlOutcome returns the sql event of the assertion's step, or an
// AssertionError describing what happened instead.
func sqlOutcome(result *Result, assertion Assertion) (*TraceEvent, error) {
	ev := result.Outcome(assertion.Step)
	if ev != nil && ev.Type == EventSQL {
		return ev, nil
	}
	actual := "step did not run"
	if ev != nil {
		actual = fmt.Sprintf("error %s (%s)", ev.Code, ev.Subject)
	}
	return nil, &AssertionError{
		Type:     assertion.Type,
		Step:     assertion.Step,
		Expected: "a translated statement",
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertJoinCount checks the statement has exactly Count joins.
func assertJoinCount(result *Result, assertion Assertion) error {
	ev, err := sqlOutcome(result, assertion)
	if err != nil {
		return err
	}
	if ev.Joins != assertion.Count {
		return &AssertionError{
			Type:     AssertJoinCount,
			Step:     assertion.Step,
			Expected: fmt.Sprintf("%d joins", assertion.Count),
			Actual:   fmt.Sprintf("%d joins", ev.Joins),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertColumns checks the select list, order included.
func assertColumns(result *Result, assertion Assertion) error {
	ev, err := sqlOutcome(result, assertion)
	if err != nil {
		return err
	}
	if !slices.Equal(ev.Columns, assertion.Columns) {
		return &AssertionError{
			Type:     AssertColumns,
			Step:     assertion.Step,
			Expected: strings.Join(assertion.Columns, ", "),
			Actual:   strings.Join(ev.Columns, ", "),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertUsesTable checks the statement reads Table in FROM or a JOIN.
func assertUsesTable(result *Result, assertion Assertion) error {
	ev, err := sqlOutcome(result, assertion)
	if err != nil {
		return err
	}
	if !slices.Contains(ev.Tables, assertion.Table) {
		return &AssertionError{
			Type:     AssertUsesTable,
			Step:     assertion.Step,
			Expected: fmt.Sprintf("table %s", assertion.Table),
			Actual:   fmt.Sprintf("tables %v", ev.Tables),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertErrorCode checks the step failed with Code.
func assertErrorCode(result *Result, assertion Assertion) error {
	ev := result.Outcome(assertion.Step)
	if ev != nil && ev.Type == EventError && ev.Code == assertion.Code {
		return nil
	}
	actual := "step did not run"
	switch {
	case ev == nil:
	case ev.Type == EventSQL:
		actual = fmt.Sprintf("SQL %s", ev.SQL)
	default:
		actual = fmt.Sprintf("error %s", ev.Code)
	}
	return &AssertionError{
		Type:     AssertErrorCode,
		Step:     assertion.Step,
		Expected: fmt.Sprintf("error %s", assertion.Code),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertJoinCount:
			err = assertJoinCount(result, assertion)
		case AssertColumns:
			err = assertColumns(result, assertion)
		case AssertUsesTable:
			err = assertUsesTable(result, assertion)
		case AssertErrorCode:
			err = assertErrorCode(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
