package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cypher2sql/internal/canonical"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Dialect      string       `json:"dialect,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any, the shape
// canonical.Marshal accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"step": event.Step,
			"seq":  event.Seq,
		}
		if event.TraceID != "" {
			eventMap["trace_id"] = event.TraceID
		}
		if event.Query != "" {
			eventMap["query"] = event.Query
		}
		if event.Type == EventSQL {
			eventMap["sql"] = event.SQL
			eventMap["tables"] = stringList(event.Tables)
			eventMap["columns"] = stringList(event.Columns)
			eventMap["joins"] = event.Joins
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		if event.Subject != "" {
			eventMap["subject"] = event.Subject
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.Dialect != "" {
		result["dialect"] = s.Dialect
	}
	return result
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := assertSnapshot(t, scenario.Name, NewSnapshot(scenario, result)); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	return assertSnapshot(t, scenarioName, TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	})
}

// Marshal returns the canonical JSON form golden files hold.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return canonical.Marshal(s.toCanonicalMap())
}

// NewSnapshot builds the snapshot of a scenario run.
func NewSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Dialect:      scenario.Dialect,
		Trace:        result.Trace,
	}
}

func assertSnapshot(t *testing.T, name string, snapshot TraceSnapshot) error {
	t.Helper()

	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
