package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cypher2sql/internal/sqlast"
)

// Scenario defines a translation conformance scenario: a schema, a flow of
// queries with their expected outcomes, and assertions over the trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of the schema document or CUE directory.
	// Relative paths resolve against the scenario file location.
	Schema string `yaml:"schema"`

	// Dialect names the SQL dialect. Defaults to basic.
	Dialect string `yaml:"dialect,omitempty"`

	// Verify prepares each generated statement against shadow tables.
	Verify bool `yaml:"verify,omitempty"`

	// Flow contains the queries to translate, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the resulting trace.
	// Supported types: join_count, columns, uses_table, error_code
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// TraceID is an optional fixed trace ID for deterministic traces.
	// If empty, defaults to "test-trace-default".
	TraceID string `yaml:"trace_id,omitempty"`
}

// FlowStep is one query of the flow.
type FlowStep struct {
	// Query is the Cypher text to translate.
	Query string `yaml:"query"`

	// Expect specifies the expected outcome.
	// If nil, the step only needs to translate without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step. Exactly one of SQL
// and Error is set.
type ExpectClause struct {
	// SQL is the exact rendered statement.
	SQL string `yaml:"sql,omitempty"`

	// Error is the expected error code, e.g. UNSUPPORTED_FEATURE.
	Error string `yaml:"error,omitempty"`

	// Subject is the expected error subject. Only checked when set.
	Subject string `yaml:"subject,omitempty"`
}

// Assertion validates one step of the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "join_count": the statement has exactly Count joins
	// - "columns": the statement selects exactly Columns, in order
	// - "uses_table": the statement reads Table
	// - "error_code": the step failed with Code
	Type string `yaml:"type"`

	// Step is the zero-based flow index the assertion applies to.
	Step int `yaml:"step"`

	// Count is the expected number of joins (used by join_count).
	Count int `yaml:"count,omitempty"`

	// Columns are the expected select columns (used by columns).
	Columns []string `yaml:"columns,omitempty"`

	// Table is a table name (used by uses_table).
	Table string `yaml:"table,omitempty"`

	// Code is an error code (used by error_code).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertJoinCount = "join_count"
	AssertColumns   = "columns"
	AssertUsesTable = "uses_table"
	AssertErrorCode = "error_code"
)

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved relative to the scenario file. Returns an error if the file
// doesn't exist, is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if s.Dialect != "" {
		if _, err := sqlast.DialectByName(s.Dialect); err != nil {
			return err
		}
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Query == "" {
			return fmt.Errorf("flow[%d]: query is required", i)
		}
		if e := step.Expect; e != nil {
			if (e.SQL == "") == (e.Error == "") {
				return fmt.Errorf("flow[%d].expect: exactly one of sql and error is required", i)
			}
			if e.Subject != "" && e.Error == "" {
				return fmt.Errorf("flow[%d].expect: subject requires error", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Flow)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step < 0 || a.Step >= steps {
		return fmt.Errorf("assertions[%d]: step %d out of range (flow has %d steps)", index, a.Step, steps)
	}

	switch a.Type {
	case AssertJoinCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for join_count", index)
		}
	case AssertColumns:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns list is required for columns", index)
		}
	case AssertUsesTable:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for uses_table", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
