// Package harness runs translation conformance scenarios.
//
// A scenario names a schema, translates a flow of Cypher queries through a
// translator.Translator, checks every outcome against its expect clause and
// evaluates assertions over the resulting trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schemas/movies.yaml
//	dialect: postgres
//	verify: true
//	trace_id: test-trace-0001
//	flow:
//	  - query: "MATCH (p:Person)-[:ACTED_IN]->(m:Movie)"
//	    expect:
//	      sql: 'SELECT t0.* FROM "people" t0 INNER JOIN ...'
//	  - query: "MATCH (a)-[*]->(b) RETURN a"
//	    expect:
//	      error: UNSUPPORTED_FEATURE
//	      subject: variable-length traversal
//	assertions:
//	  - type: join_count
//	    step: 0
//	    count: 2
//
// # Assertion Types
//
//   - join_count: the statement of a step has exactly N joins
//   - columns: the statement of a step selects exactly the listed columns
//   - uses_table: the statement of a step reads a table
//   - error_code: a step failed with the given code
//
// # Deterministic Testing
//
// Trace IDs come from a testutil.SequentialTraceGenerator prefixed with the
// scenario trace_id, and event sequence numbers from a
// testutil.DeterministicClock, so the same scenario always yields the same
// trace. RunWithGolden compares the canonical JSON of that trace with
// testdata/golden/<name>.golden.
package harness
