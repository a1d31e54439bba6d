package harness

// Trace event types.
const (
	EventQuery = "query"
	EventSQL   = "sql"
	EventError = "error"
)

// TraceEvent is one entry of a scenario trace. Every flow step contributes a
// query event followed by either an sql or an error event.
type TraceEvent struct {
	Type    string   `json:"type"`
	Step    int      `json:"step"`
	Seq     int64    `json:"seq"`
	TraceID string   `json:"trace_id,omitempty"`
	Query   string   `json:"query,omitempty"`
	SQL     string   `json:"sql,omitempty"`
	Tables  []string `json:"tables,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Joins   int      `json:"joins,omitempty"`
	Code    string   `json:"code,omitempty"`
	Subject string   `json:"subject,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the events of all flow steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddQueryTrace records the query a step submitted.
func (r *Result) AddQueryTrace(step int, query string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EventQuery,
		Step:  step,
		Seq:   seq,
		Query: query,
	})
}

// AddSQLTrace records a successful translation.
func (r *Result) AddSQLTrace(step int, ev TraceEvent) {
	ev.Type = EventSQL
	ev.Step = step
	r.Trace = append(r.Trace, ev)
}

// AddErrorTrace records a failed translation.
func (r *Result) AddErrorTrace(step int, code, subject string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventError,
		Step:    step,
		Seq:     seq,
		Code:    code,
		Subject: subject,
	})
}

// Outcome returns the sql or error event of a step, or nil if the step did
// not run.
func (r *Result) Outcome(step int) *TraceEvent {
	for i := range r.Trace {
		ev := &r.Trace[i]
		if ev.Step == step && ev.Type != EventQuery {
			return ev
		}
	}
	return nil
}
