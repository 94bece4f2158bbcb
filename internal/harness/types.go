package harness

// TraceStep is one derived predicate with its provenance.
type TraceStep struct {
	Seq       int64  `yaml:"seq"`
	Round     int    `yaml:"round"`
	Via       string `yaml:"via"`
	Predicate string `yaml:"predicate"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `yaml:"pass"`

	// RunID is the ID the run was logged under.
	RunID string `yaml:"run_id"`

	// Derived holds the derived predicates in discovery order.
	Derived []string `yaml:"derived"`

	// Trace carries provenance for each entry of Derived.
	Trace []TraceStep `yaml:"trace"`

	// Contradictions holds the rendered contradiction messages.
	Contradictions []string `yaml:"contradictions,omitempty"`

	// Rounds is the number of closure rounds run.
	Rounds int `yaml:"rounds"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `yaml:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Derived: []string{},
		Trace:   []TraceStep{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a derived predicate and its provenance.
func (r *Result) AddStep(step TraceStep) {
	r.Derived = append(r.Derived, step.Predicate)
	r.Trace = append(r.Trace, step)
}
