package harness

import "github.com/roach88/subq/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// SQL and Params are the compiled statement. Empty when compilation
	// failed.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Rows are the execution results. Nil when the statement was not run.
	Rows []ir.IRObject `json:"rows,omitempty"`

	// Warnings are lint warnings reported for the query.
	Warnings []string `json:"warnings,omitempty"`

	// CompileError is the compilation error, if any, and its code.
	CompileError string `json:"compile_error,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Warnings: []string{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
