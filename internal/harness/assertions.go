package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/subq/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes the compiled statement to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled statement for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}

	return buf.String()
}

// EvaluateExpectations checks a successful compilation (and execution, if
// rows were fetched) against expect. Returns one message per failure.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errors []string
	add := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	if expect.expectsFailure() {
		add(&AssertionError{
			Type:     "error",
			Expected: describeExpectedError(expect),
			Actual:   "compiled successfully",
			SQL:      result.SQL,
		})
		return errors
	}

	if expect.SQL != "" {
		add(assertSQL(result.SQL, expect.SQL))
	}
	for _, fragment := range expect.SQLContains {
		add(assertSQLContains(result.SQL, fragment))
	}
	if expect.Params != nil {
		add(assertParams(result, expect.Params))
	}
	if expect.Rows != nil {
		add(assertRows(result, expect.Rows))
	}
	for _, fragment := range expect.Warnings {
		add(assertWarning(result.Warnings, fragment))
	}
	return errors
}

// EvaluateCompileError checks a failed compilation against expect.
func EvaluateCompileError(err error, code string, expect Expect) []string {
	if !expect.expectsFailure() {
		return []string{(&AssertionError{
			Type:     "compile",
			Expected: "successful compilation",
			Actual:   fmt.Sprintf("[%s] %v", code, err),
		}).Error()}
	}

	var errors []string
	if expect.Error != "" && expect.Error != code {
		errors = append(errors, (&AssertionError{
			Type:     "error",
			Expected: expect.Error,
			Actual:   fmt.Sprintf("[%s] %v", code, err),
		}).Error())
	}
	if expect.ErrorContains != "" && !strings.Contains(err.Error(), expect.ErrorContains) {
		errors = append(errors, (&AssertionError{
			Type:     "error_contains",
			Expected: fmt.Sprintf("error containing %q", expect.ErrorContains),
			Actual:   err.Error(),
		}).Error())
	}
	return errors
}

func describeExpectedError(expect Expect) string {
	switch {
	case expect.Error != "" && expect.ErrorContains != "":
		return fmt.Sprintf("%s error containing %q", expect.Error, expect.ErrorContains)
	case expect.Error != "":
		return expect.Error + " error"
	default:
		return fmt.Sprintf("error containing %q", expect.ErrorContains)
	}
}

// assertSQL compares the statement exactly.
func assertSQL(actual, expected string) error {
	if actual == expected {
		return nil
	}
	return &AssertionError{
		Type:     "sql",
		Expected: expected,
		Actual:   actual,
	}
}

// assertSQLContains checks that fragment appears in the statement.
func assertSQLContains(sql, fragment string) error {
	if strings.Contains(sql, fragment) {
		return nil
	}
	return &AssertionError{
		Type:     "sql_contains",
		Expected: fmt.Sprintf("statement containing %q", fragment),
		Actual:   "not found",
		SQL:      sql,
	}
}

// assertParams compares bound parameters by their canonical JSON.
func assertParams(result *Result, expected []any) error {
	want, err := canonicalString(expected)
	if err != nil {
		return fmt.Errorf("expect.params: %w", err)
	}
	params := result.Params
	if params == nil {
		params = []any{}
	}
	got, err := canonicalString(params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     "params",
		Expected: want,
		Actual:   got,
		SQL:      result.SQL,
	}
}

// assertRows compares result rows, in order, by their canonical JSON.
func assertRows(result *Result, expected []map[string]any) error {
	wantRows := make([]any, len(expected))
	for i, row := range expected {
		wantRows[i] = row
	}
	want, err := canonicalString(wantRows)
	if err != nil {
		return fmt.Errorf("expect.rows: %w", err)
	}

	gotRows := make(ir.IRArray, len(result.Rows))
	for i, row := range result.Rows {
		gotRows[i] = row
	}
	got, err := ir.MarshalCanonical(gotRows)
	if err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	if string(got) == want {
		return nil
	}
	return &AssertionError{
		Type:     "rows",
		Expected: want,
		Actual:   string(got),
		SQL:      result.SQL,
	}
}

// assertWarning checks that some lint warning contains fragment.
func assertWarning(warnings []string, fragment string) error {
	for _, w := range warnings {
		if strings.Contains(w, fragment) {
			return nil
		}
	}
	return &AssertionError{
		Type:     "warnings",
		Expected: fmt.Sprintf("warning containing %q", fragment),
		Actual:   fmt.Sprintf("%q", warnings),
	}
}

// canonicalString converts YAML-decoded or driver values to IR and
// returns their canonical JSON.
func canonicalString(v []any) (string, error) {
	irv, err := ir.FromAny(v)
	if err != nil {
		return "", err
	}
	data, err := ir.MarshalCanonical(irv)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
