package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/subq/internal/schema"
)

// FieldResolutionError reports a field name that does not exist on the
// model it was resolved against.
type FieldResolutionError = schema.FieldResolutionError

// AmbiguousOutputFieldError reports a subquery whose output type cannot be
// inferred because it selects columns of different types. Declaring
// Subquery.OutputField resolves it.
type AmbiguousOutputFieldError struct {
	Model   string
	Columns []string
	Types   []schema.FieldType
}

func (e *AmbiguousOutputFieldError) Error() string {
	types := make([]string, len(e.Types))
	for i, t := range e.Types {
		types[i] = string(t)
	}
	return fmt.Sprintf("cannot infer output field of subquery on %s: columns %s have types %s; declare an output field",
		e.Model, strings.Join(e.Columns, ", "), strings.Join(types, ", "))
}

// UncorrelatedSubqueryError reports an outer reference compiled without an
// enclosing query to resolve it against.
type UncorrelatedSubqueryError struct {
	Field string
}

func (e *UncorrelatedSubqueryError) Error() string {
	return fmt.Sprintf("query contains a reference to an outer query (%q) and may only be used in a subquery", e.Field)
}

// ErrorCode categorizes compilation errors for CLI and harness output.
type ErrorCode string

const (
	ErrCodeFieldResolution      ErrorCode = "FIELD_RESOLUTION"
	ErrCodeAmbiguousOutputField ErrorCode = "AMBIGUOUS_OUTPUT_FIELD"
	ErrCodeUncorrelatedSubquery ErrorCode = "UNCORRELATED_SUBQUERY"
	ErrCodeOther                ErrorCode = "COMPILE_ERROR"
)

// Code returns the category of err, unwrapping as needed.
func Code(err error) ErrorCode {
	switch {
	case IsFieldResolutionError(err):
		return ErrCodeFieldResolution
	case IsAmbiguousOutputFieldError(err):
		return ErrCodeAmbiguousOutputField
	case IsUncorrelatedSubqueryError(err):
		return ErrCodeUncorrelatedSubquery
	default:
		return ErrCodeOther
	}
}

// IsFieldResolutionError reports whether err wraps a *FieldResolutionError.
func IsFieldResolutionError(err error) bool {
	var fe *FieldResolutionError
	return errors.As(err, &fe)
}

// IsAmbiguousOutputFieldError reports whether err wraps an
// *AmbiguousOutputFieldError.
func IsAmbiguousOutputFieldError(err error) bool {
	var ae *AmbiguousOutputFieldError
	return errors.As(err, &ae)
}

// IsUncorrelatedSubqueryError reports whether err wraps an
// *UncorrelatedSubqueryError.
func IsUncorrelatedSubqueryError(err error) bool {
	var ue *UncorrelatedSubqueryError
	return errors.As(err, &ue)
}
