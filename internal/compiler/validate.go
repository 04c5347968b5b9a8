package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/subq/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrModelNoFields       = "E101" // model declares no fields
	ErrInvalidFieldType    = "E102" // type is not one of schema.ValidFieldTypes
	ErrDuplicateColumn     = "E103" // two fields map to the same column
	ErrMultiplePrimaryKeys = "E104" // more than one primary_key field
	ErrUnknownReference    = "E105" // references names an unknown model
	ErrDuplicateModel      = "E106" // two models share a name
	ErrDuplicateTable      = "E107" // two models share a table
	ErrReservedFieldName   = "E108" // field named "pk"
	ErrInvalidIdentifier   = "E109" // table or column is not a plain identifier
	ErrReferenceNoKey      = "E110" // reference target has no primary key
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of compiled models against each other.
// Returns all errors found (does not fail-fast).
func Validate(models []*schema.Model) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]*schema.Model, len(models))
	tables := make(map[string]string, len(models))
	for _, m := range models {
		if _, dup := byName[m.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   "model." + m.Name,
				Message: fmt.Sprintf("duplicate model name: %q", m.Name),
				Code:    ErrDuplicateModel,
			})
		}
		byName[m.Name] = m

		if other, dup := tables[m.Table]; dup {
			errs = append(errs, ValidationError{
				Field:   "model." + m.Name + ".table",
				Message: fmt.Sprintf("table %q is already used by model %s", m.Table, other),
				Code:    ErrDuplicateTable,
			})
		}
		tables[m.Table] = m.Name

		if !identifierPattern.MatchString(m.Table) {
			errs = append(errs, ValidationError{
				Field:   "model." + m.Name + ".table",
				Message: fmt.Sprintf("table %q is not a valid identifier", m.Table),
				Code:    ErrInvalidIdentifier,
			})
		}
	}

	for _, m := range models {
		errs = append(errs, validateModel(m, byName)...)
	}
	return errs
}

func validateModel(m *schema.Model, byName map[string]*schema.Model) []ValidationError {
	var errs []ValidationError
	prefix := "model." + m.Name

	// E101: at least one field
	if len(m.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".fields",
			Message: "at least one field is required",
			Code:    ErrModelNoFields,
		})
	}

	columns := make(map[string]string)
	primaryKeys := 0
	for _, f := range m.Fields {
		path := prefix + ".fields." + f.Name

		if f.Name == schema.PKAlias {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("%q is reserved for the primary key alias", schema.PKAlias),
				Code:    ErrReservedFieldName,
			})
		}

		if !f.Type.IsValid() {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid type %q for field %q, expected one of %v", f.Type, f.Name, schema.ValidFieldTypes),
				Code:    ErrInvalidFieldType,
			})
		}

		if !identifierPattern.MatchString(f.Column) {
			errs = append(errs, ValidationError{
				Field:   path + ".column",
				Message: fmt.Sprintf("column %q is not a valid identifier", f.Column),
				Code:    ErrInvalidIdentifier,
			})
		}
		if other, dup := columns[f.Column]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".column",
				Message: fmt.Sprintf("column %q is already used by field %q", f.Column, other),
				Code:    ErrDuplicateColumn,
			})
		}
		columns[f.Column] = f.Name

		if f.PrimaryKey {
			primaryKeys++
		}

		if f.References != "" {
			target, ok := byName[f.References]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Field:   path + ".references",
					Message: fmt.Sprintf("unknown model %q", f.References),
					Code:    ErrUnknownReference,
				})
			default:
				if _, hasPK := target.PrimaryKey(); !hasPK {
					errs = append(errs, ValidationError{
						Field:   path + ".references",
						Message: fmt.Sprintf("model %q has no primary key to reference", f.References),
						Code:    ErrReferenceNoKey,
					})
				}
			}
		}
	}

	// E104: at most one primary key
	if primaryKeys > 1 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".fields",
			Message: fmt.Sprintf("model declares %d primary keys, at most one is allowed", primaryKeys),
			Code:    ErrMultiplePrimaryKeys,
		})
	}

	return errs
}
