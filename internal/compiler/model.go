package compiler

import (
	"fmt"
	"strings"
	"unicode"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/subq/internal/schema"
)

// CompileModels compiles every model under the top-level "model" struct.
// Models are returned in declaration order.
func CompileModels(v cue.Value) ([]*schema.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var models []*schema.Model
	for iter.Next() {
		m, err := CompileModel(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("model.%s: %w", iter.Label(), err)
		}
		models = append(models, m)
	}
	return models, nil
}

// CompileModel parses a CUE value into a Model.
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Book: { fields: { id: { type: "int", primary_key: true } } }`)
//	m, err := CompileModel(v.LookupPath(cue.ParsePath("model.Book")))
//
// A field is either a bare CUE type (string, int, bool) or a struct with
// type, column, primary_key and references. The table defaults to the
// snake_case model name and a foreign key column to "<field>_id".
func CompileModel(v cue.Value) (*schema.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &schema.Model{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		m.Name = labels[len(labels)-1].String()
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.Table = table
	} else {
		m.Table = SnakeCase(m.Name)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, f)
	}
	if len(m.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: "at least one field is required",
			Pos:     fieldsVal.Pos(),
		}
	}
	return m, nil
}

// parseField reads one field definition.
func parseField(name string, v cue.Value) (schema.Field, error) {
	f := schema.Field{Name: name}

	if v.IncompleteKind() != cue.StructKind {
		t, err := extractTypeName(v)
		if err != nil {
			return f, err
		}
		f.Type = t
		f.Column = name
		return f, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return f, &CompileError{
			Field:   "fields." + name + ".type",
			Message: "field type is required",
			Pos:     v.Pos(),
		}
	}
	t, err := typeVal.String()
	if err != nil {
		return f, formatCUEError(err)
	}
	f.Type = schema.FieldType(t)

	if f.PrimaryKey, err = optionalBool(v, "primary_key"); err != nil {
		return f, err
	}
	if f.References, err = optionalString(v, "references"); err != nil {
		return f, err
	}
	if f.Column, err = optionalString(v, "column"); err != nil {
		return f, err
	}
	if f.Column == "" {
		f.Column = name
		if f.References != "" {
			f.Column = name + "_id"
		}
	}
	return f, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return false, nil
	}
	b, err := val.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// extractTypeName converts a bare CUE type to a field type.
// Floats are forbidden; use int.
func extractTypeName(v cue.Value) (schema.FieldType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return schema.TypeString, nil
	case cue.IntKind:
		return schema.TypeInt, nil
	case cue.BoolKind:
		return schema.TypeBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// SnakeCase converts a model name such as "BookReview" to "book_review".
// Runs of capitals stay together: "ISBNRecord" becomes "isbn_record".
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
