package schema

import (
	"fmt"
	"strings"
)

// FieldType is the declared storage type of a field.
type FieldType string

const (
	TypeInt      FieldType = "int"
	TypeString   FieldType = "string"
	TypeBool     FieldType = "bool"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
)

// ValidFieldTypes lists the accepted FieldType values in declaration order.
var ValidFieldTypes = []FieldType{TypeInt, TypeString, TypeBool, TypeDate, TypeDateTime}

// IsValid reports whether t is one of ValidFieldTypes.
func (t FieldType) IsValid() bool {
	for _, v := range ValidFieldTypes {
		if t == v {
			return true
		}
	}
	return false
}

// SQLType returns the column type used when creating tables.
func (t FieldType) SQLType() string {
	switch t {
	case TypeInt:
		return "INTEGER"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// PKAlias is the field name that always refers to the primary key.
const PKAlias = "pk"

// Field is a single model attribute.
type Field struct {
	Name       string    `json:"name"`
	Column     string    `json:"column"`
	Type       FieldType `json:"type"`
	PrimaryKey bool      `json:"primary_key,omitempty"`

	// References names the target model when the field is a foreign key.
	References string `json:"references,omitempty"`
}

// Model maps a named entity onto a table.
type Model struct {
	Name   string  `json:"name"`
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// PrimaryKey returns the primary key field, if the model declares one.
func (m *Model) PrimaryKey() (Field, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return Field{}, false
}

// Field resolves name to a field. Lookup order: the "pk" alias, field
// names, then column names (so a foreign key "publisher" can also be
// addressed as "publisher_id").
func (m *Model) Field(name string) (Field, error) {
	if name == PKAlias {
		if pk, ok := m.PrimaryKey(); ok {
			return pk, nil
		}
		return Field{}, m.resolutionError(name)
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	for _, f := range m.Fields {
		if f.Column == name {
			return f, nil
		}
	}
	return Field{}, m.resolutionError(name)
}

// FieldNames returns field names in declaration order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

func (m *Model) resolutionError(name string) *FieldResolutionError {
	choices := m.FieldNames()
	if _, ok := m.PrimaryKey(); ok {
		choices = append([]string{PKAlias}, choices...)
	}
	return &FieldResolutionError{Model: m.Name, Field: name, Choices: choices}
}

// Registry is an ordered collection of models keyed by name.
type Registry struct {
	models []*Model
	byName map[string]*Model
}

// NewRegistry builds a registry. Later duplicates replace earlier ones.
func NewRegistry(models ...*Model) *Registry {
	r := &Registry{byName: make(map[string]*Model, len(models))}
	for _, m := range models {
		r.Add(m)
	}
	return r
}

// Add registers m, replacing any model with the same name.
func (r *Registry) Add(m *Model) {
	if _, ok := r.byName[m.Name]; ok {
		for i, existing := range r.models {
			if existing.Name == m.Name {
				r.models[i] = m
			}
		}
	} else {
		r.models = append(r.models, m)
	}
	r.byName[m.Name] = m
}

// Get returns the named model.
func (r *Registry) Get(name string) (*Model, error) {
	if m, ok := r.byName[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown model %q", name)
}

// Models returns all models in registration order.
func (r *Registry) Models() []*Model {
	return r.models
}

// FieldResolutionError reports a field name that does not exist on a model.
type FieldResolutionError struct {
	Model   string
	Field   string
	Choices []string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve keyword %q into field on %s; choices are: %s",
		e.Field, e.Model, strings.Join(e.Choices, ", "))
}
