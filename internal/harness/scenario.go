package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/querydoc"
	"github.com/roach88/subq/internal/querysql"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models is the path to the CUE model definitions, a directory or a
	// single .cue file. Relative paths are resolved against the scenario
	// file's directory.
	Models string `yaml:"models"`

	// Dialect selects the SQL dialect. Defaults to sqlite. Only sqlite
	// scenarios can seed data and expect rows.
	Dialect string `yaml:"dialect,omitempty"`

	// Seed lists rows inserted before the query runs, in order.
	Seed []SeedBlock `yaml:"seed,omitempty"`

	// Query is the query document under test.
	Query querydoc.Doc `yaml:"query"`

	// Expect describes the expected outcome.
	Expect Expect `yaml:"expect"`
}

// SeedBlock inserts rows into one model's table.
type SeedBlock struct {
	Model string           `yaml:"model"`
	Rows  []map[string]any `yaml:"rows"`
}

// Expect specifies the expected compilation and execution outcome.
// Unset fields are not checked.
type Expect struct {
	// SQL is the exact expected statement.
	SQL string `yaml:"sql,omitempty"`

	// SQLContains lists fragments that must appear in the statement.
	SQLContains []string `yaml:"sql_contains,omitempty"`

	// Params are the expected bound parameters, in order. An empty list
	// expects no parameters.
	Params []any `yaml:"params,omitempty"`

	// Rows are the expected result rows, in order. An empty list expects
	// no rows.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Warnings lists fragments that must each appear in some lint warning.
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is the expected error code when compilation should fail.
	Error string `yaml:"error,omitempty"`

	// ErrorContains is a fragment of the expected error message.
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// expectsFailure reports whether the scenario expects compilation to fail.
func (e Expect) expectsFailure() bool {
	return e.Error != "" || e.ErrorContains != ""
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The models path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(scenario.Models) {
		scenario.Models = filepath.Join(filepath.Dir(path), scenario.Models)
	}
	if _, err := os.Stat(scenario.Models); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: models not found: %s", scenario.Models)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario, rejecting unknown keys. The models
// path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if s.Models == "" {
		return fmt.Errorf("models is required")
	}

	if s.Query.Model == "" {
		return fmt.Errorf("query.model is required")
	}

	d, err := querysql.DialectByName(s.Dialect)
	if err != nil {
		return err
	}

	if err := validateSeed(s.Seed); err != nil {
		return err
	}

	if d.Name() != "sqlite" && (len(s.Seed) > 0 || s.Expect.Rows != nil) {
		return fmt.Errorf("seed and expect.rows require the sqlite dialect, got %s", d.Name())
	}

	if err := validateExpect(&s.Expect); err != nil {
		return err
	}
	return nil
}

// LoadSeed reads a standalone seed file: a YAML list of seed blocks in
// the same shape as a scenario's seed section.
func LoadSeed(path string) ([]SeedBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed []SeedBlock
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSeed(seed); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return seed, nil
}

func validateSeed(seed []SeedBlock) error {
	for i, block := range seed {
		if block.Model == "" {
			return fmt.Errorf("seed[%d]: model is required", i)
		}
		if len(block.Rows) == 0 {
			return fmt.Errorf("seed[%d]: rows list is required and must be non-empty", i)
		}
	}
	return nil
}

// validateExpect rejects expectation combinations that can never pass.
func validateExpect(e *Expect) error {
	switch expr.ErrorCode(e.Error) {
	case "", expr.ErrCodeFieldResolution, expr.ErrCodeAmbiguousOutputField,
		expr.ErrCodeUncorrelatedSubquery, expr.ErrCodeOther:
	default:
		return fmt.Errorf("expect.error: unknown error code %q", e.Error)
	}

	if e.expectsFailure() {
		if e.SQL != "" || len(e.SQLContains) > 0 || e.Params != nil || e.Rows != nil {
			return fmt.Errorf("expect: error cannot be combined with sql, params or rows")
		}
		return nil
	}

	if e.SQL == "" && len(e.SQLContains) == 0 && e.Params == nil && e.Rows == nil && len(e.Warnings) == 0 {
		return fmt.Errorf("expect: at least one expectation is required")
	}
	return nil
}
