package harness

import (
	"testing"

	"github.com/gosimple/slug"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/subq/internal/ir"
)

// Snapshot captures the compiled statement of a scenario.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string `json:"scenario_name"`
	SQL          string `json:"sql"`
	Params       []any  `json:"params"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	params := s.Params
	if params == nil {
		params = []any{}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"sql":           s.SQL,
		"params":        params,
	}
}

// SnapshotJSON returns the canonical JSON golden content for a result.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		SQL:          result.SQL,
		Params:       result.Params,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// GoldenName returns the golden file name for a scenario name.
func GoldenName(scenarioName string) string {
	return slug.Make(scenarioName)
}

// RunWithGolden executes a scenario and compares the compiled statement
// against a golden file in testdata/golden/<slug>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the statement doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's statement against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, GoldenName(scenarioName), data)

	return nil
}
