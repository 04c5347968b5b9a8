package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"hot-title", "legacy-subquery", "inner-params-first"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadFixture(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenName(t *testing.T) {
	assert.Equal(t, "hot-title", GoldenName("hot-title"))
	assert.Equal(t, "hot-title-per-publisher", GoldenName("Hot Title per Publisher"))
}

func TestSnapshot_NilParams(t *testing.T) {
	s := Snapshot{ScenarioName: "x", SQL: "SELECT 1"}

	m := s.toCanonicalMap()
	assert.Equal(t, []any{}, m["params"])
}

func TestSnapshotJSON(t *testing.T) {
	data, err := SnapshotJSON("x", &Result{SQL: `SELECT "a"`, Params: []any{int64(1), "b"}})
	require.NoError(t, err)
	assert.Equal(t, `{"params":[1,"b"],"scenario_name":"x","sql":"SELECT \"a\""}`, string(data))
}
