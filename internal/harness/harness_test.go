package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario file under testdata/scenarios.
// They must all pass: the scenarios are the executable conformance suite.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%v", result.Errors)
		})
	}
}

func TestRunAssignsSequentialIDs(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/retroactive-correction.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Facts, 3)

	for i, f := range result.Facts {
		assert.Equal(t, int64(i+1), f.Seq)
	}
	assert.Equal(t, "fact-000001", result.Facts[0].ID)
	assert.Equal(t, "fact-000003", result.Facts[2].ID)
}

func TestRunDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/retroactive-correction.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, second.Facts, len(first.Facts))
	for i := range first.Facts {
		assert.Equal(t, first.Facts[i].ID, second.Facts[i].ID)
		assert.Equal(t, first.Facts[i].Seq, second.Facts[i].Seq)
		assert.True(t, first.Facts[i].TransactionTime.Equal(second.Facts[i].TransactionTime))
	}
}

func TestRunFailingAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "a wrong expectation must fail, not error",
		Facts: []FactStep{
			{Entity: "e1", Field: "f1", Value: 1, ValidTime: "2024-01-01T00:00:00Z"},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Entity: "e1", Count: 99},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "99 facts")
}

func TestRunImplicitTransactionTimes(t *testing.T) {
	// Facts without txn_time get the stepping clock, so they are still
	// deterministic and strictly ordered.
	scenario := &Scenario{
		Name:        "implicit-times",
		Description: "stepping clock assigns transaction times",
		Facts: []FactStep{
			{Entity: "e1", Field: "f1", Value: 1, ValidTime: "2024-01-01T00:00:00Z"},
			{Entity: "e1", Field: "f1", Value: 2, ValidTime: "2024-01-02T00:00:00Z"},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Entity: "e1", Count: 2},
			{Type: AssertRetroactiveCount, Entity: "e1", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "scenario failed:\n%v", result.Errors)

	require.Len(t, result.Facts, 2)
	assert.True(t, result.Facts[1].TransactionTime.After(result.Facts[0].TransactionTime))
}
