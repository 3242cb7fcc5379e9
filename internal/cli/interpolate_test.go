package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/fact"
)

func seedSensorFacts(t *testing.T, dbPath string) {
	t.Helper()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	seedFacts(t, dbPath,
		fact.Draft{
			EntityID:        "sensor-1",
			FieldName:       "temperature",
			NewValue:        fact.MustNumber("10"),
			TransactionTime: base,
			ValidTime:       base,
		},
		fact.Draft{
			EntityID:        "sensor-1",
			FieldName:       "temperature",
			NewValue:        fact.MustNumber("20"),
			TransactionTime: base.Add(10 * time.Second),
			ValidTime:       base.Add(10 * time.Second),
		},
	)
}

func TestInterpolateBetweenFacts(t *testing.T) {
	dbPath := tempDB(t)
	seedSensorFacts(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: dbPath}
	cmd := NewInterpolateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "sensor-1", "--field", "temperature", "--at", "2024-01-15T00:00:05Z"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["known"])
	assert.Equal(t, true, data["interpolated"])
	assert.Equal(t, "15.0", data["value"])
}

func TestInterpolateBeforeFirstFact(t *testing.T) {
	dbPath := tempDB(t)
	seedSensorFacts(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewInterpolateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "sensor-1", "--field", "temperature", "--at", "2024-01-14T00:00:00Z"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "unknown")
}

func TestInterpolateCarriesForward(t *testing.T) {
	dbPath := tempDB(t)
	seedSensorFacts(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewInterpolateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "sensor-1", "--field", "temperature", "--at", "2024-06-01T00:00:00Z"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "= 20 (carried forward)")
}

func TestInterpolateRejectsBadTime(t *testing.T) {
	rootOpts := &RootOptions{Format: "text", Database: tempDB(t)}
	cmd := NewInterpolateCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--entity", "sensor-1", "--field", "temperature", "--at", "noon"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--at")
}
