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

func amountDraft(entity, value string, valid time.Time) fact.Draft {
	return fact.Draft{
		EntityID:  entity,
		FieldName: "amount",
		NewValue:  fact.MustNumber(value),
		ValidTime: valid,
	}
}

func TestHistoryEmptyEntity(t *testing.T) {
	dbPath := tempDB(t)
	seedFacts(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "nobody"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "History for nobody (0 facts)")
}

func TestHistoryListsFactsInOrder(t *testing.T) {
	dbPath := tempDB(t)
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	seedFacts(t, dbPath,
		amountDraft("acct-1", "100", base),
		amountDraft("acct-1", "95", base.AddDate(0, 0, 5)),
		amountDraft("acct-2", "999", base),
	)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: dbPath}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "acct-1"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "acct-1", data["entity_id"])
	assert.Equal(t, float64(2), data["total"])

	facts := data["facts"].([]any)
	require.Len(t, facts, 2)
	first := facts[0].(map[string]any)
	assert.Equal(t, float64(1), first["seq"])
	assert.Equal(t, "fact-000001", first["id"])
	assert.Equal(t, "100", first["new_value"])
}

func TestHistoryMarksRetroactiveFacts(t *testing.T) {
	dbPath := tempDB(t)
	// Valid times predate the seed clock, so every fact is retroactive.
	seedFacts(t, dbPath, amountDraft("acct-1", "47", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--entity", "acct-1"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), " R ")
}
