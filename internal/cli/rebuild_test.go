package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildEmptyDatabase(t *testing.T) {
	dbPath := tempDB(t)
	seedFacts(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRebuildCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "rebuilt index: 0 facts, 0 entities")
}

func TestRebuildCountsFactsAndEntities(t *testing.T) {
	dbPath := tempDB(t)
	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	seedFacts(t, dbPath,
		amountDraft("acct-1", "100", jan15),
		amountDraft("acct-1", "95", jan15.AddDate(0, 0, 5)),
		amountDraft("acct-2", "999", jan15),
	)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: dbPath}
	cmd := NewRebuildCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--verify"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), data["facts"])
	assert.Equal(t, []any{"acct-1", "acct-2"}, data["entities"])
	assert.Equal(t, true, data["verified"])
}

func TestRebuildHelpMatchesVerifyCheck(t *testing.T) {
	cmd := NewRebuildCommand(&RootOptions{})

	// VerifySequence checks ordering only. A failed append burns a
	// sequence number, so gaps are legal and the help must not promise
	// gap detection.
	assert.Contains(t, cmd.Long, "strictly increase")
	assert.Contains(t, cmd.Long, "Gaps are legal")
	assert.NotContains(t, cmd.Long, "no gaps")
}

func TestRebuildVerifyTextOutput(t *testing.T) {
	dbPath := tempDB(t)
	seedFacts(t, dbPath, amountDraft("acct-1", "100", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRebuildCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--verify"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "rebuilt index: 1 facts, 1 entities (sequence verified)")
}
