package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/fact"
	"chronicle/internal/testutil"
	"chronicle/internal/timeline"
)

func TestReconstructManyPositionalResults(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		entity := fmt.Sprintf("acct-%d", i)
		for j := 0; j < 3; j++ {
			_, err := l.Append(ctx, draft(entity, "amount", "10", testutil.T.Add(time.Duration(j)*time.Hour)))
			require.NoError(t, err)
		}
	}

	filtersList := make([]timeline.Filters, 8)
	for i := range filtersList {
		filtersList[i] = timeline.Filters{EntityID: fmt.Sprintf("acct-%d", i)}
	}

	out, err := l.ReconstructMany(ctx, filtersList)
	require.NoError(t, err)
	require.Len(t, out, 8)

	for i, tl := range out {
		require.NotNil(t, tl, "result %d", i)
		assert.Equal(t, fmt.Sprintf("acct-%d", i), tl.EntityID)
		assert.Equal(t, 3, tl.TotalEvents)
		assert.True(t, tl.Complete)
	}
}

func TestReconstructManyValidatesUpFront(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T))
	require.NoError(t, err)

	out, err := l.ReconstructMany(ctx, []timeline.Filters{
		{EntityID: "acct-1"},
		{}, // missing entity rejects the whole batch
	})
	require.Error(t, err)
	assert.True(t, fact.IsValidation(err))
	assert.Nil(t, out)
}

func TestReconstructManySharedWatermark(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T))
	require.NoError(t, err)

	// An explicit watermark bounds the query to the log prefix, the same
	// bound ReconstructMany captures for every query in a batch.
	_, err = l.Append(ctx, draft("acct-1", "amount", "20", testutil.T.Add(time.Hour)))
	require.NoError(t, err)

	out, err := l.ReconstructMany(ctx, []timeline.Filters{
		{EntityID: "acct-1", Watermark: 1},
		{EntityID: "acct-1"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 1, out[0].TotalEvents)
	assert.Equal(t, 2, out[1].TotalEvents)
}

func TestReconstructManyEmptyBatch(t *testing.T) {
	l := openLedger(t)

	out, err := l.ReconstructMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
