package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/fact"
	"chronicle/internal/store"
	"chronicle/internal/testutil"
	"chronicle/internal/timeline"
)

func openLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	storeOpts := []store.Option{
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("fact")),
		store.WithClock(testutil.NewSteppingClock(testutil.T, time.Second).Now),
	}
	l, err := Open(context.Background(), ":memory:", storeOpts, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func draft(entity, field, value string, valid time.Time) fact.Draft {
	return fact.Draft{
		EntityID:  entity,
		FieldName: field,
		NewValue:  fact.MustNumber(value),
		ValidTime: valid,
	}
}

func TestAppendIndexesFact(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	f, err := l.Append(ctx, draft("acct-1", "amount", "100", testutil.T))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.Seq)
	assert.Equal(t, "fact-000001", f.ID)

	// The index sees the fact immediately, no rebuild needed.
	snap, err := l.GetSnapshot(ctx, "acct-1", testutil.T.Add(time.Hour), fact.DimensionTransaction)
	require.NoError(t, err)
	assert.Equal(t, "100", fact.Display(snap.State["amount"]))
	assert.Equal(t, 1, snap.FactCount)
}

func TestAppendRejectsInvalidDraft(t *testing.T) {
	l := openLedger(t)

	_, err := l.Append(context.Background(), fact.Draft{EntityID: "acct-1"})
	require.Error(t, err)
	assert.True(t, fact.IsValidation(err))
}

func TestOpenRebuildsIndexFromLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.db")
	ctx := context.Background()

	first, err := Open(ctx, path, nil)
	require.NoError(t, err)
	_, err = first.Append(ctx, draft("acct-1", "amount", "100", testutil.T))
	require.NoError(t, err)
	_, err = first.Append(ctx, draft("acct-1", "amount", "95", testutil.T.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer second.Close()

	snap, err := second.GetSnapshot(ctx, "acct-1", testutil.T.Add(2*time.Hour), fact.DimensionValid)
	require.NoError(t, err)
	assert.Equal(t, "95", fact.Display(snap.State["amount"]))
	assert.Equal(t, 2, snap.FactCount)
}

func TestGetSnapshotValidation(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.GetSnapshot(ctx, "", testutil.T, fact.DimensionTransaction)
	assert.True(t, fact.IsValidation(err))

	_, err = l.GetSnapshot(ctx, "acct-1", time.Time{}, fact.DimensionTransaction)
	assert.True(t, fact.IsValidation(err))

	_, err = l.GetSnapshot(ctx, "acct-1", testutil.T, "sidereal")
	assert.True(t, fact.IsValidation(err))
}

func TestGetSnapshotDefaultsToTransactionDimension(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	// Recorded now, effective last month: invisible on the transaction
	// axis before its recording time, visible on the valid axis.
	d := draft("acct-1", "amount", "47", testutil.T.AddDate(0, -1, 0))
	_, err := l.Append(ctx, d)
	require.NoError(t, err)

	snap, err := l.GetSnapshot(ctx, "acct-1", testutil.T.AddDate(0, -1, 1), "")
	require.NoError(t, err)
	assert.Zero(t, snap.FactCount)
	assert.Equal(t, fact.DimensionTransaction, snap.Dimension)

	snap, err = l.GetSnapshot(ctx, "acct-1", testutil.T.AddDate(0, -1, 1), fact.DimensionValid)
	require.NoError(t, err)
	assert.Equal(t, "47", fact.Display(snap.State["amount"]))
}

func TestGetHistoryUnknownEntity(t *testing.T) {
	l := openLedger(t)

	history, err := l.GetHistory(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestReconstructTimeline(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "100", testutil.T))
	require.NoError(t, err)
	_, err = l.Append(ctx, draft("acct-1", "amount", "47", testutil.T.AddDate(0, 0, -3)))
	require.NoError(t, err)
	_, err = l.Append(ctx, draft("acct-2", "amount", "999", testutil.T))
	require.NoError(t, err)

	tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, tl.TotalEvents, "other entities stay out of the timeline")
	assert.Equal(t, 1, tl.RetroactiveCount)
	assert.True(t, tl.Complete)
	require.Len(t, tl.Events, 2)
	assert.Equal(t, int64(1), tl.Events[0].Fact.Seq)
	assert.Equal(t, int64(2), tl.Events[1].Fact.Seq)
}

func TestReconstructTimelineRejectsInvalidFilters(t *testing.T) {
	l := openLedger(t)

	_, err := l.ReconstructTimeline(context.Background(), timeline.Filters{})
	require.Error(t, err)
	assert.True(t, fact.IsValidation(err))
}

func TestReconstructTimelineAppliesConfiguredCaps(t *testing.T) {
	l := openLedger(t, WithMaxEvents(2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)
	assert.Len(t, tl.Events, 2)
	assert.True(t, tl.Truncated)

	// An explicit per-query cap overrides the configured default.
	tl, err = l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1", MaxEvents: 4})
	require.NoError(t, err)
	assert.Len(t, tl.Events, 4)
}

func TestReconstructTimelineCancelledContext(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T))
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	tl, err := l.ReconstructTimeline(cancelled, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err, "cancellation yields a labeled partial result, not an error")
	assert.False(t, tl.Complete)
}

func TestAppendKeepsWatermarkContiguous(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	const writers = 4
	const perWriter = 50

	done := make(chan error, writers)
	for w := 0; w < writers; w++ {
		go func() {
			for i := 0; i < perWriter; i++ {
				if _, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T)); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}

	// Read while the writers run: whenever sequence k is visible, every
	// sequence below k must be visible too. All facts target one entity,
	// so the highest visible seq can never exceed the event count.
	finished := 0
	for finished < writers {
		select {
		case err := <-done:
			require.NoError(t, err)
			finished++
		default:
			tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
			require.NoError(t, err)
			var maxSeq int64
			for _, ev := range tl.Events {
				if ev.Fact.Seq > maxSeq {
					maxSeq = ev.Fact.Seq
				}
			}
			require.LessOrEqual(t, maxSeq, int64(len(tl.Events)),
				"seq %d visible but only %d facts in the timeline", maxSeq, len(tl.Events))
		}
	}

	tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)
	assert.Len(t, tl.Events, writers*perWriter)
}

func TestReconstructTimelineConfiguredDeadline(t *testing.T) {
	l := openLedger(t, WithQueryDeadline(time.Nanosecond))
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "10", testutil.T))
	require.NoError(t, err)

	// A context with no deadline picks up the configured one; a
	// nanosecond budget is spent before the first cancellation check,
	// so the result comes back partial and labeled.
	tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)
	assert.False(t, tl.Complete)

	// An incoming deadline is kept as-is.
	bounded, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	tl, err = l.ReconstructTimeline(bounded, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)
	assert.True(t, tl.Complete)
}

func TestInterpolateValue(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	base := testutil.T
	for i, v := range []string{"10", "20"} {
		_, err := l.Append(ctx, fact.Draft{
			EntityID:        "sensor-1",
			FieldName:       "temperature",
			NewValue:        fact.MustNumber(v),
			TransactionTime: base.Add(time.Duration(i*10) * time.Second),
			ValidTime:       base.Add(time.Duration(i*10) * time.Second),
		})
		require.NoError(t, err)
	}

	got, err := l.InterpolateValue(ctx, "sensor-1", "temperature", base.Add(5*time.Second))
	require.NoError(t, err)
	assert.True(t, got.Known)
	assert.True(t, got.Interpolated)
	assert.Equal(t, "15.0", fact.Display(got.Value))

	got, err = l.InterpolateValue(ctx, "sensor-1", "temperature", base.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, got.Known)
}

func TestInterpolateValueValidation(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.InterpolateValue(ctx, "", "temperature", testutil.T)
	assert.True(t, fact.IsValidation(err))

	_, err = l.InterpolateValue(ctx, "sensor-1", "", testutil.T)
	assert.True(t, fact.IsValidation(err))
}

func TestRebuildIndex(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "100", testutil.T))
	require.NoError(t, err)

	require.NoError(t, l.RebuildIndex(ctx))

	snap, err := l.GetSnapshot(ctx, "acct-1", testutil.T.Add(time.Hour), fact.DimensionValid)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.FactCount)
}

func TestEntities(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("b", "amount", "1", testutil.T))
	require.NoError(t, err)
	_, err = l.Append(ctx, draft("a", "amount", "1", testutil.T))
	require.NoError(t, err)
	_, err = l.Append(ctx, draft("a", "amount", "2", testutil.T.Add(time.Hour)))
	require.NoError(t, err)

	got, err := l.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExportThroughLedger(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, draft("acct-1", "amount", "100", testutil.T))
	require.NoError(t, err)

	tl, err := l.ReconstructTimeline(ctx, timeline.Filters{EntityID: "acct-1"})
	require.NoError(t, err)

	data, err := l.Export(tl, timeline.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fact-000001")

	_, err = l.Export(tl, "parquet")
	assert.True(t, fact.IsValidation(err))
}
