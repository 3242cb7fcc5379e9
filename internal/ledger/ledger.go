package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chronicle/internal/fact"
	"chronicle/internal/index"
	"chronicle/internal/snapshot"
	"chronicle/internal/store"
	"chronicle/internal/timeline"
)

// Ledger is the service facade over the fact log, temporal index, snapshot
// engine, and timeline builder. It is the one component that wires them
// together; each query builds its own local accumulators, so independent
// queries run concurrently with no shared mutable state beyond the
// sequence allocator.
type Ledger struct {
	store *store.Store
	idx   *index.Index
	snaps *snapshot.Engine
	log   *zap.Logger

	// appendMu serializes persist-then-index so facts enter the index in
	// sequence order and the watermark stays contiguous. Without it a
	// slower appender could leave a gap below a faster appender's seq,
	// and a reader bounding its scan to the watermark would miss a fact
	// below its bound.
	appendMu sync.Mutex

	maxSnapshots  int
	maxEvents     int
	queryDeadline time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the structured logger. Defaults to a nop logger, so
// library use stays silent.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithMaxSnapshots sets the default snapshot cap for timeline queries that
// do not specify one.
func WithMaxSnapshots(n int) Option {
	return func(l *Ledger) { l.maxSnapshots = n }
}

// WithMaxEvents sets the default event cap for timeline queries that do
// not specify one.
func WithMaxEvents(n int) Option {
	return func(l *Ledger) { l.maxEvents = n }
}

// WithQueryDeadline bounds every read query that arrives without its own
// deadline. Queries that exceed it return partial results labeled
// Complete=false.
func WithQueryDeadline(d time.Duration) Option {
	return func(l *Ledger) { l.queryDeadline = d }
}

// New builds a ledger over an open store and populates the temporal index
// from a full log replay.
func New(ctx context.Context, s *store.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store: s,
		idx:   index.New(),
		log:   zap.NewNop(),
	}
	l.snaps = snapshot.NewEngine(l.idx)
	for _, opt := range opts {
		opt(l)
	}

	if err := l.RebuildIndex(ctx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return l, nil
}

// Open opens (or creates) the fact log at path and builds a ledger over it.
func Open(ctx context.Context, path string, storeOpts []store.Option, opts ...Option) (*Ledger, error) {
	s, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, err
	}
	l, err := New(ctx, s, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// Store exposes the underlying fact log.
func (l *Ledger) Store() *store.Store {
	return l.store
}

// Append validates and persists a fact, then indexes it. Returns the stored
// fact carrying its assigned ID and sequence number.
//
// An append failure is fatal to the caller and must be retried at the call
// site; the log is never left partially written for a single fact.
func (l *Ledger) Append(ctx context.Context, d fact.Draft) (*fact.BitemporalFact, error) {
	// Appends are the one serialization point; reads stay lock-free
	// against the watermark.
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	f, err := l.store.Append(ctx, d)
	if err != nil {
		return nil, err
	}
	l.idx.Insert(f)

	l.log.Debug("fact appended",
		zap.Int64("seq", f.Seq),
		zap.String("entity", f.EntityID),
		zap.String("field", f.FieldName),
		zap.Bool("retroactive", fact.IsRetroactive(f)),
	)
	return f, nil
}

// GetHistory returns an entity's facts ordered by (transaction_time, seq).
// Empty slice for unknown entities.
func (l *Ledger) GetHistory(ctx context.Context, entityID string) ([]*fact.BitemporalFact, error) {
	return l.store.GetHistory(ctx, entityID)
}

// GetSnapshot reconstructs an entity's state at a time coordinate on the
// given dimension.
func (l *Ledger) GetSnapshot(ctx context.Context, entityID string, t time.Time, dim fact.Dimension) (*snapshot.Snapshot, error) {
	if entityID == "" {
		return nil, fact.NewValidationError("entity_id", "entity_id is required")
	}
	if t.IsZero() {
		return nil, fact.NewValidationError("timestamp", "timestamp is required")
	}
	if dim == "" {
		dim = fact.DimensionTransaction
	} else if _, err := fact.ParseDimension(string(dim)); err != nil {
		return nil, err
	}

	watermark := l.idx.Watermark()
	snap := l.snaps.Query(entityID, t, dim, watermark)

	l.log.Debug("snapshot reconstructed",
		zap.String("entity", entityID),
		zap.String("dimension", string(dim)),
		zap.Int("fact_count", snap.FactCount),
	)
	return snap, nil
}

// ReconstructTimeline fetches facts per the filters and builds the ordered
// timeline. Malformed filters fail fast before any fetch; deadline or
// cancellation yields a partial result labeled Complete=false.
func (l *Ledger) ReconstructTimeline(ctx context.Context, filters timeline.Filters) (*timeline.Timeline, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	l.applyDefaults(&filters)

	ctx, cancel := l.boundDeadline(ctx)
	defer cancel()

	dim := filters.Dimension
	if dim == "" {
		dim = fact.DimensionTransaction
	}
	facts := l.idx.Range(filters.EntityID, dim, filters.Start, filters.End, filters.Watermark)

	tl, err := timeline.Reconstruct(ctx, facts, filters)
	if err != nil {
		return nil, err
	}

	l.log.Debug("timeline reconstructed",
		zap.String("entity", filters.EntityID),
		zap.Int("events", tl.TotalEvents),
		zap.Int("retroactive", tl.RetroactiveCount),
		zap.Bool("truncated", tl.Truncated),
		zap.Bool("complete", tl.Complete),
	)
	return tl, nil
}

// InterpolateValue fills a temporal gap for one field at transaction time
// t. Absence of data returns the explicit unknown result, not an error.
func (l *Ledger) InterpolateValue(ctx context.Context, entityID, fieldName string, t time.Time) (timeline.Interpolation, error) {
	if entityID == "" {
		return timeline.Unknown, fact.NewValidationError("entity_id", "entity_id is required")
	}
	if fieldName == "" {
		return timeline.Unknown, fact.NewValidationError("field_name", "field_name is required")
	}

	watermark := l.idx.Watermark()
	facts := l.idx.Range(entityID, fact.DimensionTransaction, nil, nil, watermark)
	return timeline.Interpolate(facts, fieldName, t)
}

// BuildVisualization projects a timeline into per-field series.
func (l *Ledger) BuildVisualization(tl *timeline.Timeline, opts timeline.VisualizationOptions) *timeline.Projection {
	return timeline.BuildVisualization(tl, opts)
}

// Export serializes a timeline as JSON or CSV.
func (l *Ledger) Export(tl *timeline.Timeline, format string) ([]byte, error) {
	return timeline.Export(tl, format)
}

// RebuildIndex discards the in-memory temporal index and repopulates it
// from a full log replay. Used at startup and after suspected corruption.
func (l *Ledger) RebuildIndex(ctx context.Context) error {
	start := time.Now()
	if err := l.idx.RebuildFrom(ctx, l.store.Replay); err != nil {
		return err
	}
	l.log.Debug("index rebuilt",
		zap.Int64("watermark", l.idx.Watermark()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Entities lists the distinct entity IDs in the log.
func (l *Ledger) Entities(ctx context.Context) ([]string, error) {
	return l.store.Entities(ctx)
}

func (l *Ledger) applyDefaults(filters *timeline.Filters) {
	if filters.MaxSnapshots == 0 && l.maxSnapshots > 0 {
		filters.MaxSnapshots = l.maxSnapshots
	}
	if filters.MaxEvents == 0 && l.maxEvents > 0 {
		filters.MaxEvents = l.maxEvents
	}
	if filters.Watermark == 0 {
		filters.Watermark = l.idx.Watermark()
	}
}

// boundDeadline applies the configured query deadline when the incoming
// context does not already carry one.
func (l *Ledger) boundDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.queryDeadline <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.queryDeadline)
}
