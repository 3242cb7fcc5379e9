package timeline

import (
	"slices"
	"time"

	"chronicle/internal/fact"
)

// DefaultMaxSnapshots bounds interval-snapshot generation. Exceeding it
// truncates the snapshot series rather than failing the query.
const DefaultMaxSnapshots = 10000

// Filters selects and bounds the facts a timeline is built from.
// A zero Dimension defaults to transaction time.
type Filters struct {
	// EntityID is required.
	EntityID string

	// Fields optionally restricts the timeline to a subset of fields.
	// Empty means all fields.
	Fields []string

	// Dimension selects which time axis Start/End and interval snapshots
	// apply to. Events are always sorted by (transaction_time, seq).
	Dimension fact.Dimension

	// Start and End bound the fact window on Dimension. Nil bounds are
	// open. Start after End is a validation error, rejected before any
	// fetch.
	Start *time.Time
	End   *time.Time

	// SnapshotInterval, when positive, generates snapshots at that spacing
	// across the event window.
	SnapshotInterval time.Duration

	// MaxSnapshots caps interval snapshots; 0 means DefaultMaxSnapshots.
	MaxSnapshots int

	// MaxEvents caps the number of events; 0 means unbounded. Exceeding
	// the cap sets Truncated, never fails.
	MaxEvents int

	// Watermark bounds the scan to facts with seq <= Watermark, giving
	// snapshot-isolated reads against concurrent appends. 0 means no bound.
	Watermark int64
}

// Validate rejects malformed filters before any fetch happens.
func (f *Filters) Validate() error {
	if f.EntityID == "" {
		return fact.NewValidationError("entity_id", "entity_id is required")
	}
	if f.Dimension != "" {
		if _, err := fact.ParseDimension(string(f.Dimension)); err != nil {
			return err
		}
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return fact.NewValidationError("start_time", "start_time is after end_time")
	}
	if f.SnapshotInterval < 0 {
		return fact.NewValidationError("snapshot_interval", "snapshot_interval must not be negative")
	}
	if f.MaxSnapshots < 0 {
		return fact.NewValidationError("max_snapshots", "max_snapshots must not be negative")
	}
	if f.MaxEvents < 0 {
		return fact.NewValidationError("max_events", "max_events must not be negative")
	}
	return nil
}

// normalized returns a copy with defaults filled in.
func (f Filters) normalized() Filters {
	if f.Dimension == "" {
		f.Dimension = fact.DimensionTransaction
	}
	if f.MaxSnapshots == 0 {
		f.MaxSnapshots = DefaultMaxSnapshots
	}
	return f
}

// wantsField reports whether the filters include a field.
func (f *Filters) wantsField(name string) bool {
	if len(f.Fields) == 0 {
		return true
	}
	return slices.Contains(f.Fields, name)
}
