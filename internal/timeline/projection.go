package timeline

import (
	"time"

	"chronicle/internal/fact"
)

// SeriesKind distinguishes numeric point series from categorical label
// series in a projection.
type SeriesKind string

const (
	SeriesPoints SeriesKind = "points"
	SeriesLabels SeriesKind = "labels"
)

// Point is one numeric sample: a time coordinate and a decimal string.
type Point struct {
	Time  time.Time `json:"time"`
	Value string    `json:"value"`
}

// Label is one categorical sample.
type Label struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
}

// FieldSeries is one field's ordered series. Exactly one of Points or
// Labels is populated, per Kind.
type FieldSeries struct {
	Field  string     `json:"field"`
	Kind   SeriesKind `json:"kind"`
	Points []Point    `json:"points,omitempty"`
	Labels []Label    `json:"labels,omitempty"`
}

// Projection is the visualization-neutral form of a timeline: one ordered
// series per field plus time bounds and counts. It carries no rendering
// hints; any external layer can draw it.
type Projection struct {
	EntityID  string         `json:"entity_id"`
	Dimension fact.Dimension `json:"dimension"`

	// Start and End are the event window on Dimension; zero when the
	// timeline has no events.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	TotalEvents      int  `json:"total_events"`
	RetroactiveCount int  `json:"retroactive_count"`
	Truncated        bool `json:"truncated"`
	Complete         bool `json:"complete"`

	// Series ordered by field name.
	Series []FieldSeries `json:"series"`
}

// VisualizationOptions configures projection building.
type VisualizationOptions struct {
	// Fields optionally restricts the projection to a subset of the
	// timeline's fields. Empty means all.
	Fields []string
}

// BuildVisualization projects a timeline into per-field series. A field
// whose event values are all numeric becomes a point series with
// decimal-string values; any other field becomes a label series. Sample
// times use the timeline's dimension.
func BuildVisualization(tl *Timeline, opts VisualizationOptions) *Projection {
	p := &Projection{
		EntityID:         tl.EntityID,
		Dimension:        tl.Dimension,
		TotalEvents:      tl.TotalEvents,
		RetroactiveCount: tl.RetroactiveCount,
		Truncated:        tl.Truncated,
		Complete:         tl.Complete,
		Series:           []FieldSeries{},
	}
	if len(tl.Events) > 0 {
		p.Start, p.End = eventWindow(tl.Events, tl.Dimension)
	}

	want := func(name string) bool {
		if len(opts.Fields) == 0 {
			return true
		}
		for _, f := range opts.Fields {
			if f == name {
				return true
			}
		}
		return false
	}

	// FieldNames is already sorted, so series order is deterministic.
	for _, name := range tl.FieldNames {
		if !want(name) {
			continue
		}
		p.Series = append(p.Series, buildSeries(tl, name))
	}
	return p
}

func buildSeries(tl *Timeline, fieldName string) FieldSeries {
	numeric := true
	count := 0
	for _, ev := range tl.Events {
		if ev.Fact.FieldName != fieldName {
			continue
		}
		count++
		if _, ok := ev.Fact.NewValue.(fact.Number); !ok {
			numeric = false
		}
	}

	if numeric {
		s := FieldSeries{Field: fieldName, Kind: SeriesPoints, Points: make([]Point, 0, count)}
		for _, ev := range tl.Events {
			if ev.Fact.FieldName != fieldName {
				continue
			}
			n := ev.Fact.NewValue.(fact.Number)
			s.Points = append(s.Points, Point{
				Time:  ev.Fact.TimeOn(tl.Dimension),
				Value: n.String(),
			})
		}
		return s
	}

	s := FieldSeries{Field: fieldName, Kind: SeriesLabels, Labels: make([]Label, 0, count)}
	for _, ev := range tl.Events {
		if ev.Fact.FieldName != fieldName {
			continue
		}
		s.Labels = append(s.Labels, Label{
			Time:  ev.Fact.TimeOn(tl.Dimension),
			Label: fact.Display(ev.Fact.NewValue),
		})
	}
	return s
}
