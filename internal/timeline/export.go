package timeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"chronicle/internal/fact"
	"chronicle/internal/snapshot"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Export serializes a timeline. Supported formats: "json" (RFC 3339
// timestamps, numbers as decimal strings) and "csv" (one row per event).
func Export(tl *Timeline, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportJSON(tl)
	case FormatCSV:
		return ExportCSV(tl)
	default:
		return nil, fact.NewValidationError("format", fmt.Sprintf("unknown export format %q: must be %q or %q", format, FormatJSON, FormatCSV))
	}
}

type jsonEvent struct {
	Seq             int64  `json:"seq"`
	ID              string `json:"id"`
	FieldName       string `json:"field_name"`
	EventType       string `json:"event_type,omitempty"`
	TransactionTime string `json:"transaction_time"`
	ValidTime       string `json:"valid_time"`
	OldValue        any    `json:"old_value,omitempty"`
	NewValue        any    `json:"new_value"`
	ActorID         string `json:"actor_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Retroactive     bool   `json:"retroactive"`
	TimeLag         string `json:"time_lag,omitempty"`
}

type jsonSnapshot struct {
	Timestamp string         `json:"timestamp"`
	Dimension string         `json:"dimension"`
	FactCount int            `json:"fact_count"`
	State     map[string]any `json:"state"`
}

type jsonTimeline struct {
	EntityID         string         `json:"entity_id"`
	Dimension        string         `json:"dimension"`
	FieldNames       []string       `json:"field_names"`
	TotalEvents      int            `json:"total_events"`
	RetroactiveCount int            `json:"retroactive_count"`
	Truncated        bool           `json:"truncated"`
	Complete         bool           `json:"complete"`
	Events           []jsonEvent    `json:"events"`
	Snapshots        []jsonSnapshot `json:"snapshots,omitempty"`
}

// ExportJSON serializes a timeline as indented JSON. Timestamps are
// RFC 3339; numeric values are decimal strings, never JSON numbers, so no
// consumer can lose precision through a binary-float round trip.
func ExportJSON(tl *Timeline) ([]byte, error) {
	out := jsonTimeline{
		EntityID:         tl.EntityID,
		Dimension:        string(tl.Dimension),
		FieldNames:       tl.FieldNames,
		TotalEvents:      tl.TotalEvents,
		RetroactiveCount: tl.RetroactiveCount,
		Truncated:        tl.Truncated,
		Complete:         tl.Complete,
		Events:           make([]jsonEvent, 0, len(tl.Events)),
	}

	for _, ev := range tl.Events {
		f := ev.Fact
		je := jsonEvent{
			Seq:             f.Seq,
			ID:              f.ID,
			FieldName:       f.FieldName,
			EventType:       f.EventType,
			TransactionTime: exportTime(f.TransactionTime),
			ValidTime:       exportTime(f.ValidTime),
			NewValue:        exportValue(f.NewValue),
			ActorID:         f.ActorID,
			Reason:          f.Reason,
			Retroactive:     ev.Retroactive,
		}
		if f.OldValue != nil {
			je.OldValue = exportValue(f.OldValue)
		}
		if ev.Retroactive {
			je.TimeLag = ev.TimeLag.String()
		}
		out.Events = append(out.Events, je)
	}

	for _, snap := range tl.Snapshots {
		out.Snapshots = append(out.Snapshots, exportSnapshot(snap))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return append(data, '\n'), nil
}

var csvHeader = []string{
	"seq", "id", "field_name", "event_type", "transaction_time", "valid_time",
	"old_value", "new_value", "actor_id", "reason", "retroactive", "time_lag",
}

// ExportCSV serializes a timeline as CSV, one row per event.
// Snapshots and projections do not flatten into rows and are JSON-only.
func ExportCSV(tl *Timeline) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}

	for _, ev := range tl.Events {
		f := ev.Fact
		timeLag := ""
		if ev.Retroactive {
			timeLag = ev.TimeLag.String()
		}
		row := []string{
			strconv.FormatInt(f.Seq, 10),
			f.ID,
			f.FieldName,
			f.EventType,
			exportTime(f.TransactionTime),
			exportTime(f.ValidTime),
			fact.Display(f.OldValue),
			fact.Display(f.NewValue),
			f.ActorID,
			f.Reason,
			strconv.FormatBool(ev.Retroactive),
			timeLag,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportProjection serializes a visualization projection as indented JSON.
func ExportProjection(p *Projection) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export projection: %w", err)
	}
	return append(data, '\n'), nil
}

func exportSnapshot(snap *snapshot.Snapshot) jsonSnapshot {
	js := jsonSnapshot{
		Timestamp: exportTime(snap.Timestamp),
		Dimension: string(snap.Dimension),
		FactCount: snap.FactCount,
		State:     make(map[string]any, len(snap.State)),
	}
	for field, v := range snap.State {
		js.State[field] = exportValue(v)
	}
	return js
}

func exportTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// exportValue renders a Value for JSON export. Numbers become decimal
// strings; structured values convert recursively.
func exportValue(v fact.Value) any {
	switch val := v.(type) {
	case fact.Null:
		return nil
	case fact.Bool:
		return bool(val)
	case fact.Number:
		return val.String()
	case fact.String:
		return string(val)
	case fact.Structured:
		m := make(map[string]any, len(val))
		for k, elem := range val {
			m[k] = exportValue(elem)
		}
		return m
	default:
		return nil
	}
}
