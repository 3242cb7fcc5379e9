package store

import (
	"fmt"
	"strconv"
	"time"

	"chronicle/internal/fact"
)

// encodeValue converts a Value to its (kind, text) column pair.
// Structured values use canonical JSON so equal values store equal text.
func encodeValue(v fact.Value) (string, string, error) {
	switch val := v.(type) {
	case fact.Null:
		return string(fact.KindNull), "", nil
	case fact.Bool:
		return string(fact.KindBool), strconv.FormatBool(bool(val)), nil
	case fact.Number:
		return string(fact.KindNumber), val.String(), nil
	case fact.String:
		return string(fact.KindString), string(val), nil
	case fact.Structured:
		data, err := fact.MarshalCanonical(val)
		if err != nil {
			return "", "", fmt.Errorf("encode structured value: %w", err)
		}
		return string(fact.KindStructured), string(data), nil
	default:
		return "", "", fmt.Errorf("encode value: unsupported type %T", v)
	}
}

// encodeOptionalValue handles the old-value columns, where nil means the
// writer asserted no prior value. Encoded as an empty kind.
func encodeOptionalValue(v fact.Value) (string, string, error) {
	if v == nil {
		return "", "", nil
	}
	return encodeValue(v)
}

// decodeValue converts a (kind, text) column pair back to a Value.
func decodeValue(kind, text string) (fact.Value, error) {
	switch fact.Kind(kind) {
	case fact.KindNull:
		return fact.Null{}, nil
	case fact.KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("decode bool %q: %w", text, err)
		}
		return fact.Bool(b), nil
	case fact.KindNumber:
		n, err := fact.NumberFromString(text)
		if err != nil {
			return nil, fmt.Errorf("decode number: %w", err)
		}
		return n, nil
	case fact.KindString:
		return fact.String(text), nil
	case fact.KindStructured:
		obj, err := fact.UnmarshalStructured([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("decode structured: %w", err)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("decode value: unknown kind %q", kind)
	}
}

// decodeOptionalValue decodes the old-value columns; empty kind means nil.
func decodeOptionalValue(kind, text string) (fact.Value, error) {
	if kind == "" {
		return nil, nil
	}
	return decodeValue(kind, text)
}

// Times are stored as unix nanoseconds. Integer columns order correctly
// without the variable-width fraction problem of RFC 3339 text.

func timeToNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func nanosToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
