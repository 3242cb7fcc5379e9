package fact

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the concrete type of a Value.
// Stored alongside the value text so decoding never guesses.
type Kind string

const (
	KindNull       Kind = "null"
	KindBool       Kind = "bool"
	KindNumber     Kind = "number"
	KindString     Kind = "string"
	KindStructured Kind = "structured"
)

// Value is a sealed interface representing constrained field-value types.
// Only Null, Bool, Number, String, and Structured implement it.
// The set is closed so numeric interpolation and typed export stay sound:
// a value is either exactly numeric or exactly not.
//
// Numbers are arbitrary-precision decimals, never float64. Binary floats
// break decimal round-trips and make interpolation results depend on
// platform rounding.
type Value interface {
	Kind() Kind
	value() // Sealed - only these types implement it
}

// Null represents an explicit null field value.
// Distinct from an absent field: a snapshot omits fields with no qualifying
// fact, but a fact may assert a field became null.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// Bool represents a boolean field value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// String represents a string field value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Number represents an arbitrary-precision decimal field value.
// Construct via NumberFromString, NumberFromInt, or MustNumber.
// The zero Number is the decimal zero.
type Number struct {
	dec apd.Decimal
}

func (Number) Kind() Kind { return KindNumber }
func (Number) value()     {}

// NumberFromString parses a decimal string into a Number.
// Accepts plain and scientific notation ("47.00", "1.5e3").
func NumberFromString(s string) (Number, error) {
	var n Number
	if _, _, err := n.dec.SetString(s); err != nil {
		return Number{}, fmt.Errorf("parse number %q: %w", s, err)
	}
	return n, nil
}

// NumberFromInt creates a Number from an int64.
func NumberFromInt(i int64) Number {
	var n Number
	n.dec.SetInt64(i)
	return n
}

// NumberFromDecimal copies an apd decimal into a Number.
func NumberFromDecimal(d *apd.Decimal) Number {
	var n Number
	n.dec.Set(d)
	return n
}

// MustNumber parses a decimal string, panicking on error.
// For tests and literals only.
func MustNumber(s string) Number {
	n, err := NumberFromString(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Decimal returns a copy of the underlying decimal.
// The copy keeps Number immutable under apd's mutating arithmetic API.
func (n Number) Decimal() *apd.Decimal {
	var out apd.Decimal
	out.Set(&n.dec)
	return &out
}

// String returns the plain (non-scientific) decimal text, e.g. "47.00".
// Trailing zeros carried by the stored coefficient are preserved, so the
// text round-trips exactly through NumberFromString.
func (n Number) String() string {
	return n.dec.Text('f')
}

// Structured represents a nested object value.
// Serialized with canonical key ordering for deterministic storage text.
type Structured map[string]Value

func (Structured) Kind() Kind { return KindStructured }
func (Structured) value()     {}

// Display renders a value for human-facing output (CSV cells, label series).
// Null renders as the empty string.
func Display(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case Null:
		return ""
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		return val.String()
	case String:
		return string(val)
	case Structured:
		data, err := MarshalCanonical(val)
		if err != nil {
			return fmt.Sprintf("<unprintable: %v>", err)
		}
		return string(data)
	default:
		return fmt.Sprintf("<unknown: %T>", v)
	}
}

// FromAny converts a loosely typed Go value (as produced by yaml, CUE, or
// JSON decoding) into a Value. Numeric inputs of any flavor become decimal
// Numbers; json.Number inputs keep their exact decimal text.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return NumberFromInt(int64(val)), nil
	case int64:
		return NumberFromInt(val), nil
	case json.Number:
		return NumberFromString(string(val))
	case float64:
		// strconv round-trip text is the shortest decimal that parses back
		// to the same float, so no precision is invented or lost here.
		return NumberFromString(strconv.FormatFloat(val, 'g', -1, 64))
	case map[string]any:
		obj := make(Structured, len(val))
		for k, elem := range val {
			fv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = fv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// ParseJSONValue decodes a single JSON document into a Value.
// Numbers decode via json.Number so decimal text is preserved exactly.
func ParseJSONValue(data []byte) (Value, error) {
	raw, err := decodeJSONNumberPreserving(data)
	if err != nil {
		return nil, err
	}
	return FromAny(raw)
}
