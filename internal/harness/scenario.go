package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios append a fixed set of facts to a fresh ledger and assert on
// the reconstructed snapshots, timelines, and interpolations.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Facts are appended in order. Transaction times left empty are
	// assigned by a deterministic stepping clock, so scenario files stay
	// short and golden output stays byte-stable.
	Facts []FactStep `yaml:"facts"`

	// Assertions validate snapshots, history, and interpolations after
	// all facts are appended.
	Assertions []Assertion `yaml:"assertions"`

	// Golden optionally selects the timeline exported for golden file
	// comparison via RunWithGolden.
	Golden *GoldenSpec `yaml:"golden,omitempty"`
}

// FactStep is one fact to append. Values are arbitrary YAML; numbers are
// kept as exact decimals.
type FactStep struct {
	Entity    string      `yaml:"entity"`
	Field     string      `yaml:"field"`
	Value     interface{} `yaml:"value"`
	Old       interface{} `yaml:"old,omitempty"`
	ValidTime string      `yaml:"valid_time"`
	TxnTime   string      `yaml:"txn_time,omitempty"`
	Actor     string      `yaml:"actor,omitempty"`
	Reason    string      `yaml:"reason,omitempty"`
	EventType string      `yaml:"event_type,omitempty"`
}

// Assertion validates reconstructed state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "snapshot_field": Reconstruct a snapshot and check one field
	// - "history_count": Check an entity's total fact count
	// - "retroactive_count": Check an entity's retroactive fact count
	// - "interpolate": Check an interpolated value (or explicit unknown)
	Type string `yaml:"type"`

	// Entity is the entity ID (all assertion types).
	Entity string `yaml:"entity"`

	// Field is the field name (snapshot_field, interpolate).
	Field string `yaml:"field,omitempty"`

	// At is the time coordinate, RFC 3339 (snapshot_field, interpolate).
	At string `yaml:"at,omitempty"`

	// Dimension selects transaction or valid time (snapshot_field).
	// Defaults to transaction.
	Dimension string `yaml:"dimension,omitempty"`

	// Expect is the expected display value (snapshot_field, interpolate).
	// "absent" asserts the field is missing from the snapshot.
	Expect string `yaml:"expect,omitempty"`

	// Unknown asserts the interpolation has no data (interpolate).
	Unknown bool `yaml:"unknown,omitempty"`

	// Count is the expected number of facts (history_count,
	// retroactive_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSnapshotField    = "snapshot_field"
	AssertHistoryCount     = "history_count"
	AssertRetroactiveCount = "retroactive_count"
	AssertInterpolate      = "interpolate"
)

// GoldenSpec selects the timeline exported for golden comparison.
type GoldenSpec struct {
	Entity    string `yaml:"entity"`
	Dimension string `yaml:"dimension,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Facts) == 0 {
		return fmt.Errorf("facts list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Facts {
		if step.Entity == "" {
			return fmt.Errorf("facts[%d]: entity is required", i)
		}
		if step.Field == "" {
			return fmt.Errorf("facts[%d]: field is required", i)
		}
		if step.Value == nil {
			return fmt.Errorf("facts[%d]: value is required", i)
		}
		if step.ValidTime == "" {
			return fmt.Errorf("facts[%d]: valid_time is required", i)
		}
		if _, err := time.Parse(time.RFC3339, step.ValidTime); err != nil {
			return fmt.Errorf("facts[%d]: invalid valid_time: %w", i, err)
		}
		if step.TxnTime != "" {
			if _, err := time.Parse(time.RFC3339, step.TxnTime); err != nil {
				return fmt.Errorf("facts[%d]: invalid txn_time: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	if s.Golden != nil && s.Golden.Entity == "" {
		return fmt.Errorf("golden: entity is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Entity == "" {
		return fmt.Errorf("assertions[%d]: entity is required", index)
	}

	switch a.Type {
	case AssertSnapshotField:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for snapshot_field", index)
		}
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for snapshot_field", index)
		}
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for snapshot_field", index)
		}
	case AssertHistoryCount, AssertRetroactiveCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertInterpolate:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for interpolate", index)
		}
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for interpolate", index)
		}
		if a.Expect == "" && !a.Unknown {
			return fmt.Errorf("assertions[%d]: expect or unknown is required for interpolate", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.At != "" {
		if _, err := time.Parse(time.RFC3339, a.At); err != nil {
			return fmt.Errorf("assertions[%d]: invalid at: %w", index, err)
		}
	}
	if a.Dimension != "" && a.Dimension != "transaction" && a.Dimension != "valid" {
		return fmt.Errorf("assertions[%d]: dimension must be transaction or valid", index)
	}
	return nil
}
