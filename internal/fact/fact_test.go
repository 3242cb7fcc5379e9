package fact

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestParseDimension(t *testing.T) {
	dim, err := ParseDimension("transaction")
	require.NoError(t, err)
	assert.Equal(t, DimensionTransaction, dim)

	dim, err = ParseDimension("valid")
	require.NoError(t, err)
	assert.Equal(t, DimensionValid, dim)

	_, err = ParseDimension("sideways")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestTimeOn(t *testing.T) {
	f := &BitemporalFact{
		TransactionTime: t0,
		ValidTime:       t0.Add(-time.Hour),
	}
	assert.Equal(t, t0, f.TimeOn(DimensionTransaction))
	assert.Equal(t, t0.Add(-time.Hour), f.TimeOn(DimensionValid))
}

func TestIsRetroactive(t *testing.T) {
	tests := []struct {
		name  string
		txn   time.Time
		valid time.Time
		want  bool
	}{
		{"recorded after effective", t0.Add(time.Hour), t0, true},
		{"recorded at effective", t0, t0, false},
		{"recorded before effective", t0, t0.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &BitemporalFact{TransactionTime: tt.txn, ValidTime: tt.valid}
			assert.Equal(t, tt.want, IsRetroactive(f))
		})
	}
}

func TestTimeLag(t *testing.T) {
	retro := &BitemporalFact{TransactionTime: t0.Add(36 * time.Hour), ValidTime: t0}
	assert.Equal(t, 36*time.Hour, TimeLag(retro))

	// Scheduled (future-valid) facts have zero lag, not negative.
	future := &BitemporalFact{TransactionTime: t0, ValidTime: t0.Add(time.Hour)}
	assert.Equal(t, time.Duration(0), TimeLag(future))
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{
		EntityID:  "acct-1",
		FieldName: "amount",
		NewValue:  NumberFromInt(100),
		ValidTime: t0,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name      string
		mutate    func(*Draft)
		wantField string
	}{
		{"missing entity", func(d *Draft) { d.EntityID = "" }, "entity_id"},
		{"missing field", func(d *Draft) { d.FieldName = "" }, "field_name"},
		{"missing value", func(d *Draft) { d.NewValue = nil }, "new_value"},
		{"missing valid time", func(d *Draft) { d.ValidTime = time.Time{} }, "valid_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestDraftValidateAllowsExplicitNull(t *testing.T) {
	d := Draft{
		EntityID:  "acct-1",
		FieldName: "amount",
		NewValue:  Null{},
		ValidTime: t0,
	}
	assert.NoError(t, d.Validate())
}

func TestDraftValidateAllowsOutOfOrderValidTime(t *testing.T) {
	// Retroactive and future-dated drafts are legal.
	d := Draft{
		EntityID:        "acct-1",
		FieldName:       "amount",
		NewValue:        NumberFromInt(47),
		TransactionTime: t0.Add(17 * 24 * time.Hour),
		ValidTime:       t0,
	}
	assert.NoError(t, d.Validate())
}

func TestIsValidationWrapped(t *testing.T) {
	err := fmt.Errorf("append: %w", NewValidationError("entity_id", "required"))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(fmt.Errorf("plain failure")))
}
