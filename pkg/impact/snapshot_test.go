package impact

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityInKg(t *testing.T) {
	tests := []struct {
		value string
		unit  string
		want  float64
	}{
		{"2.5", "kg", 2.5},
		{"750", "g", 0.75},
		{"1", "LB", 0.45359237},
		{"500", " ml ", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, err := QuantityInKg(decimal.RequireFromString(tt.value), tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := QuantityInKg(decimal.NewFromInt(3), "pieces")
	assert.ErrorIs(t, err, ErrUnsupportedUnit)
}

func TestComputeSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	snap, err := ComputeSnapshot("Dairy", 2, now)
	require.NoError(t, err)

	assert.InDelta(t, 11.0, snap.CO2eKg, 1e-9)
	assert.InDelta(t, 18000.0, snap.WaterLiters, 1e-9)
	assert.Equal(t, FactorVersion, snap.FactorVersion)
	assert.Equal(t, time.UTC, snap.ComputedAt.Location())

	var inputs map[string]any
	require.NoError(t, json.Unmarshal(snap.InputsUsed, &inputs))
	assert.Equal(t, "dairy", inputs["foodType"])
	assert.Equal(t, 2.0, inputs["quantityKg"])
	assert.Equal(t, FactorVersion, inputs["factorVersion"])

	_, err = ComputeSnapshot("unknown", 1, now)
	assert.ErrorIs(t, err, ErrMissingImpactFactor)
}

func TestFactorsSorted(t *testing.T) {
	table := Factors()
	assert.Equal(t, FactorVersion, table.Version)
	require.NotEmpty(t, table.Factors)
	for i := 1; i < len(table.Factors); i++ {
		assert.Less(t, table.Factors[i-1].FoodType, table.Factors[i].FoodType)
	}
	assert.True(t, IsKnownFoodType(" Bakery "))
	assert.False(t, IsKnownFoodType("rocks"))
}
