package impact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedUnit = errors.New("quantity unit cannot be converted to kilograms")

// kg per unit. Liquids are taken at 1 kg per litre.
var unitToKg = map[string]decimal.Decimal{
	"kg": decimal.NewFromInt(1),
	"g":  decimal.RequireFromString("0.001"),
	"lb": decimal.RequireFromString("0.45359237"),
	"oz": decimal.RequireFromString("0.028349523125"),
	"l":  decimal.NewFromInt(1),
	"ml": decimal.RequireFromString("0.001"),
}

func IsSupportedUnit(unit string) bool {
	_, ok := unitToKg[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// QuantityInKg converts a stored quantity to kilograms.
func QuantityInKg(value decimal.Decimal, unit string) (float64, error) {
	factor, ok := unitToKg[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	kg, _ := value.Mul(factor).Float64()
	return kg, nil
}

// Snapshot is the impact recorded on a post when its pickup completes.
type Snapshot struct {
	CO2eKg        float64
	WaterLiters   float64
	FactorVersion string
	ComputedAt    time.Time
	InputsUsed    []byte
}

type snapshotInputs struct {
	FoodType      string  `json:"foodType"`
	QuantityKg    float64 `json:"quantityKg"`
	FactorVersion string  `json:"factorVersion"`
}

func ComputeSnapshot(foodType string, quantityKg float64, now time.Time) (Snapshot, error) {
	f, err := LookupFactor(foodType)
	if err != nil {
		return Snapshot{}, err
	}

	inputs, err := json.Marshal(snapshotInputs{
		FoodType:      f.FoodType,
		QuantityKg:    quantityKg,
		FactorVersion: FactorVersion,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal impact inputs: %w", err)
	}

	return Snapshot{
		CO2eKg:        quantityKg * f.CO2eKgPerKg,
		WaterLiters:   quantityKg * f.WaterLitersPerKg,
		FactorVersion: FactorVersion,
		ComputedAt:    now.UTC(),
		InputsUsed:    inputs,
	}, nil
}
