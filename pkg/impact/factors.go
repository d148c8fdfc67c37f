// Package impact converts donated food weight into environmental impact
// figures using a fixed, versioned factor table.
package impact

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	FactorVersion = "impact_v1"
	KgPerMeal     = 0.544
)

// ErrMissingImpactFactor is a configuration error: a food type without a
// factor must never be counted as zero impact.
var ErrMissingImpactFactor = errors.New("missing impact factor for food type")

type Factor struct {
	FoodType         string  `json:"food_type"`
	CO2eKgPerKg      float64 `json:"co2e_kg_per_kg"`
	WaterLitersPerKg float64 `json:"water_liters_per_kg"`
}

// impact_v1. Never edit in place; add a new version instead.
var factorTable = map[string]Factor{
	"bakery":            {FoodType: "bakery", CO2eKgPerKg: 1.6, WaterLitersPerKg: 1600},
	"beverages":         {FoodType: "beverages", CO2eKgPerKg: 0.6, WaterLitersPerKg: 700},
	"dairy":             {FoodType: "dairy", CO2eKgPerKg: 5.5, WaterLitersPerKg: 9000},
	"fruits_vegetables": {FoodType: "fruits_vegetables", CO2eKgPerKg: 0.8, WaterLitersPerKg: 400},
	"grains":            {FoodType: "grains", CO2eKgPerKg: 1.4, WaterLitersPerKg: 1600},
	"meat_poultry":      {FoodType: "meat_poultry", CO2eKgPerKg: 6.0, WaterLitersPerKg: 8000},
	"packaged_goods":    {FoodType: "packaged_goods", CO2eKgPerKg: 2.0, WaterLitersPerKg: 2000},
	"prepared_meals":    {FoodType: "prepared_meals", CO2eKgPerKg: 2.5, WaterLitersPerKg: 6000},
	"seafood":           {FoodType: "seafood", CO2eKgPerKg: 5.0, WaterLitersPerKg: 3000},
}

func normalizeFoodType(foodType string) string {
	return strings.ToLower(strings.TrimSpace(foodType))
}

func LookupFactor(foodType string) (Factor, error) {
	f, ok := factorTable[normalizeFoodType(foodType)]
	if !ok {
		return Factor{}, fmt.Errorf("%w: %q", ErrMissingImpactFactor, foodType)
	}
	return f, nil
}

func IsKnownFoodType(foodType string) bool {
	_, ok := factorTable[normalizeFoodType(foodType)]
	return ok
}

type FactorTable struct {
	Version   string   `json:"factor_version"`
	KgPerMeal float64  `json:"kg_per_meal"`
	Factors   []Factor `json:"factors"`
}

// Factors returns a copy of the table sorted by food type.
func Factors() FactorTable {
	factors := make([]Factor, 0, len(factorTable))
	for _, f := range factorTable {
		factors = append(factors, f)
	}
	sort.Slice(factors, func(i, j int) bool { return factors[i].FoodType < factors[j].FoodType })
	return FactorTable{Version: FactorVersion, KgPerMeal: KgPerMeal, Factors: factors}
}
