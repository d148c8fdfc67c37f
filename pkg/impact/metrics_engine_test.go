package impact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	marchWindow = Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
	}
	februaryWindow = Window{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
	}
)

func pickedUp(id, foodType string, kg float64, day int) DonationRecord {
	at := time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
	return DonationRecord{
		ID:             id,
		Status:         StatusPickedUp,
		FoodType:       foodType,
		WeightKg:       kg,
		PickupTime:     at,
		ExpirationTime: at.Add(24 * time.Hour),
		EventTime:      at,
	}
}

func TestComputeCalibration(t *testing.T) {
	records := []DonationRecord{
		pickedUp("d1", "prepared_meals", 10, 5),
		pickedUp("d2", "meat_poultry", 5, 6),
	}

	res, err := Compute(records, marchWindow, februaryWindow)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, res.Current.WeightKg, 1e-9)
	assert.InDelta(t, 55.0, res.Current.CO2Kg, 1e-9)
	assert.InDelta(t, 100000.0, res.Current.WaterLiters, 1e-6)
	assert.Equal(t, 28, res.Current.Meals)
	assert.Equal(t, []string{"d1", "d2"}, res.Current.IncludedDonationIDs)
	assert.Empty(t, res.Audit.Exclusions)
	assert.Equal(t, FactorVersion, res.Audit.FactorVersion)
}

func TestComputeExclusions(t *testing.T) {
	late := pickedUp("late", "bakery", 2, 7)
	late.PickupTime = late.ExpirationTime.Add(time.Minute)

	notPicked := pickedUp("expired", "bakery", 3, 8)
	notPicked.Status = "expired"

	zero := pickedUp("zero", "bakery", 0, 9)

	outside := pickedUp("feb", "bakery", 4, 1)
	outside.EventTime = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	records := []DonationRecord{
		pickedUp("ok", "dairy", 1, 2),
		late, notPicked, zero, outside,
	}

	res, err := Compute(records, marchWindow, februaryWindow)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, res.Current.IncludedDonationIDs)
	assert.Equal(t, []string{"late", "expired", "zero"}, res.Audit.ExcludedDonationIDs)
	assert.Equal(t, []Exclusion{
		{DonationID: "late", Reason: ReasonPickedUpAfterExpiry},
		{DonationID: "expired", Reason: ReasonStatusNotPickedUp},
		{DonationID: "zero", Reason: ReasonInvalidWeight},
	}, res.Audit.Exclusions)

	assert.Equal(t, []string{"feb"}, res.Previous.IncludedDonationIDs)
}

func TestComputePickupAtExpiryIsIncluded(t *testing.T) {
	r := pickedUp("edge", "grains", 1, 3)
	r.PickupTime = r.ExpirationTime

	res, err := Compute([]DonationRecord{r}, marchWindow, februaryWindow)
	require.NoError(t, err)
	assert.Equal(t, []string{"edge"}, res.Current.IncludedDonationIDs)
}

func TestComputeDeltas(t *testing.T) {
	prev := pickedUp("p", "bakery", 5, 1)
	prev.EventTime = time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)

	res, err := Compute([]DonationRecord{pickedUp("c", "bakery", 10, 2), prev}, marchWindow, februaryWindow)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, res.Deltas.WeightKg.Abs, 1e-9)
	require.NotNil(t, res.Deltas.WeightKg.Pct)
	assert.InDelta(t, 100.0, *res.Deltas.WeightKg.Pct, 1e-9)
}

func TestComputeDeltaWithEmptyPreviousHasNoPercentage(t *testing.T) {
	res, err := Compute([]DonationRecord{pickedUp("c", "bakery", 10, 2)}, marchWindow, februaryWindow)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, res.Deltas.WeightKg.Abs, 1e-9)
	assert.Nil(t, res.Deltas.WeightKg.Pct)
	assert.Nil(t, res.Deltas.Meals.Pct)
	assert.Empty(t, res.Previous.IncludedDonationIDs)
}

func TestComputeUnknownFoodTypeFails(t *testing.T) {
	_, err := Compute([]DonationRecord{pickedUp("x", "moon_cheese", 1, 2)}, marchWindow, februaryWindow)
	assert.ErrorIs(t, err, ErrMissingImpactFactor)
}

func TestComputeUnknownFoodTypeOnExcludedRecordIsIgnored(t *testing.T) {
	r := pickedUp("x", "moon_cheese", 1, 2)
	r.Status = "not_completed"

	res, err := Compute([]DonationRecord{r}, marchWindow, februaryWindow)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, res.Audit.ExcludedDonationIDs)
}

func TestMeals(t *testing.T) {
	assert.Equal(t, 0, Meals(0))
	assert.Equal(t, 0, Meals(-3))
	assert.Equal(t, 1, Meals(0.544))
	assert.Equal(t, 28, Meals(15))
}
