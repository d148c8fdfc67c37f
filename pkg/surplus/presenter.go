package surplus

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
)

// toDomainPost maps a post for API output. The OTP is only included for the
// donor.
func toDomainPost(p *entities.SurplusPost, forDonor bool) *domain.SurplusPost {
	out := &domain.SurplusPost{
		ID:                   p.ID.String(),
		DonorID:              p.DonorID.String(),
		Title:                p.Title,
		Description:          p.Description,
		FoodType:             p.FoodType,
		FoodCategories:       []string(p.FoodCategories),
		QuantityValue:        p.QuantityValue.String(),
		QuantityUnit:         p.QuantityUnit,
		ImageURL:             p.ImageURL,
		PickupAddress:        p.PickupAddress,
		ExpiryDate:           p.ExpiryDate.Format(dateLayout),
		PredictedExpiry:      p.PredictedExpiry,
		PredictionConfidence: p.PredictionConfidence,
		ExpiryOverridden:     p.ExpiryOverridden,
		EffectiveExpiry:      p.EffectiveExpiry,
		Status:               string(p.Status),
		ReadyAt:              p.ReadyAt,
		CompletedAt:          p.CompletedAt,
		ExpiredAt:            p.ExpiredAt,
		CreatedAt:            p.CreatedAt,
	}
	if out.FoodCategories == nil {
		out.FoodCategories = []string{}
	}
	if p.PickupDate != nil {
		out.PickupWindow = &domain.PickupWindow{Date: p.PickupDate.Format(dateLayout)}
		if p.PickupFrom != nil {
			out.PickupWindow.From = *p.PickupFrom
		}
		if p.PickupTo != nil {
			out.PickupWindow.To = *p.PickupTo
		}
	}
	if forDonor && p.OTPCode != nil {
		out.OTPCode = *p.OTPCode
	}
	if p.ImpactCO2eKg != nil && p.ImpactWaterLiters != nil && p.ImpactFactorVersion != nil && p.ImpactComputedAt != nil {
		out.Impact = &domain.ImpactSnapshot{
			CO2eKg:        *p.ImpactCO2eKg,
			WaterLiters:   *p.ImpactWaterLiters,
			FactorVersion: *p.ImpactFactorVersion,
			ComputedAt:    *p.ImpactComputedAt,
		}
	}
	return out
}

func toDomainClaim(c *entities.Claim) *domain.Claim {
	if c == nil {
		return nil
	}
	out := &domain.Claim{
		ID:            c.ID.String(),
		SurplusPostID: c.SurplusPostID.String(),
		ReceiverID:    c.ReceiverID.String(),
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
	}
	if c.ConfirmedPickupDate != nil {
		out.PickupWindow = &domain.PickupWindow{Date: c.ConfirmedPickupDate.Format(dateLayout)}
		if c.ConfirmedPickupFrom != nil {
			out.PickupWindow.From = *c.ConfirmedPickupFrom
		}
		if c.ConfirmedPickupTo != nil {
			out.PickupWindow.To = *c.ConfirmedPickupTo
		}
	}
	return out
}
