package domain

import (
	"errors"
)

var (
	MessageSuccessGetImpactReport  = "impact report retrieved successfully"
	MessageSuccessGetImpactFactors = "impact factors retrieved successfully"

	MessageFailedGetImpactReport = "failed to retrieve impact report"

	ErrInvalidReportWindow = errors.New("invalid report window, start and end are required and start must not be after end")
)

type ImpactReportRequest struct {
	From         string `query:"from" validate:"required"`
	To           string `query:"to" validate:"required"`
	PreviousFrom string `query:"previous_from" validate:"omitempty"`
	PreviousTo   string `query:"previous_to" validate:"omitempty"`
	DonorID      string `query:"donor_id" validate:"omitempty,uuid"`
}
