package handlers

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/internal/api/presenters"
	"Surplus-Share-Backend/pkg/impact"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ImpactHandler interface {
		GetImpactReport(c *fiber.Ctx) error
		GetImpactFactors(c *fiber.Ctx) error
	}

	impactHandler struct {
		impactService impact.ImpactService
		validator     *validator.Validate
	}
)

func NewImpactHandler(impactService impact.ImpactService, validator *validator.Validate) ImpactHandler {
	return &impactHandler{
		impactService: impactService,
		validator:     validator,
	}
}

// GetImpactReport returns the aggregate report. Donors only see their own
// posts; admins may filter by any donor or see everything.
func (h *impactHandler) GetImpactReport(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)

	req := new(domain.ImpactReportRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if role != entities.RoleAdmin {
		req.DonorID = userID
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetImpactReport, err)
	}

	report, err := h.impactService.GetImpactReport(c.Context(), *req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidReportWindow), errors.Is(err, domain.ErrParseUUID):
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetImpactReport, err)
		default:
			return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetImpactReport, err)
		}
	}

	return presenters.SuccessResponse(c, report, fiber.StatusOK, domain.MessageSuccessGetImpactReport)
}

func (h *impactHandler) GetImpactFactors(c *fiber.Ctx) error {
	return presenters.SuccessResponse(c, h.impactService.GetFactors(), fiber.StatusOK, domain.MessageSuccessGetImpactFactors)
}
