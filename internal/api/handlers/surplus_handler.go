package handlers

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/internal/api/presenters"
	"Surplus-Share-Backend/pkg/surplus"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	SurplusHandler interface {
		CreatePost(c *fiber.Ctx) error
		ListAvailablePosts(c *fiber.Ctx) error
		GetPost(c *fiber.Ctx) error
		ClaimPost(c *fiber.Ctx) error
		CancelClaim(c *fiber.Ctx) error
		CompletePickup(c *fiber.Ctx) error
		OverrideExpiry(c *fiber.Ctx) error
		ValidatePickup(c *fiber.Ctx) error
	}

	surplusHandler struct {
		surplusService surplus.SurplusService
		validator      *validator.Validate
	}
)

func NewSurplusHandler(surplusService surplus.SurplusService, validator *validator.Validate) SurplusHandler {
	return &surplusHandler{
		surplusService: surplusService,
		validator:      validator,
	}
}

// transitionStatus maps a refused transition to its HTTP status.
func transitionStatus(reason domain.TransitionReason) int {
	switch reason {
	case domain.ReasonInvalidStatus, domain.ReasonAlreadyClaimed:
		return fiber.StatusConflict
	case domain.ReasonNotAuthorized, domain.ReasonNotClaimReceiver, domain.ReasonSelfClaim:
		return fiber.StatusForbidden
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func serviceErrorResponse(c *fiber.Ctx, message string, err error) error {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		data := fiber.Map{"reason": te.Reason}
		if te.Pickup != nil {
			data["pickup"] = te.Pickup
		}
		return presenters.ErrorResponseWithData(c, transitionStatus(te.Reason), message, err, data)
	case errors.Is(err, domain.ErrPostNotFound), errors.Is(err, domain.ErrUserNotFound):
		return presenters.ErrorResponse(c, fiber.StatusNotFound, message, err)
	case errors.Is(err, domain.ErrUserNotAllowed):
		return presenters.ErrorResponse(c, fiber.StatusForbidden, message, err)
	default:
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, message, err)
	}
}

func (h *surplusHandler) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.CreatePostRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	// image is optional
	req.Image, _ = c.FormFile("image")

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreatePost, err)
	}

	post, err := h.surplusService.CreatePost(c.Context(), *req, userID)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedCreatePost, err)
	}

	return presenters.SuccessResponse(c, post, fiber.StatusCreated, domain.MessageSuccessCreatePost)
}

func (h *surplusHandler) ListAvailablePosts(c *fiber.Ctx) error {
	req := new(domain.ListPostsRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPosts, err)
	}

	posts, err := h.surplusService.ListAvailablePosts(c.Context(), *req)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedGetPosts, err)
	}

	return presenters.SuccessResponse(c, posts, fiber.StatusOK, domain.MessageSuccessGetPosts)
}

func (h *surplusHandler) GetPost(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	post, err := h.surplusService.GetPost(c.Context(), c.Params("id"), userID)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedGetPost, err)
	}

	return presenters.SuccessResponse(c, post, fiber.StatusOK, domain.MessageSuccessGetPost)
}

func (h *surplusHandler) ClaimPost(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.ClaimPostRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedClaimPost, err)
	}

	res, err := h.surplusService.ClaimPost(c.Context(), c.Params("id"), userID, *req)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedClaimPost, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessClaimPost)
}

func (h *surplusHandler) CancelClaim(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.surplusService.CancelClaim(c.Context(), c.Params("id"), userID)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedCancelClaim, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessCancelClaim)
}

func (h *surplusHandler) CompletePickup(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.CompletePickupRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCompletePickup, err)
	}

	res, err := h.surplusService.CompletePickup(c.Context(), c.Params("id"), userID, *req)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedCompletePickup, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessCompletePickup)
}

func (h *surplusHandler) OverrideExpiry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.OverrideExpiryRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedOverrideExpiry, err)
	}

	res, err := h.surplusService.OverrideExpiry(c.Context(), c.Params("id"), userID, *req)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedOverrideExpiry, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessOverrideExpiry)
}

func (h *surplusHandler) ValidatePickup(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.surplusService.ValidatePickup(c.Context(), c.Params("id"), userID)
	if err != nil {
		return serviceErrorResponse(c, domain.MessageFailedValidatePickup, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessValidatePickup)
}
