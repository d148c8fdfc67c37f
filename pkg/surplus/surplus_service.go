package surplus

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/internal/utils/storage"
	"Surplus-Share-Backend/pkg/expiry"
	"Surplus-Share-Backend/pkg/impact"
	"Surplus-Share-Backend/pkg/notification"
	"Surplus-Share-Backend/pkg/pickup"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	dateLayout        = "2006-01-02"
	predictionTimeout = 10 * time.Second
)

type (
	SurplusService interface {
		CreatePost(ctx context.Context, req domain.CreatePostRequest, donorID string) (*domain.SurplusPost, error)
		GetPost(ctx context.Context, postID string, actorID string) (*domain.SurplusPost, error)
		ListAvailablePosts(ctx context.Context, req domain.ListPostsRequest) (*domain.PostList, error)
		ClaimPost(ctx context.Context, postID string, receiverID string, req domain.ClaimPostRequest) (*domain.TransitionResult, error)
		CancelClaim(ctx context.Context, postID string, receiverID string) (*domain.TransitionResult, error)
		CompletePickup(ctx context.Context, postID string, donorID string, req domain.CompletePickupRequest) (*domain.TransitionResult, error)
		OverrideExpiry(ctx context.Context, postID string, donorID string, req domain.OverrideExpiryRequest) (*domain.TransitionResult, error)
		ValidatePickup(ctx context.Context, postID string, actorID string) (*pickup.Result, error)

		MarkReadyForPickup(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error)
		MarkNotCompleted(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error)
		MarkExpired(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error)
	}

	surplusService struct {
		surplusRepository SurplusRepository
		authorizer        *pickup.Authorizer
		predictor         expiry.Predictor
		notifier          notification.Notifier
		s3                storage.AwsS3
		now               func() time.Time
	}
)

type Option func(*surplusService)

func WithClock(now func() time.Time) Option {
	return func(s *surplusService) { s.now = now }
}

// NewSurplusService wires the lifecycle. predictor, notifier and s3 may be
// nil; the matching feature is then skipped.
func NewSurplusService(
	surplusRepository SurplusRepository,
	authorizer *pickup.Authorizer,
	predictor expiry.Predictor,
	notifier notification.Notifier,
	s3 storage.AwsS3,
	opts ...Option,
) SurplusService {
	s := &surplusService{
		surplusRepository: surplusRepository,
		authorizer:        authorizer,
		predictor:         predictor,
		notifier:          notifier,
		s3:                s3,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *surplusService) location() *time.Location {
	return s.authorizer.Location()
}

func (s *surplusService) clock() time.Time {
	return s.now().UTC()
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrParseUUID
	}
	return parsed, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrPostNotFound
	}
	return err
}

func parseDate(value string, invalid error) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return nil, invalid
	}
	return &t, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func (s *surplusService) CreatePost(ctx context.Context, req domain.CreatePostRequest, donorID string) (*domain.SurplusPost, error) {
	donorUUID, err := parseID(donorID)
	if err != nil {
		return nil, err
	}

	if !impact.IsKnownFoodType(req.FoodType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFoodType, req.FoodType)
	}
	quantity, err := decimal.NewFromString(req.QuantityValue)
	if err != nil || !quantity.IsPositive() {
		return nil, fmt.Errorf("invalid quantity %q", req.QuantityValue)
	}
	if !impact.IsSupportedUnit(req.QuantityUnit) {
		return nil, fmt.Errorf("%w: %q", impact.ErrUnsupportedUnit, req.QuantityUnit)
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.location().String()
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, timezone)
	}

	expiryDate, err := parseDate(req.ExpiryDate, domain.ErrInvalidExpiryDate)
	if err != nil {
		return nil, err
	}
	if expiryDate == nil {
		return nil, domain.ErrInvalidExpiryDate
	}
	pickupDate, err := parseDate(req.PickupDate, domain.ErrInvalidPickupDate)
	if err != nil {
		return nil, err
	}
	if _, err := pickup.NewWindow(pickupDate, optional(req.PickupFrom), optional(req.PickupTo)); err != nil {
		return nil, err
	}

	now := s.clock()
	post := &entities.SurplusPost{
		ID:             uuid.New(),
		DonorID:        donorUUID,
		Title:          req.Title,
		Description:    req.Description,
		FoodType:       strings.ToLower(strings.TrimSpace(req.FoodType)),
		FoodCategories: datatypes.JSONSlice[string](req.FoodCategories),
		QuantityValue:  quantity,
		QuantityUnit:   strings.ToLower(strings.TrimSpace(req.QuantityUnit)),
		PickupAddress:  req.PickupAddress,
		ExpiryDate:     *expiryDate,
		Timezone:       timezone,
		PickupDate:     pickupDate,
		PickupFrom:     optional(req.PickupFrom),
		PickupTo:       optional(req.PickupTo),
		Status:         entities.PostStatusAvailable,
	}

	var objectKey string
	if req.Image != nil && s.s3 != nil {
		objectKey, err = s.s3.UploadFile(
			ctx,
			fmt.Sprintf("post-%s", post.ID.String()),
			req.Image,
			"surplus-posts",
			storage.AllowImage...,
		)
		switch {
		case errors.Is(err, storage.ErrStorageDisabled):
			log.Warnw("object storage disabled, post created without image", "post_id", post.ID)
			objectKey = ""
		case err != nil:
			return nil, err
		default:
			post.ImageURL = s.s3.GetPublicLinkKey(objectKey)
		}
	}

	s.applyPrediction(ctx, post, now)
	expiry.Refresh(post, s.location())

	if err := s.surplusRepository.CreatePost(ctx, post); err != nil {
		if objectKey != "" {
			_ = s.s3.DeleteFile(ctx, objectKey)
		}
		return nil, err
	}

	return toDomainPost(post, true), nil
}

// applyPrediction asks the predictor for an expiry. Failures leave the post
// on its declared date.
func (s *surplusService) applyPrediction(ctx context.Context, post *entities.SurplusPost, now time.Time) {
	if s.predictor == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, predictionTimeout)
	defer cancel()

	prediction, err := s.predictor.Predict(ctx, expiry.PredictionRequest{
		PostID:         post.ID.String(),
		FoodType:       post.FoodType,
		FoodCategories: post.FoodCategories,
		DeclaredExpiry: post.ExpiryDate.Format(dateLayout),
		CreatedAt:      now,
	})
	if err != nil {
		if !errors.Is(err, expiry.ErrPredictorUnavailable) {
			log.Warnw("expiry prediction failed, using declared date", "post_id", post.ID, "error", err)
		}
		return
	}

	predicted := prediction.PredictedAt
	confidence := prediction.Confidence
	post.PredictedExpiry = &predicted
	post.PredictionConfidence = &confidence
	post.PredictionModelVersion = prediction.ModelVersion
}

func (s *surplusService) GetPost(ctx context.Context, postID string, actorID string) (*domain.SurplusPost, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	post, err := s.surplusRepository.GetPostByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return toDomainPost(post, post.DonorID.String() == actorID), nil
}

func (s *surplusService) ListAvailablePosts(ctx context.Context, req domain.ListPostsRequest) (*domain.PostList, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	posts, total, err := s.surplusRepository.ListAvailablePosts(ctx, s.clock(), page, limit)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.SurplusPost, 0, len(posts))
	for _, p := range posts {
		result = append(result, toDomainPost(p, false))
	}
	return &domain.PostList{Posts: result, Total: total, Page: page, Limit: limit}, nil
}

func (s *surplusService) ClaimPost(ctx context.Context, postID string, receiverID string, req domain.ClaimPostRequest) (*domain.TransitionResult, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	receiverUUID, err := parseID(receiverID)
	if err != nil {
		return nil, err
	}
	pickupDate, err := parseDate(req.PickupDate, domain.ErrInvalidPickupDate)
	if err != nil {
		return nil, err
	}

	in := ClaimInput{
		ClaimID:    uuid.New(),
		ReceiverID: receiverUUID,
		PickupDate: pickupDate,
		PickupFrom: optional(req.PickupFrom),
		PickupTo:   optional(req.PickupTo),
	}

	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, id, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		return ApplyClaim(post, active, in)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.notifyUser(ctx, post.DonorID, notification.TemplatePostClaimed, map[string]any{
		"Title":        post.Title,
		"PickupWindow": describeWindow(post, claim),
	})

	return &domain.TransitionResult{Post: toDomainPost(post, false), Claim: toDomainClaim(claim)}, nil
}

func (s *surplusService) CancelClaim(ctx context.Context, postID string, receiverID string) (*domain.TransitionResult, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	receiverUUID, err := parseID(receiverID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, id, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		if err := ApplyCancelClaim(post, active, receiverUUID, now); err != nil {
			return nil, err
		}
		return active, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.notifyUser(ctx, post.DonorID, notification.TemplateClaimCancelled, map[string]any{
		"Title": post.Title,
	})

	return &domain.TransitionResult{Post: toDomainPost(post, false), Claim: toDomainClaim(claim)}, nil
}

func (s *surplusService) CompletePickup(ctx context.Context, postID string, donorID string, req domain.CompletePickupRequest) (*domain.TransitionResult, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	actor, err := parseID(donorID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, id, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		if err := ApplyComplete(post, active, s.authorizer, CompleteInput{ActorID: actor, OTP: req.OTP}, now); err != nil {
			return nil, err
		}
		return active, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	payload := map[string]any{
		"Title":       post.Title,
		"CO2eKg":      deref(post.ImpactCO2eKg),
		"WaterLiters": deref(post.ImpactWaterLiters),
	}
	s.notifyUser(ctx, post.DonorID, notification.TemplatePickupCompleted, payload)
	if claim != nil {
		s.notifyUser(ctx, claim.ReceiverID, notification.TemplatePickupCompleted, payload)
	}

	return &domain.TransitionResult{Post: toDomainPost(post, true), Claim: toDomainClaim(claim)}, nil
}

func (s *surplusService) OverrideExpiry(ctx context.Context, postID string, donorID string, req domain.OverrideExpiryRequest) (*domain.TransitionResult, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	actor, err := parseID(donorID)
	if err != nil {
		return nil, err
	}

	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, id, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		return nil, ApplyOverrideExpiry(post, actor, req.ExpiryAt, s.location())
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &domain.TransitionResult{Post: toDomainPost(post, true), Claim: toDomainClaim(claim)}, nil
}

// ValidatePickup reports whether a pickup would be allowed right now. Only
// the donor and the active claim's receiver may ask.
func (s *surplusService) ValidatePickup(ctx context.Context, postID string, actorID string) (*pickup.Result, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	post, err := s.surplusRepository.GetPostByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	claim, err := s.surplusRepository.GetActiveClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	isDonor := post.DonorID.String() == actorID
	isReceiver := claim != nil && claim.ReceiverID.String() == actorID
	if !isDonor && !isReceiver {
		return nil, domain.ErrUserNotAllowed
	}

	pw, err := PostWindow(post)
	if err != nil {
		return nil, err
	}
	cw, err := ClaimWindow(claim)
	if err != nil {
		return nil, err
	}
	res := s.authorizer.Validate(pw, cw, post.Location(s.location()), s.clock())
	return &res, nil
}

func (s *surplusService) MarkReadyForPickup(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error) {
	otp, err := GenerateOTP()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, postID, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		return nil, ApplyReady(post, active, s.location(), otp, now)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	window := describeWindow(post, claim)
	s.notifyUser(ctx, post.DonorID, notification.TemplatePickupReadyDonor, map[string]any{
		"Title": post.Title,
		"OTP":   otp,
	})
	if claim != nil {
		s.notifyUser(ctx, claim.ReceiverID, notification.TemplatePickupReadyReceiver, map[string]any{
			"Title":         post.Title,
			"PickupAddress": post.PickupAddress,
			"PickupWindow":  window,
		})
	}

	return post, nil
}

func (s *surplusService) MarkNotCompleted(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error) {
	now := s.clock()
	post, claim, err := s.surplusRepository.UpdatePostAtomically(ctx, postID, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		if err := ApplyNotCompleted(post, active, s.location(), now); err != nil {
			return nil, err
		}
		return active, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	payload := map[string]any{"Title": post.Title}
	s.notifyUser(ctx, post.DonorID, notification.TemplatePickupNotCompleted, payload)
	if claim != nil {
		s.notifyUser(ctx, claim.ReceiverID, notification.TemplatePickupNotCompleted, payload)
	}
	return post, nil
}

func (s *surplusService) MarkExpired(ctx context.Context, postID uuid.UUID) (*entities.SurplusPost, error) {
	now := s.clock()
	post, _, err := s.surplusRepository.UpdatePostAtomically(ctx, postID, func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error) {
		if err := ApplyExpired(post, active, now); err != nil {
			return nil, err
		}
		return active, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.notifyUser(ctx, post.DonorID, notification.TemplatePostExpired, map[string]any{"Title": post.Title})
	return post, nil
}

// notifyUser is fire-and-forget: lookup and delivery failures are logged.
func (s *surplusService) notifyUser(ctx context.Context, userID uuid.UUID, templateKey string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	user, err := s.surplusRepository.GetUserByID(ctx, userID)
	if err != nil {
		log.Warnw("notification recipient lookup failed", "user_id", userID, "template", templateKey, "error", err)
		return
	}
	if _, err := s.notifier.Notify(ctx, notification.RecipientFromUser(user), templateKey, payload); err != nil {
		log.Warnw("notification failed", "user_id", userID, "template", templateKey, "error", err)
	}
}

func describeWindow(post *entities.SurplusPost, claim *entities.Claim) string {
	w, err := EffectiveWindow(post, claim)
	if err != nil || !w.IsScheduled() {
		return ""
	}
	return fmt.Sprintf("%s %s-%s", w.Date.Format(dateLayout), pickup.FormatClock(*w.Start), pickup.FormatClock(*w.End))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
