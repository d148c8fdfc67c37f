package domain

import (
	"Surplus-Share-Backend/pkg/pickup"
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessCreatePost     = "surplus post created successfully"
	MessageSuccessGetPost        = "surplus post retrieved successfully"
	MessageSuccessGetPosts       = "surplus posts retrieved successfully"
	MessageSuccessClaimPost      = "surplus post claimed successfully"
	MessageSuccessCancelClaim    = "claim cancelled successfully"
	MessageSuccessCompletePickup = "pickup completed successfully"
	MessageSuccessOverrideExpiry = "expiry overridden successfully"
	MessageSuccessValidatePickup = "pickup window checked"

	MessageFailedCreatePost     = "failed to create surplus post"
	MessageFailedGetPost        = "failed to retrieve surplus post"
	MessageFailedGetPosts       = "failed to retrieve surplus posts"
	MessageFailedClaimPost      = "failed to claim surplus post"
	MessageFailedCancelClaim    = "failed to cancel claim"
	MessageFailedCompletePickup = "failed to complete pickup"
	MessageFailedOverrideExpiry = "failed to override expiry"
	MessageFailedValidatePickup = "failed to check pickup window"

	ErrPostNotFound        = errors.New("surplus post not found")
	ErrInvalidPostStatus   = errors.New("invalid surplus post status")
	ErrNotPostDonor        = errors.New("not authorized, only the donor may do this")
	ErrInvalidOTP          = errors.New("Invalid OTP code")
	ErrSelfClaim           = errors.New("donor cannot claim their own post")
	ErrPostAlreadyClaimed  = errors.New("surplus post already has an active claim")
	ErrNotClaimReceiver    = errors.New("not authorized, only the claim receiver may do this")
	ErrPickupWindowDenied  = errors.New("pickup is outside the allowed window")
	ErrInvalidExpiryDate   = errors.New("invalid expiry date, expected YYYY-MM-DD")
	ErrInvalidPickupDate   = errors.New("invalid pickup date, expected YYYY-MM-DD")
	ErrInvalidTimezone     = errors.New("unknown timezone")
	ErrUnsupportedFoodType = errors.New("food type has no impact factor")
)

type TransitionReason string

const (
	ReasonInvalidStatus    TransitionReason = "INVALID_STATUS"
	ReasonNotAuthorized    TransitionReason = "NOT_AUTHORIZED"
	ReasonInvalidOTP       TransitionReason = "INVALID_OTP"
	ReasonSelfClaim        TransitionReason = "SELF_CLAIM"
	ReasonAlreadyClaimed   TransitionReason = "ALREADY_CLAIMED"
	ReasonNotClaimReceiver TransitionReason = "NOT_CLAIM_RECEIVER"
	ReasonPickupWindow     TransitionReason = "PICKUP_WINDOW"
)

// TransitionError is a precondition violation on a lifecycle transition.
// Err is one of the sentinels above so callers can use errors.Is.
type TransitionError struct {
	Reason  TransitionReason
	Message string
	Err     error
	Pickup  *pickup.Result
}

func (e *TransitionError) Error() string {
	return e.Message
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

type (
	CreatePostRequest struct {
		Title          string                `json:"title" form:"title" validate:"required,max=200"`
		Description    string                `json:"description" form:"description" validate:"omitempty,max=2000"`
		FoodType       string                `json:"food_type" form:"food_type" validate:"required"`
		FoodCategories []string              `json:"food_categories" form:"food_categories" validate:"omitempty,dive,required"`
		QuantityValue  string                `json:"quantity_value" form:"quantity_value" validate:"required,numeric"`
		QuantityUnit   string                `json:"quantity_unit" form:"quantity_unit" validate:"required,oneof=kg g lb oz l ml"`
		ExpiryDate     string                `json:"expiry_date" form:"expiry_date" validate:"required"`
		Timezone       string                `json:"timezone" form:"timezone" validate:"omitempty"`
		PickupAddress  string                `json:"pickup_address" form:"pickup_address" validate:"required"`
		PickupDate     string                `json:"pickup_date" form:"pickup_date" validate:"omitempty"`
		PickupFrom     string                `json:"pickup_from" form:"pickup_from" validate:"omitempty,required_with=PickupTo"`
		PickupTo       string                `json:"pickup_to" form:"pickup_to" validate:"omitempty,required_with=PickupFrom"`
		Image          *multipart.FileHeader `json:"-" form:"image"`
	}

	ClaimPostRequest struct {
		PickupDate string `json:"pickup_date" validate:"omitempty"`
		PickupFrom string `json:"pickup_from" validate:"omitempty,required_with=PickupTo"`
		PickupTo   string `json:"pickup_to" validate:"omitempty,required_with=PickupFrom"`
	}

	CompletePickupRequest struct {
		OTP string `json:"otp" validate:"required,len=6,numeric"`
	}

	OverrideExpiryRequest struct {
		ExpiryAt time.Time `json:"expiry_at" validate:"required"`
	}

	ListPostsRequest struct {
		Page  int `query:"page" validate:"omitempty,min=1"`
		Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	PickupWindow struct {
		Date string `json:"date"`
		From string `json:"from"`
		To   string `json:"to"`
	}

	ImpactSnapshot struct {
		CO2eKg        float64   `json:"co2e_kg"`
		WaterLiters   float64   `json:"water_liters"`
		FactorVersion string    `json:"factor_version"`
		ComputedAt    time.Time `json:"computed_at"`
	}

	SurplusPost struct {
		ID                   string          `json:"id"`
		DonorID              string          `json:"donor_id"`
		Title                string          `json:"title"`
		Description          string          `json:"description"`
		FoodType             string          `json:"food_type"`
		FoodCategories       []string        `json:"food_categories"`
		QuantityValue        string          `json:"quantity_value"`
		QuantityUnit         string          `json:"quantity_unit"`
		ImageURL             string          `json:"image_url,omitempty"`
		PickupAddress        string          `json:"pickup_address"`
		ExpiryDate           string          `json:"expiry_date"`
		PredictedExpiry      *time.Time      `json:"predicted_expiry,omitempty"`
		PredictionConfidence *float64        `json:"prediction_confidence,omitempty"`
		ExpiryOverridden     bool            `json:"expiry_overridden"`
		EffectiveExpiry      time.Time       `json:"effective_expiry"`
		PickupWindow         *PickupWindow   `json:"pickup_window,omitempty"`
		Status               string          `json:"status"`
		OTPCode              string          `json:"otp_code,omitempty"`
		ReadyAt              *time.Time      `json:"ready_at,omitempty"`
		CompletedAt          *time.Time      `json:"completed_at,omitempty"`
		ExpiredAt            *time.Time      `json:"expired_at,omitempty"`
		Impact               *ImpactSnapshot `json:"impact,omitempty"`
		CreatedAt            time.Time       `json:"created_at"`
	}

	Claim struct {
		ID            string        `json:"id"`
		SurplusPostID string        `json:"surplus_post_id"`
		ReceiverID    string        `json:"receiver_id"`
		Status        string        `json:"status"`
		PickupWindow  *PickupWindow `json:"pickup_window,omitempty"`
		CreatedAt     time.Time     `json:"created_at"`
	}

	// TransitionResult is returned by every lifecycle operation.
	TransitionResult struct {
		Post  *SurplusPost `json:"post"`
		Claim *Claim       `json:"claim,omitempty"`
	}

	PostList struct {
		Posts []*SurplusPost `json:"posts"`
		Total int64          `json:"total"`
		Page  int            `json:"page"`
		Limit int            `json:"limit"`
	}
)
