package expiry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrPredictorUnavailable = errors.New("expiry predictor not configured")

type PredictionRequest struct {
	PostID         string    `json:"postId"`
	FoodType       string    `json:"foodType"`
	FoodCategories []string  `json:"foodCategories"`
	DeclaredExpiry string    `json:"declaredExpiry"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Prediction struct {
	PredictedAt  time.Time
	Confidence   float64
	ModelVersion string
	InputsUsed   map[string]any
}

type Predictor interface {
	Predict(ctx context.Context, req PredictionRequest) (Prediction, error)
}

// HTTPPredictor asks the food model service for a predicted expiry.
type HTTPPredictor struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPPredictor(baseURL string) *HTTPPredictor {
	return &HTTPPredictor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type predictionResponse struct {
	PredictedTimestamp string         `json:"predictedTimestamp"`
	Confidence         float64        `json:"confidence"`
	ModelVersion       string         `json:"modelVersion"`
	InputsUsed         map[string]any `json:"inputsUsed"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, req PredictionRequest) (Prediction, error) {
	if p.baseURL == "" {
		return Prediction{}, ErrPredictorUnavailable
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict-expiry", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("create prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Prediction{}, fmt.Errorf("call expiry predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Prediction{}, fmt.Errorf("expiry predictor error: %s - %s", resp.Status, string(bodyBytes))
	}

	var out predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}

	predictedAt, err := time.Parse(time.RFC3339, out.PredictedTimestamp)
	if err != nil {
		return Prediction{}, fmt.Errorf("parse predicted timestamp %q: %w", out.PredictedTimestamp, err)
	}

	if out.Confidence < 0 || out.Confidence > 1 {
		out.Confidence = 0
	}

	return Prediction{
		PredictedAt:  predictedAt.UTC(),
		Confidence:   out.Confidence,
		ModelVersion: out.ModelVersion,
		InputsUsed:   out.InputsUsed,
	}, nil
}
