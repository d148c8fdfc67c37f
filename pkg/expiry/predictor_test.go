package expiry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict-expiry", r.URL.Path)
		var req PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bakery", req.FoodType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictedTimestamp":"2025-03-11T10:00:00+07:00","confidence":0.82,"modelVersion":"shelf_v3","inputsUsed":{"foodType":"bakery"}}`))
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL + "/")
	got, err := p.Predict(context.Background(), PredictionRequest{PostID: "p1", FoodType: "bakery"})
	require.NoError(t, err)

	assert.True(t, time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC).Equal(got.PredictedAt))
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
	assert.Equal(t, "shelf_v3", got.ModelVersion)
	assert.Equal(t, "bakery", got.InputsUsed["foodType"])
}

func TestHTTPPredictorErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := NewHTTPPredictor("").Predict(context.Background(), PredictionRequest{})
		assert.ErrorIs(t, err, ErrPredictorUnavailable)
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model offline", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPPredictor(srv.URL).Predict(context.Background(), PredictionRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model offline")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"predictedTimestamp":"tomorrow"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPPredictor(srv.URL).Predict(context.Background(), PredictionRequest{})
		assert.Error(t, err)
	})
}
