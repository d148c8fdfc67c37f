package handlers_test

import (
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/internal/api/handlers"
	"Surplus-Share-Backend/internal/api/routes"
	"Surplus-Share-Backend/internal/middleware"
	"Surplus-Share-Backend/pkg/impact"
	"Surplus-Share-Backend/pkg/jwt"
	"Surplus-Share-Backend/pkg/pickup"
	"Surplus-Share-Backend/pkg/surplus"
	"Surplus-Share-Backend/pkg/surplus/surplustest"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app      *fiber.App
	service  surplus.SurplusService
	donor    string
	receiver string
	admin    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := surplustest.NewMemoryRepository()
	repo.Clock = clock
	donor := entities.User{ID: uuid.New(), Name: "Donor", Role: entities.RoleDonor}
	receiver := entities.User{ID: uuid.New(), Name: "Receiver", Role: entities.RoleReceiver}
	repo.AddUser(donor)
	repo.AddUser(receiver)

	auth, err := pickup.NewAuthorizer(pickup.DefaultTolerance(), time.UTC)
	require.NoError(t, err)
	service := surplus.NewSurplusService(repo, auth, nil, nil, nil, surplus.WithClock(clock))
	jwtService := jwt.NewJWTService("test-secret")
	validate := validator.New()

	app := fiber.New()
	cfg := routes.Config{
		App:            app,
		SurplusHandler: handlers.NewSurplusHandler(service, validate),
		ImpactHandler:  handlers.NewImpactHandler(impact.NewImpactService(repo, time.UTC), validate),
		Middleware:     middleware.NewMiddleware("*"),
		JWTService:     jwtService,
	}
	cfg.Setup()

	token := func(id uuid.UUID, role string) string {
		tok, err := jwtService.GenerateTokenUser(id.String(), role)
		require.NoError(t, err)
		return tok
	}
	return &testServer{
		app:      app,
		service:  service,
		donor:    token(donor.ID, entities.RoleDonor),
		receiver: token(receiver.ID, entities.RoleReceiver),
		admin:    token(uuid.New(), entities.RoleAdmin),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func (s *testServer) createPost(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/surplus-posts", s.donor, map[string]any{
		"title":          "Nasi kotak",
		"food_type":      "prepared_meals",
		"quantity_value": "10",
		"quantity_unit":  "kg",
		"expiry_date":    "2025-03-12",
		"timezone":       "UTC",
		"pickup_address": "Jl. Merdeka 1",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var post struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, string(entities.PostStatusAvailable), post.Status)
	return post.ID
}

func decodeReason(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Reason
}

func TestSurplusRoutesLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createPost(t)
	base := "/api/v1/surplus-posts/" + id

	status, _ := s.do(t, http.MethodPost, base+"/claim", s.donor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := s.do(t, http.MethodPost, base+"/claim", s.receiver, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = s.do(t, http.MethodPost, base+"/claim", s.receiver, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATUS", decodeReason(t, env))

	_, err := s.service.MarkReadyForPickup(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)

	var post struct {
		Status  string `json:"status"`
		OTPCode string `json:"otp_code"`
	}
	status, env = s.do(t, http.MethodGet, base, s.receiver, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Empty(t, post.OTPCode)

	status, env = s.do(t, http.MethodGet, base, s.donor, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &post))
	require.Len(t, post.OTPCode, 6)
	otp := post.OTPCode

	wrong := []byte(otp)
	wrong[0] = '0' + (wrong[0]-'0'+1)%10
	status, env = s.do(t, http.MethodPost, base+"/complete", s.donor, map[string]string{"otp": string(wrong)})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_OTP", decodeReason(t, env))

	status, _ = s.do(t, http.MethodPost, base+"/complete", s.receiver, map[string]string{"otp": otp})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodPost, base+"/complete", s.donor, map[string]string{"otp": otp})
	require.Equal(t, http.StatusOK, status, env.Error)
	var result struct {
		Post struct {
			Status string `json:"status"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, string(entities.PostStatusCompleted), result.Post.Status)

	status, env = s.do(t, http.MethodGet, "/api/v1/impact/report?from=2025-03-01&to=2025-03-31", s.donor, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var report impact.ComputationResult
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.InDelta(t, 10, report.Current.WeightKg, 1e-9)
	assert.InDelta(t, 25, report.Current.CO2Kg, 1e-9)
}

func TestSurplusRoutesRejectBadRequests(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/surplus-posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/surplus-posts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/surplus-posts/"+uuid.NewString(), s.donor, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/surplus-posts", s.donor, map[string]any{"title": "missing fields"})
	assert.Equal(t, http.StatusBadRequest, status)

	id := s.createPost(t)
	status, _ = s.do(t, http.MethodPost, "/api/v1/surplus-posts/"+id+"/complete", s.donor, map[string]string{"otp": "12ab"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/surplus-posts/"+id+"/complete", s.donor, map[string]string{"otp": "123456"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATUS", decodeReason(t, env))

	status, _ = s.do(t, http.MethodGet, "/api/v1/impact/report?from=2025-04-01&to=2025-03-01", s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListAvailablePosts(t *testing.T) {
	s := newTestServer(t)
	s.createPost(t)
	s.createPost(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/surplus-posts?page=1&limit=1", s.receiver, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	var list struct {
		Posts []json.RawMessage `json:"posts"`
		Total int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Posts, 1)
	assert.EqualValues(t, 2, list.Total)
}

func TestImpactFactorsIsPublic(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/api/v1/impact/factors", "", nil)
	require.Equal(t, http.StatusOK, status)

	var table impact.FactorTable
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.Equal(t, impact.FactorVersion, table.Version)
	assert.NotEmpty(t, table.Factors)
}
