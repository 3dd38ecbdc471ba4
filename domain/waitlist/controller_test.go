package waitlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	calls int
	err   error
}

func (s *stubService) CreateEntry(_ context.Context, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &WaitlistEntryResponse{ID: uint(s.calls), Name: req.Name, Email: req.Email, Company: req.Company}, nil
}

const validBody = `{"name":"Ada","email":"ada@example.com","company":"Engines"}`

func newWaitlistRouter(t *testing.T, service WaitlistService, cfg ControllerConfig) *router.RouterService {
	t.Helper()

	rs := router.CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewWaitlistController(service, cfg))
	return rs
}

func post(rs *router.RouterService, body string, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/waitlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func TestCreateWaitlistEntry_Created(t *testing.T) {
	service := &stubService{}
	rs := newWaitlistRouter(t, service, ControllerConfig{})

	w := post(rs, validBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Code    int                   `json:"code"`
		Data    WaitlistEntryResponse `json:"data"`
		Message string                `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Ada", resp.Data.Name)
	assert.Equal(t, "Waitlist entry created successfully", resp.Message)
	assert.Equal(t, 1, service.calls)
}

func TestCreateWaitlistEntry_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing company", `{"name":"Ada","email":"ada@example.com"}`},
		{"bad email", `{"name":"Ada","email":"not-an-email","company":"Engines"}`},
		{"empty name", `{"name":"","email":"ada@example.com","company":"Engines"}`},
		{"not json", `name=Ada`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubService{}
			rs := newWaitlistRouter(t, service, ControllerConfig{})

			w := post(rs, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, service.calls)
		})
	}
}

func TestCreateWaitlistEntry_StoreFailure(t *testing.T) {
	service := &stubService{err: apperrors.NewDatabaseError("unable to create waitlist entry", nil)}
	rs := newWaitlistRouter(t, service, ControllerConfig{})

	w := post(rs, validBody, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "unable to create waitlist entry")
}

func TestCreateWaitlistEntry_RateLimited(t *testing.T) {
	service := &stubService{}
	rs := newWaitlistRouter(t, service, ControllerConfig{CreateRequestsPerMinute: 2})

	assert.Equal(t, http.StatusCreated, post(rs, validBody, "").Code)
	assert.Equal(t, http.StatusCreated, post(rs, validBody, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(rs, validBody, "").Code)
	assert.Equal(t, 2, service.calls)
}

func TestWaitlistCORS(t *testing.T) {
	cfg := ControllerConfig{AllowedOrigins: []string{"https://billsync.example"}}

	t.Run("allowed origin", func(t *testing.T) {
		rs := newWaitlistRouter(t, &stubService{}, cfg)

		w := post(rs, validBody, "https://billsync.example")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "https://billsync.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin is refused", func(t *testing.T) {
		service := &stubService{}
		rs := newWaitlistRouter(t, service, cfg)

		w := post(rs, validBody, "https://evil.example")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, service.calls)
	})

	t.Run("preflight", func(t *testing.T) {
		rs := newWaitlistRouter(t, &stubService{}, cfg)

		req := httptest.NewRequest(http.MethodOptions, "/v1/waitlist", nil)
		req.Header.Set("Origin", "https://billsync.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		w := httptest.NewRecorder()
		rs.GetEngine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://billsync.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("wildcard", func(t *testing.T) {
		rs := newWaitlistRouter(t, &stubService{}, ControllerConfig{AllowedOrigins: []string{"*"}})

		w := post(rs, validBody, "https://anywhere.example")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNewCORSMiddleware_PanicsOnInvalidOrigin(t *testing.T) {
	assert.Panics(t, func() { newCORSMiddleware([]string{"billsync.example"}) })
}
