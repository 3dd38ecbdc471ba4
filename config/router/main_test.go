package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/prometheus/client_golang/prometheus"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return OKResult(payload, "ok")
		})

		rs.AddPostHandler(c, rs.NewRateLimiter(1, time.Minute), "once", func(ctx *RequestContext) *ServiceResult {
			return CreatedResult(nil, "Thing")
		})

		rs.AddOptionsHandler(c, nil, "echo", http.StatusOK)

		rs.AddRawHandler(c, nil, http.MethodPost, "raw", func(ctx *RequestContext) {
			ctx.JSON(http.StatusOK, map[string]string{"message": "raw"})
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T) *RouterService {
	t.Helper()

	logger := log.NewLoggerWithJSONOutput()
	return CreateRouterService(logger, nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
}

func serve(rs *RouterService, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func clientIPFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Code    int    `json:"code"`
		Data    string `json:"data"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Data
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if ip := clientIPFrom(t, w); ip != "10.0.0.2" {
		t.Fatalf("expected ClientIP to use RemoteAddr when trusted proxies disabled; got %q", ip)
	}
}

func TestTrustedProxies_StarTrustsForwardedFor(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "*")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if ip := clientIPFrom(t, w); ip != "1.1.1.1" {
		t.Fatalf("expected ClientIP to use X-Forwarded-For when trusted proxies enabled; got %q", ip)
	}
}

func TestMaxBodySize_Returns413(t *testing.T) {
	t.Setenv("MAX_REQUEST_BODY_BYTES", "10")

	rs := newTestRouterService(t)
	mountTestController(rs)

	body := bytes.Repeat([]byte{'a'}, 50)
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if w := serve(rs, req); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlerRateLimitOverride(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	first := serve(rs, httptest.NewRequest(http.MethodPost, "/once", nil))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("expected handler limit header 1, got %q", got)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining 0, got %q", got)
	}

	second := serve(rs, httptest.NewRequest(http.MethodPost, "/once", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// Default limiter still applies to sibling handlers.
	if w := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type redisBackedCache struct{ client *redis.Client }

func (c *redisBackedCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }
func (c *redisBackedCache) GetClient() *redis.Client      { return c.client }

func TestRedisRateLimiters_CountPerBinding(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rs := CreateRouterService(log.NewLoggerWithJSONOutput(), &redisBackedCache{client: client}, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewRESTController("Limited", "/", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, rs.NewRateLimiter(3, time.Minute), "signup", func(ctx *RequestContext) *ServiceResult {
			return CreatedResult(nil, "Signup")
		})
		rs.AddGetHandler(c, rs.NewRateLimiter(1, time.Minute), "status", func(ctx *RequestContext) *ServiceResult {
			return OKResult(nil, "ok")
		})
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})
	}))

	for i := 0; i < 3; i++ {
		if w := serve(rs, httptest.NewRequest(http.MethodPost, "/signup", nil)); w.Code != http.StatusCreated {
			t.Fatalf("signup %d: expected 201, got %d", i, w.Code)
		}
	}

	status := serve(rs, httptest.NewRequest(http.MethodGet, "/status", nil))
	if status.Code != http.StatusOK {
		t.Fatalf("expected status to keep its own budget, got %d: %s", status.Code, status.Body.String())
	}
	if got := status.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining 0 on status, got %q", got)
	}

	ip := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	if ip.Code != http.StatusOK {
		t.Fatalf("expected 200 on default limiter, got %d", ip.Code)
	}
	if got := ip.Header().Get("X-RateLimit-Remaining"); got != "999" {
		t.Fatalf("expected default limiter untouched, got remaining %q", got)
	}

	if w := serve(rs, httptest.NewRequest(http.MethodPost, "/signup", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fourth signup to be limited, got %d", w.Code)
	}

	if keys := mr.Keys(); len(keys) != 3 {
		t.Fatalf("expected one sorted set per binding, got %v", keys)
	}
}

func TestControllerHeaders_SetOnRejections(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)
	rs.MountController(NewRESTController("Function", "/fn", func(rs *RouterService, c *RESTController) {
		rs.SetControllerHeaders(c, map[string]string{"Access-Control-Allow-Origin": "*"})
		rs.AddRawHandler(c, rs.NewRateLimiter(1, time.Minute), http.MethodPost, "", func(ctx *RequestContext) {
			ctx.JSON(http.StatusOK, map[string]string{"message": "ok"})
		})
	}))

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := serve(rs, httptest.NewRequest(http.MethodPost, "/fn", nil))
		if w.Code != want {
			t.Fatalf("expected %d, got %d", want, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("expected controller header on %d, got %q", want, got)
		}
	}

	if got := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil)).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no controller header outside /fn, got %q", got)
	}
}

func TestOptionsAndRawHandlers(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodOptions, "/echo", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}

	w = serve(rs, httptest.NewRequest(http.MethodPost, "/raw", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"message":"raw"}` {
		t.Fatalf("expected raw body, got %s", w.Body.String())
	}
}

func TestUnknownRoute_Returns404Envelope(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != float64(http.StatusNotFound) {
		t.Fatalf("expected envelope code 404, got %v", resp["code"])
	}
}

func TestRegisterCollectors_ExposedOnMetrics(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "router_test_events_total",
		Help: "Events seen by the router test.",
	})
	rs.RegisterCollectors(counter)
	rs.RegisterCollectors(counter)
	counter.Inc()

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "router_test_events_total 1") {
		t.Fatalf("expected counter in metrics output")
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPSInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	rs := newTestRouterService(t)
	mountTestController(rs)

	plain := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	if plain.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be set over plain HTTP")
	}
	if plain.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	secure := serve(rs, req)
	if got := secure.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS value %q", got)
	}
}
