package waitlist

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/pkg/constants"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
)

type ControllerConfig struct {
	// CreateRequestsPerMinute bounds signups per client IP.
	CreateRequestsPerMinute int
	// AllowedOrigins lists browser origins for the form. Empty or "*" allows any.
	AllowedOrigins []string
}

func NewWaitlistController(service WaitlistService, cfg ControllerConfig) *router.RESTController {
	if cfg.CreateRequestsPerMinute <= 0 {
		cfg.CreateRequestsPerMinute = constants.WaitlistRateLimitRequests
	}

	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			corsHandler := newCORSMiddleware(cfg.AllowedOrigins)
			creationLimiter := rs.NewRateLimiter(cfg.CreateRequestsPerMinute, time.Minute)

			rs.AddOptionsHandler(c, nil, "", http.StatusNoContent, corsHandler)
			rs.AddPostHandler(c, creationLimiter, "", createWaitlistEntryHandler(service), corsHandler)
		},
	)
}

// newCORSMiddleware panics on an unusable origin list, like duplicate routes do.
func newCORSMiddleware(origins []string) router.MiddlewareFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "apikey", "x-client-info", "X-Correlation-ID"},
		ExposeHeaders: []string{"X-Correlation-ID", "X-RateLimit-Limit", "X-RateLimit-Window", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if allowsAnyOrigin(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid CORS_ALLOWED_ORIGIN: %v", err))
	}

	return cors.New(cfg)
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func createWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req CreateWaitlistEntryRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)

			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}

			return router.BadRequestResult("Invalid request body", nil)
		}

		response, err := service.CreateEntry(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.CreatedResult(response, "Waitlist entry")
	}
}
