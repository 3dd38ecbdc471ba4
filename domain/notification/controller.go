package notification

import (
	"io"
	"net/http"

	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/pkg/constants"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
)

const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "POST, OPTIONS"
)

func NewNotificationController(service NotificationService, metrics *Metrics) *router.RESTController {
	return router.NewRESTController(
		"NotificationController",
		constants.NotifyFunctionPath,
		func(rs *router.RouterService, c *router.RESTController) {
			if metrics != nil {
				rs.RegisterCollectors(metrics.Collectors()...)
			}

			// Same headers on every answer, errors included, whatever the origin.
			rs.SetControllerHeaders(c, functionCORSHeaders)
			rs.AddOptionsHandler(c, nil, "", http.StatusOK)
			rs.AddRawHandler(c, nil, http.MethodPost, "", notifyHandler(service))
		},
	)
}

var functionCORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  corsAllowOrigin,
	"Access-Control-Allow-Headers": corsAllowHeaders,
	"Access-Control-Allow-Methods": corsAllowMethods,
}

func notifyHandler(service NotificationService) router.MiddlewareFunc {
	return func(ctx *router.RequestContext) {
		logger := router.GetLogger(ctx)

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			respondError(ctx, logger, apperrors.NewInvalidRequestError("unable to read request body", err))
			return
		}

		req, err := ParseNotifyRequest(body)
		if err != nil {
			respondError(ctx, logger, err)
			return
		}

		if _, err := service.Dispatch(ctx.Request.Context(), req.Record); err != nil {
			respondError(ctx, logger, err)
			return
		}

		ctx.JSON(http.StatusOK, MessageResponse{Message: constants.NotificationQueuedMsg})
	}
}

func respondError(ctx *router.RequestContext, logger *log.Logger, err error) {
	logger.Error("notify-waitlist invocation failed", "error", err)
	ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: apperrors.CallerMessage(err)})
}
