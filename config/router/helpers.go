package router

import (
	"net/http"

	"github.com/miniquinox/billsync/internal/log"
)

// GetLogger returns the request-scoped logger installed by the router, or a
// fresh one tagged with the request's correlation ID.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

func OKResult(data any, message string) *ServiceResult {
	return ErrorResult(http.StatusOK, message, data)
}

// CreatedResult names the created resource in the message, e.g. "Waitlist entry created successfully".
func CreatedResult(data any, resourceName string) *ServiceResult {
	return ErrorResult(http.StatusCreated, resourceName+" created successfully", data)
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message, payload)
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message, nil)
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return ErrorResult(http.StatusTooManyRequests, "Too Many Requests", data)
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message, nil)
}
