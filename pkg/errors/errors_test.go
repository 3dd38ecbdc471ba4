package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, StatusInternalServerError},
		{"invalid request", NewInvalidRequestError("bad", nil), StatusBadRequest},
		{"not found", NewNotFoundError("missing", nil), StatusNotFound},
		{"database", NewDatabaseError("db", errors.New("boom")), StatusInternalServerError},
		{"configuration", NewConfigurationError("unset", nil), StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", NewInvalidRequestError("bad", nil)), StatusBadRequest},
		{"plain", errors.New("plain"), StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_HidesRawErrors(t *testing.T) {
	assert.Equal(t, "unable to create waitlist entry",
		GetHumanReadableMessage(NewDatabaseError("unable to create waitlist entry", errors.New("pq: relation does not exist"))))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(errors.New("pq: relation does not exist")))
}

func TestCallerMessage(t *testing.T) {
	assert.Equal(t, "unable to queue notification", CallerMessage(NewDatabaseError("unable to queue notification", errors.New("x"))))
	assert.Equal(t, "dial tcp: refused", CallerMessage(errors.New("dial tcp: refused")))
	assert.Equal(t, "unknown error", CallerMessage(nil))
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("cause")
	err := NewDatabaseError("wrapped", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsType(err, ErrorTypeDatabaseError))
	assert.Contains(t, err.Error(), "DATABASE_ERROR: wrapped: cause")
}
