package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	v := validator.New()
	req := &signup{Email: "not-an-email"}

	err := v.Struct(req)
	require.Error(t, err)

	got := FormatValidationErrors(err, req)
	assert.ElementsMatch(t, []ValidationErrorResponse{
		{Field: "name", Message: "This field is required"},
		{Field: "email", Message: "Invalid email format"},
	}, got)
}

func TestFormatValidationErrors_NilAndForeignErrors(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(nil, nil))
	assert.Nil(t, FormatValidationErrors(assert.AnError, nil))
}
