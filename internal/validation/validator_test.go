package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/validation"
)

type signupRequest struct {
	Email    string `json:"email_address" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	FullName string `json:"full_name" validate:"required"`
}

type registerRequest struct {
	TagID  string `json:"tag_id" validate:"required,tagid"`
	Status string `json:"status" validate:"omitempty,itemstatus"`
}

func TestValidator_Success(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(signupRequest{Email: "ada@example.com", Password: "password123", FullName: "Ada"}))
	assert.NoError(t, v.Validate(registerRequest{TagID: "TAG-0001", Status: "1"}))
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{"missing name", signupRequest{Email: "ada@example.com", Password: "password123"}, "full_name"},
		{"invalid email", signupRequest{Email: "nope", Password: "password123", FullName: "Ada"}, "email_address"},
		{"short password", signupRequest{Email: "ada@example.com", Password: "short", FullName: "Ada"}, "password"},
		{"long password", signupRequest{Email: "ada@example.com", Password: strings.Repeat("x", 1025), FullName: "Ada"}, "password"},
		{"bad tag id", registerRequest{TagID: "tag with spaces"}, "tag_id"},
		{"bad status", registerRequest{TagID: "T1", Status: "3"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var derr *domainerrors.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, http.StatusBadRequest, derr.HTTPStatus())
			assert.Contains(t, derr.Message, tt.wantField)

			details, ok := derr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(signupRequest{Password: "password123", FullName: "Ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email_address")
	assert.NotContains(t, err.Error(), "Email ")
}

func TestIsTagID(t *testing.T) {
	assert.True(t, validation.IsTagID("A1_b-2"))
	assert.False(t, validation.IsTagID(""))
	assert.False(t, validation.IsTagID("a/b"))
	assert.False(t, validation.IsTagID(strings.Repeat("a", 65)))
}
