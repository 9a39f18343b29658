package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_FieldMessages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		req  any
		want string
	}{
		{
			name: "required",
			req:  &loginRequest{Email: "a@x.com"},
			want: "password is required",
		},
		{
			name: "email",
			req:  &loginRequest{Email: "not-an-email", Password: "pw"},
			want: "email must be a valid email",
		},
		{
			name: "min",
			req:  &registerRequest{Username: "al", Email: "a@x.com", Password: "P@ssw0rd!", ConfirmPassword: "P@ssw0rd!"},
			want: "username must be at least 3 characters",
		},
		{
			name: "max",
			req: &registerRequest{
				Username: "alice", Email: "a@x.com",
				Password: strings.Repeat("x", 101), ConfirmPassword: "x",
			},
			want: "password must be at most 100 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusBadRequest, he.Code)
			assert.Equal(t, tt.want, he.Message)
		})
	}
}

func TestValidator_ValidRequestPasses(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(&loginRequest{Email: "a@x.com", Password: "pw"}))
}
