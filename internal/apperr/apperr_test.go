package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("taken"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Upstream("hf down", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestWrappedKindSurvives(t *testing.T) {
	err := fmt.Errorf("register: %w", Conflict("Email already registered"))

	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, "Email already registered", Detail(err))
}

func TestInternalDetailIsHidden(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))

	assert.Equal(t, "Internal server error", Detail(err))
	assert.ErrorContains(t, err, "connection refused")
}
