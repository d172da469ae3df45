package service

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

func TestMapDomainError(t *testing.T) {
	_, validation := domain.NewUsername("x")

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"validation", validation, errorutil.CodeValidationFailed},
		{"disabled", domain.ErrAccountDisabled, errorutil.CodeAccountUnavailable},
		{"locked", domain.ErrAccountLocked, errorutil.CodeAccountUnavailable},
		{"max attempts", domain.ErrMaxAttemptsReached, errorutil.CodeAccountUnavailable},
		{"already revoked", domain.ErrAlreadyRevoked, errorutil.CodeInvalidRefreshToken},
		{"transition", domain.ErrInvalidTransition, errorutil.CodeInvalidTransition},
		{"reused", domain.ErrPasswordReused, errorutil.CodePasswordReused},
		{"foreign", errors.New("boom"), errorutil.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, mapDomainError(tt.err).Code)
		})
	}

	mapped := mapDomainError(validation)
	assert.Equal(t, "username", mapped.Details["field"])
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)

	security := mapDomainError(domain.ErrAccountLocked)
	assert.Equal(t, "account unavailable", security.Message)
	assert.ErrorIs(t, security, domain.ErrAccountLocked)
}

func TestMapRepositoryError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		resource string
		code     string
	}{
		{"account not found", repository.ErrNotFound, resourceStaffAccount, errorutil.CodeStaffAccountNotFound},
		{"token not found", repository.ErrNotFound, resourceRefreshToken, errorutil.CodeNotFound},
		{"wrapped conflict", fmt.Errorf("update: %w", repository.ErrVersionConflict), resourceStaffAccount, errorutil.CodeStaleVersion},
		{"duplicate", repository.ErrDuplicate, resourceRefreshToken, errorutil.CodeConflict},
		{"infrastructure", errors.New("connection reset"), resourceStaffAccount, errorutil.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, mapRepositoryError(tt.err, tt.resource).Code)
		})
	}

	existing := errorutil.NewForbidden("no")
	assert.Same(t, existing, mapRepositoryError(existing, resourceStaffAccount))
	assert.Equal(t, "refresh token not found", mapRepositoryError(repository.ErrNotFound, resourceRefreshToken).Message)
}
