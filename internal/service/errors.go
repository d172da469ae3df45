package service

import (
	"errors"
	"fmt"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

const (
	resourceStaffAccount = "staff account"
	resourceRefreshToken = "refresh token"
	resourcePermission   = "permission"
)

// mapDomainError translates a domain failure into the application error family.
func mapDomainError(err error) *errorutil.AppError {
	var appErr *errorutil.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		return errorutil.NewInternalError(err)
	}

	switch domainErr.Kind {
	case domain.KindValidation:
		var details map[string]any
		if domainErr.Field != "" {
			details = map[string]any{"field": domainErr.Field}
		}
		return errorutil.NewValidationError(domainErr.Error(), details)
	case domain.KindAccountDisabled, domain.KindAccountLocked, domain.KindMaxAttemptsReached:
		return errorutil.NewAccountUnavailable(err)
	case domain.KindAlreadyRevoked:
		return errorutil.NewInvalidRefreshToken(err)
	case domain.KindInvalidTransition:
		return errorutil.Wrap(errorutil.CodeInvalidTransition, domainErr.Message, err)
	case domain.KindPasswordReused:
		return errorutil.Wrap(errorutil.CodePasswordReused, "password was used recently", err)
	default:
		return errorutil.NewInternalError(err)
	}
}

// mapRepositoryError translates a storage failure for resource.
func mapRepositoryError(err error, resource string) *errorutil.AppError {
	var appErr *errorutil.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if resource == resourceStaffAccount {
			return errorutil.NewStaffAccountNotFound()
		}
		if resource == "" {
			resource = "resource"
		}
		return errorutil.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return errorutil.Wrap(errorutil.CodeStaleVersion, "resource was modified concurrently, reload and retry", err)
	case errors.Is(err, repository.ErrDuplicate):
		if resource == "" {
			resource = "resource"
		}
		return errorutil.Wrap(errorutil.CodeConflict, fmt.Sprintf("%s already exists", resource), err)
	default:
		return errorutil.NewInternalError(err)
	}
}

// toAppError routes an arbitrary failure through the matching mapper.
func toAppError(err error) *errorutil.AppError {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return mapDomainError(err)
	}
	return mapRepositoryError(err, "")
}
