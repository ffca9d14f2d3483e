package http

import (
	stderrors "errors"
	"net/http"

	"rillcast/internal/core/domain"
	"rillcast/pkg/errors"
)

// toAppError maps domain failures onto API errors. Anything unrecognised
// came from the media SDK or token service.
func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrNotAuthenticated):
		return errors.NewUnauthorizedError(err.Error())
	case stderrors.Is(err, domain.ErrInvalidCredentials):
		return errors.WrapError(err, errors.ErrCodeUnauthorized, err.Error(), http.StatusUnauthorized)
	case stderrors.Is(err, domain.ErrPermissionsDenied):
		return errors.NewPermissionRequiredError(err.Error())
	case stderrors.Is(err, domain.ErrAlreadyConnected):
		return errors.WrapError(err, errors.ErrCodeConflict, err.Error(), http.StatusConflict)
	case stderrors.Is(err, domain.ErrInvalidInput),
		stderrors.Is(err, domain.ErrRoomNameRequired),
		stderrors.Is(err, domain.ErrDisplayNameRequired),
		stderrors.Is(err, domain.ErrUnknownCamera):
		return errors.WrapError(err, errors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrStreamNotFound):
		return errors.WrapError(err, errors.ErrCodeNotFound, err.Error(), http.StatusNotFound)
	default:
		return errors.NewBadGatewayError(err)
	}
}
