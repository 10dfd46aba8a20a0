package services

import (
	"errors"

	goa "goa.design/goa/v3/pkg"

	apperrors "algoforce/pkg/errors"
)

// AsAppError returns the application error carried by err. goa decode and
// validation errors become VALIDATION_ERROR, anything else INTERNAL_ERROR.
func AsAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var svcErr *goa.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Fault {
			return apperrors.Internal(msgServerError, err)
		}
		return apperrors.Wrap(apperrors.ErrCodeValidation, svcErr.Message, err)
	}

	return apperrors.Internal(msgServerError, err)
}
