package errors

import (
	"errors"
	"net/http"

	apperrors "spotbook/pkg/errors"
)

var (
	ErrSpotNotFound = errors.New("spot not found")

	ErrUserNotFound = errors.New("user not found")

	ErrOwnerCannotBook = errors.New("owner cannot book own spot")

	ErrInvalidRange = errors.New("end date must be after start date")

	ErrDateConflict = errors.New("dates conflict with an existing booking")

	ErrDuplicateReservation = errors.New("reservation already exists")
)

// Codes carried by the AppErrors below. Callers branch on these, never on
// messages.
const (
	CodeSpotNotFound      = "SPOT_NOT_FOUND"
	CodeOwnerCannotBook   = "OWNER_CANNOT_BOOK_OWN_SPOT"
	CodeInvalidRange      = "INVALID_RANGE"
	CodeDateConflict      = "DATE_CONFLICT"
	CodeRequestValidation = apperrors.CodeValidation
)

const (
	MsgSpotNotFound           = "Spot couldn't be found"
	MsgOwnerCannotBook        = "Forbidden, can't book your own spot"
	MsgValidation             = "Validation error"
	MsgDateConflict           = "Sorry, this spot is already booked for the specified dates"
	MsgAuthenticationRequired = "Authentication required"
)

func SpotNotFound(spotID string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:       CodeSpotNotFound,
		Message:    MsgSpotNotFound,
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"spotId": spotID},
		Err:        ErrSpotNotFound,
	}
}

func OwnerCannotBook() *apperrors.AppError {
	return &apperrors.AppError{
		Code:       CodeOwnerCannotBook,
		Message:    MsgOwnerCannotBook,
		HTTPStatus: http.StatusForbidden,
		Err:        ErrOwnerCannotBook,
	}
}

func InvalidRange(fields map[string]string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:       CodeInvalidRange,
		Message:    MsgValidation,
		HTTPStatus: http.StatusBadRequest,
		Fields:     fields,
		Err:        ErrInvalidRange,
	}
}

func DateConflict(fields map[string]string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:       CodeDateConflict,
		Message:    MsgDateConflict,
		HTTPStatus: http.StatusForbidden,
		Fields:     fields,
		Err:        ErrDateConflict,
	}
}

func RequestValidation(fields map[string]string) *apperrors.AppError {
	return apperrors.Validation(MsgValidation, fields)
}
