package validator

import (
	"errors"
	"fmt"
	"reflect"
	"spotbook/pkg/interval"
	"spotbook/pkg/logger"
	"spotbook/pkg/sanitizer"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateBookingRequest is the body of POST /api/spots/:spotId/bookings.
type CreateBookingRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

func (r *CreateBookingRequest) Sanitize() {
	r.StartDate = sanitizer.TrimAndNormalize(r.StartDate)
	r.EndDate = sanitizer.TrimAndNormalize(r.EndDate)
}

// Period converts a validated request. The range is not checked for order;
// that is the ledger's call.
func (r *CreateBookingRequest) Period() (interval.Range, error) {
	start, err := interval.ParseDate(r.StartDate)
	if err != nil {
		return interval.Range{}, err
	}
	end, err := interval.ParseDate(r.EndDate)
	if err != nil {
		return interval.Range{}, err
	}
	return interval.Range{Start: start, End: end}, nil
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields keys the messages by input field name.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		if _, seen := out[err.Field]; !seen {
			out[err.Field] = err.Message
		}
	}
	return out
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BookingValidator) Validate(req *CreateBookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message(err),
		})
	}
	return out
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a valid date in YYYY-MM-DD format", err.Field())
	default:
		return fmt.Sprintf("%s is invalid", err.Field())
	}
}
