package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/internal/bookings/export"
	"spotbook/internal/bookings/service"
	"spotbook/internal/bookings/validator"
	apperrors "spotbook/pkg/errors"
	httputil "spotbook/pkg/http"
	"spotbook/pkg/logger"
	"spotbook/pkg/middleware"
	"spotbook/pkg/model"
	"spotbook/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

// BookingsResponse wraps the list so clients get {"Bookings": [...]}.
type BookingsResponse struct {
	Bookings []model.BookingView `json:"Bookings"`
}

type BookingHandler struct {
	service   service.BookingService
	validator *validator.BookingValidator
	log       *logger.Logger
}

func NewBookingHandler(service service.BookingService, validator *validator.BookingValidator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body validator.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	body.Sanitize()
	if err := h.validator.Validate(&body); err != nil {
		h.writeError(w, r, "Create", validationError(err))
		return
	}

	period, err := body.Period()
	if err != nil {
		h.writeError(w, r, "Create", validationError(err))
		return
	}

	reservation, err := h.service.Create(r.Context(), model.BookingRequest{
		SpotID:      sanitizer.NormalizeID(ps.ByName("spotId")),
		RequesterID: middleware.UserID(r.Context()),
		Period:      period,
	})
	if err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Ctx(r.Context()).Error("failed to write success response", "handler", "Create", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	views, err := h.service.List(r.Context(), sanitizer.NormalizeID(ps.ByName("spotId")), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, BookingsResponse{Bookings: views}); err != nil {
		h.log.Ctx(r.Context()).Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

// Export serves the same projection as List as an xlsx download.
func (h *BookingHandler) Export(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	spotID := sanitizer.NormalizeID(ps.ByName("spotId"))
	views, err := h.service.List(r.Context(), spotID, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, "Export", err)
		return
	}

	f, err := export.Workbook(spotID, views)
	if err != nil {
		h.writeError(w, r, "Export", apperrors.Internal("Failed to build export", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "bookings-" + spotID + ".xlsx"}))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		h.log.Ctx(r.Context()).Error("failed to write export", "handler", "Export", "spot_id", spotID, "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Ctx(r.Context()).Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return bookingserrors.RequestValidation(verrs.Fields())
	}
	return bookingserrors.RequestValidation(map[string]string{"body": err.Error()})
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/spots/:spotId/bookings", h.Create)
	router.GET("/api/spots/:spotId/bookings", h.List)
	router.GET("/api/spots/:spotId/bookings/export", h.Export)
}
