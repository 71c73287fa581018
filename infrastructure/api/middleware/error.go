package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/infrastructure/api/jsonapi"
	"github.com/helixml/runfilter/internal/database"
)

// FiltersPointer is the body member holding filter lists; IndexError pointers are relative to it.
const FiltersPointer = "/flow_runs"

// WriteError writes a JSON:API formatted error response.
// Joined filter failures become one error object per failing filter.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := classify(err)
	correlationID := GetCorrelationID(r.Context())

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request error",
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	errs := validationErrors(err, status, correlationID)
	if len(errs) == 0 {
		detail := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			detail = apiErr.Message()
		}
		errs = []jsonapi.Error{{
			ID:     correlationID,
			Status: strconv.Itoa(status),
			Title:  title,
			Detail: detail,
		}}
	}

	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonapi.NewErrorResponse(errs...))
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONAPI writes a JSON:API document.
func WriteJSONAPI(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

func classify(err error) (int, string) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), http.StatusText(apiErr.Code())
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, "Authentication Failed"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, filter.ErrValidation):
		return http.StatusBadRequest, "Validation Error"
	case errors.Is(err, service.ErrInvalidPagination), errors.Is(err, flowrun.ErrInvalidSort):
		return http.StatusBadRequest, "Invalid Query"
	case errors.Is(err, service.ErrClientClosed):
		return http.StatusServiceUnavailable, "Service Unavailable"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// validationErrors expands filter failures into JSON:API errors with source pointers.
func validationErrors(err error, status int, correlationID string) []jsonapi.Error {
	var parts []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok && !isValidationError(err) {
		parts = joined.Unwrap()
	} else {
		parts = []error{err}
	}

	var out []jsonapi.Error
	for _, part := range parts {
		var pointer string
		var ierr *filter.IndexError
		var verr *filter.ValidationError
		switch {
		case errors.As(part, &ierr):
			pointer = FiltersPointer + ierr.Pointer()
		case errors.As(part, &verr):
			pointer = verr.Pointer()
		default:
			continue
		}

		title := "Validation Error"
		if errors.As(part, &verr) {
			title = verr.Kind.String()
		}
		e := jsonapi.Error{
			ID:     correlationID,
			Status: strconv.Itoa(status),
			Title:  title,
			Detail: part.Error(),
		}
		if pointer != "" {
			e.Source = &jsonapi.ErrorSource{Pointer: pointer}
		}
		out = append(out, e)
	}
	return out
}

func isValidationError(err error) bool {
	_, ok := err.(*filter.ValidationError)
	return ok
}
