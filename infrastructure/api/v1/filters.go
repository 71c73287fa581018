// Package v1 implements the version 1 HTTP API.
package v1

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/runfilter"
	"github.com/helixml/runfilter/infrastructure/api/jsonapi"
	"github.com/helixml/runfilter/infrastructure/api/middleware"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// FiltersRouter handles filter validation endpoints.
type FiltersRouter struct {
	client     *runfilter.Client
	serializer jsonapi.Serializer
	logger     *slog.Logger
}

// NewFiltersRouter creates a new FiltersRouter.
func NewFiltersRouter(client *runfilter.Client) *FiltersRouter {
	return &FiltersRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for filter endpoints.
func (r *FiltersRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/validate", r.Validate)

	return router
}

// Validate handles POST /api/v1/filters/validate.
//
// The body is one flow run filter object. The response names the resolved
// property and family and echoes the filter in normalised form.
func (r *FiltersRouter) Validate(w http.ResponseWriter, req *http.Request) {
	body, err := readBody(w, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	f, err := r.client.Filters.Validate(req.Context(), body)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resource, err := r.serializer.FilterResource(f)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSONAPI(w, http.StatusOK, jsonapi.NewSingleResponse(resource))
}

// readBody reads a bounded request body as raw JSON.
func readBody(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		return nil, middleware.NewAPIError(http.StatusRequestEntityTooLarge, "request body too large", err)
	}
	return data, nil
}
