package v1

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/runfilter"
	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/infrastructure/api/jsonapi"
	"github.com/helixml/runfilter/infrastructure/api/middleware"
	"github.com/helixml/runfilter/infrastructure/api/v1/dto"
)

// FlowRunsRouter handles flow run endpoints.
type FlowRunsRouter struct {
	client     *runfilter.Client
	serializer jsonapi.Serializer
	logger     *slog.Logger
}

// NewFlowRunsRouter creates a new FlowRunsRouter.
func NewFlowRunsRouter(client *runfilter.Client) *FlowRunsRouter {
	return &FlowRunsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for flow run endpoints.
// Filter and count are POST because the filters travel in the body, but they
// modify nothing and stay open; guard wraps only create and delete.
func (r *FlowRunsRouter) Routes(guard ...func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Post("/filter", r.Filter)
	router.Post("/count", r.Count)
	router.Get("/{id}", r.Get)

	router.Group(func(w chi.Router) {
		w.Use(guard...)
		w.Post("/", r.Create)
		w.Delete("/{id}", r.Delete)
	})

	return router
}

// Filter handles POST /api/v1/flow_runs/filter.
func (r *FlowRunsRouter) Filter(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.FlowRunFilterRequest
	if err := decodeBody(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	filters, err := r.client.Filters.ValidateAll(ctx, body.Candidates())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	params := service.FilterParams{
		Filters: filters,
		Limit:   body.Limit,
		Offset:  body.Offset,
		Sort:    body.Sort,
	}
	runs, err := r.client.FlowRuns.Filter(ctx, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.FlowRuns.Count(ctx, filters...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	limit := body.Limit
	if limit == 0 || limit > r.client.FlowRuns.DefaultLimit() {
		limit = r.client.FlowRuns.DefaultLimit()
	}
	middleware.WriteJSONAPI(w, http.StatusOK, r.serializer.FlowRunList(runs, total, limit, body.Offset))
}

// Count handles POST /api/v1/flow_runs/count.
func (r *FlowRunsRouter) Count(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.CountRequest
	if err := decodeBody(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	filters, err := r.client.Filters.ValidateAll(ctx, body.Candidates())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	count, err := r.client.FlowRuns.Count(ctx, filters...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.CountResponse{Count: count})
}

// Get handles GET /api/v1/flow_runs/{id}.
func (r *FlowRunsRouter) Get(w http.ResponseWriter, req *http.Request) {
	run, err := r.client.FlowRuns.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSONAPI(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.FlowRunResource(run)))
}

// Create handles POST /api/v1/flow_runs.
func (r *FlowRunsRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body dto.FlowRunCreateRequest
	if err := decodeBody(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	run, err := newFlowRun(body)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	saved, err := r.client.FlowRuns.Create(req.Context(), run)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(req.URL.Path, "/")+"/"+saved.ID())
	middleware.WriteJSONAPI(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.FlowRunResource(saved)))
}

// Delete handles DELETE /api/v1/flow_runs/{id}.
func (r *FlowRunsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	if err := r.client.FlowRuns.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newFlowRun(body dto.FlowRunCreateRequest) (flowrun.FlowRun, error) {
	if body.Name == "" {
		return flowrun.FlowRun{}, middleware.NewAPIError(http.StatusBadRequest, "name is required", nil)
	}

	opts := []flowrun.Option{
		flowrun.WithFlowVersion(body.FlowVersion),
		flowrun.WithTags(body.Tags...),
	}
	if body.State != nil {
		st, err := flowrun.ParseStateType(body.State.Type)
		if err != nil {
			return flowrun.FlowRun{}, middleware.NewAPIError(http.StatusBadRequest, "invalid state type", err)
		}
		opts = append(opts, flowrun.WithState(st, body.State.Name))
	}
	if body.ExpectedStartTime != nil {
		opts = append(opts, flowrun.WithExpectedStartTime(*body.ExpectedStartTime))
	}
	if body.StartTime != nil {
		opts = append(opts, flowrun.WithStartTime(*body.StartTime))
	}
	if body.EndTime != nil {
		opts = append(opts, flowrun.WithEndTime(*body.EndTime))
	}
	return flowrun.NewFlowRun(body.Name, opts...), nil
}

// decodeBody decodes a JSON request body into v. An empty body leaves v zero.
func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	data, err := readBody(w, req)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err)
	}
	return nil
}
