package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/smallnest/graphflow/engine"
	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/log"
	"github.com/smallnest/graphflow/store"
)

// maxRequestBodySize limits incoming request bodies (4MB).
const maxRequestBodySize = 4 * 1024 * 1024

// Handlers holds the HTTP handler methods of the API.
type Handlers struct {
	service *engine.Service
	logger  log.Logger
}

// NewHandlers creates the handler set around a service.
func NewHandlers(service *engine.Service, logger log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// HandleCreateGraph handles POST /graph/create.
func (h *Handlers) HandleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req CreateGraphRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	graphID, err := h.service.CreateGraph(r.Context(), req.Spec)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateGraphResponse{
		GraphID: graphID,
		Message: "graph created successfully",
	})
}

// HandleRunGraph handles POST /graph/run. Run failures are reported
// in-band: the response carries the terminal run record, whatever its
// status.
func (h *Handlers) HandleRunGraph(w http.ResponseWriter, r *http.Request) {
	var req RunGraphRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.GraphID == "" {
		writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return
	}

	run, err := h.service.RunGraph(r.Context(), req.GraphID, graph.State(req.InitialState), req.MaxSteps)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, runToResponse(run))
}

// HandleGetRun handles GET /graph/state/{run_id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, runToResponse(run))
}

// HandleListGraphs handles GET /graph/list.
func (h *Handlers) HandleListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.service.ListGraphs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ListGraphsResponse{Graphs: graphs})
}

// HandleListRuns handles GET /runs/list.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs})
}

// HandleListTools handles GET /tools.
func (h *Handlers) HandleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ListToolsResponse{
		Tools:   h.service.ListTools(),
		Routers: h.service.ListRouters(),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	graphs, _ := h.service.ListGraphs(r.Context())
	runs, _ := h.service.ListRuns(r.Context())

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Graphs: len(graphs),
		Runs:   len(runs),
		Tools:  len(h.service.ListTools()),
	})
}

// HandleRoot handles GET /.
func (h *Handlers) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "graphflow workflow engine",
		"endpoints": map[string]string{
			"create_graph": "POST /graph/create",
			"run_graph":    "POST /graph/run",
			"get_run":      "GET /graph/state/{run_id}",
			"list_graphs":  "GET /graph/list",
			"list_runs":    "GET /runs/list",
			"list_tools":   "GET /tools",
			"health":       "GET /health",
		},
	})
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return errors.New("failed to read request body")
	}
	if len(body) > maxRequestBodySize {
		return errors.New("request body too large")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes. Validation failures
// and unresolvable tool references are the caller's fault; unknown
// identifiers are 404; everything else is a server error.
func statusFor(err error) int {
	var validationErr *graph.ValidationError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, graph.ErrEntryPointNotSet):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
