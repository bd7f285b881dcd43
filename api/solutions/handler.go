// Package solutions exposes the simulation clock over HTTP.
package solutions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/glpdispatch/core/logger"
	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/optimizer"
	"github.com/kilianp07/glpdispatch/core/simulation"
	"github.com/kilianp07/glpdispatch/core/solutionlog"
)

// Simulator is the part of the simulation clock served by the handler.
type Simulator interface {
	AdvanceInterval(ctx context.Context, now time.Time) (simulation.SolutionPacket, error)
	ReportBreakdown(ctx context.Context, truckCode string, incident model.IncidentType, at time.Time) error
	GetSolution(index int) (simulation.SolutionPacket, error)
	Latest() (simulation.SolutionPacket, error)
	Status() simulation.Status
}

// BreakdownRequest is the body of POST /api/breakdowns.
type BreakdownRequest struct {
	TruckCode string             `json:"truck_code"`
	Incident  model.IncidentType `json:"incident"`
	At        time.Time          `json:"at"`
}

// AdvanceRequest is the optional body of POST /api/simulation/advance.
type AdvanceRequest struct {
	Now time.Time `json:"now"`
}

type errorBody struct {
	Error string `json:"error"`
}

// NewHandler returns the routes of the solution API. store may be nil, in
// which case the log route answers 404. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(sim Simulator, store solutionlog.Store, token string, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handler{sim: sim, store: store, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/solutions/latest", h.latest)
	mux.HandleFunc("GET /api/solutions/logs", h.logs)
	mux.HandleFunc("GET /api/solutions/{index}", h.solution)
	mux.HandleFunc("POST /api/simulation/advance", h.advance)
	mux.HandleFunc("GET /api/simulation/status", h.status)
	mux.HandleFunc("POST /api/breakdowns", h.breakdown)
	return WithToken(token, mux)
}

// WithToken rejects requests without the bearer token. An empty token
// disables the check.
func WithToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handler struct {
	sim   Simulator
	store solutionlog.Store
	log   logger.Logger
}

func (h *handler) latest(w http.ResponseWriter, _ *http.Request) {
	p, err := h.sim.Latest()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) solution(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "index must be an integer"})
		return
	}
	p, err := h.sim.GetSolution(idx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// advance answers 422 with the EMERGENCY packet when the interval could not be planned.
func (h *handler) advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body: " + err.Error()})
			return
		}
	}
	p, err := h.sim.AdvanceInterval(r.Context(), req.Now)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, optimizer.ErrOptimizationFailed):
		h.log.Warnf("advance: %v", err)
		writeJSON(w, http.StatusUnprocessableEntity, p)
	default:
		h.fail(w, err)
	}
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Status())
}

func (h *handler) breakdown(w http.ResponseWriter, r *http.Request) {
	var req BreakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body: " + err.Error()})
		return
	}
	if req.TruckCode == "" || req.At.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "truck_code and at are required"})
		return
	}
	if err := h.sim.ReportBreakdown(r.Context(), req.TruckCode, req.Incident, req.At); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sim.Status())
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "packet log disabled"})
		return
	}
	q := solutionlog.Query{
		TruckCode: r.URL.Query().Get("truck"),
		Kind:      r.URL.Query().Get("kind"),
	}
	for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		s := r.URL.Query().Get(name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: name + " must be RFC3339"})
			return
		}
		*dst = t
	}
	recs, err := h.store.Query(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	if recs == nil {
		recs = []solutionlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, simulation.ErrPacketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, simulation.ErrInvalidBreakdownTarget):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, simulation.ErrClockClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("solutions api: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
