package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/logging"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Mirror is what the handlers need from the coordinator.
type Mirror interface {
	Store() *store.Store
	Refresh(ctx context.Context) error
	Subscribed() string
	Mode() coordinator.Mode
}

// JobLookup fetches a single job from the service. It is consulted when
// a requested job is not in the current window.
type JobLookup interface {
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
}

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StateHandler returns the current store snapshot.
// GET /api/state
func StateHandler(m Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, newStatePayload(m.Store().State(), string(m.Mode()), m.Subscribed()))
	}
}

// JobHandler returns one job, from the window when present and otherwise
// from the service.
// GET /api/jobs/{id}
func JobHandler(m Mirror, lookup JobLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if j, ok := m.Store().Job(id); ok {
			writeData(w, http.StatusOK, j)
			return
		}
		if lookup == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("job %s is not in the current window", id))
			return
		}

		j, err := lookup.GetJob(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, j)
	}
}

// RefreshHandler triggers a refetch and returns the resulting state.
// POST /api/refresh
func RefreshHandler(m Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.Refresh(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, newStatePayload(m.Store().State(), string(m.Mode()), m.Subscribed()))
	}
}

// HealthHandler reports that the mirror is serving.
// GET /healthz
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"status": "ok", "clients": hub.Count()})
	}
}

// EventsHandler provides the SSE event stream. The first event is the
// current state; subsequent events follow store changes and push
// notifications.
// GET /api/events
func EventsHandler(m Mirror, hub *Hub, buffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "SSE_UNSUPPORTED", "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		c := NewClient(buffer)
		if !hub.Register(c) {
			return
		}
		defer hub.Unregister(c)

		fmt.Fprintf(w, ": connected %s\n\n", c.ID())
		writeEvent(w, stateEvent(m.Store().State(), string(m.Mode()), m.Subscribed()))
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-c.events:
				if !ok {
					return
				}
				writeEvent(w, event)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, e *Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}

// writeServiceError maps client errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		nf *client.NotFoundError
		ve *client.ValidationError
		se *client.ServiceError
	)
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, "NOT_FOUND", nf.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "INVALID", ve.Error())
	case errors.Is(err, client.ErrUnreachable):
		writeError(w, http.StatusBadGateway, "UNREACHABLE", err.Error())
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, "SERVICE_ERROR", se.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// recovery turns handler panics into 500 responses.
func recovery(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLog logs each request at debug level.
func requestLog(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
