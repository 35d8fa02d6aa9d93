package diag

import (
	"net/http"
	"strconv"

	"courier-driver-agent/internal/logx"
)

// Handlers holds diagnostic HTTP handlers and their dependencies.
type Handlers struct {
	Logger   logx.Logger
	State    StateSource
	Session  SessionSource
	Dispatch DispatchSource
}

// NewHandlers creates a Handlers instance.
func NewHandlers(logger logx.Logger, st StateSource, sess SessionSource, disp DispatchSource) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Handlers{Logger: logger, State: st, Session: sess, Dispatch: disp}
}

// Healthz handles GET /healthz and returns 200 with {"status":"ok"}.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	State   any `json:"state"`
	Session any `json:"session"`
}

// Status handles GET /status: the full local snapshot plus the session
// status, for inspecting the agent from the device shell.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{}
	if h.State != nil {
		resp.State = h.State.Snapshot()
	}
	if h.Session != nil {
		resp.Session = h.Session.Status()
	}
	writeJSON(h.Logger, w, r, http.StatusOK, resp)
}

const defaultHistoryLimit = 20

// AvailableOrders handles GET /orders/available: the backend's current
// browse list, proxied read-only for inspection.
func (h *Handlers) AvailableOrders(w http.ResponseWriter, r *http.Request) {
	if h.Dispatch == nil {
		writeError(h.Logger, w, r, http.StatusServiceUnavailable, "dispatch unavailable")
		return
	}
	orders, err := h.Dispatch.Available(r.Context())
	if err != nil {
		writeError(h.Logger, w, r, http.StatusBadGateway, "available orders fetch failed")
		return
	}
	writeJSON(h.Logger, w, r, http.StatusOK, orders)
}

// OrderHistory handles GET /orders/history?limit=N.
func (h *Handlers) OrderHistory(w http.ResponseWriter, r *http.Request) {
	if h.Dispatch == nil {
		writeError(h.Logger, w, r, http.StatusServiceUnavailable, "dispatch unavailable")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(h.Logger, w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	orders, err := h.Dispatch.History(r.Context(), limit)
	if err != nil {
		writeError(h.Logger, w, r, http.StatusBadGateway, "order history fetch failed")
		return
	}
	writeJSON(h.Logger, w, r, http.StatusOK, orders)
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "route not found")
}
