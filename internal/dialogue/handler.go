package dialogue

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookbotclinic/bookbot/internal/catalog"
	"github.com/bookbotclinic/bookbot/internal/observability/metrics"
	"github.com/bookbotclinic/bookbot/pkg/logging"
)

// Handler wires HTTP requests to the dialogue engine.
type Handler struct {
	engine   *Engine
	catalogs *catalog.Resolver
	metrics  *metrics.DialogueMetrics
	logger   *logging.Logger
}

// NewHandler creates a dialogue handler. metrics may be nil.
func NewHandler(engine *Engine, catalogs *catalog.Resolver, m *metrics.DialogueMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, catalogs: catalogs, metrics: m, logger: logger}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// sessionID resolves the session id for a request: query parameter first,
// then the X-Session-Id header.
func sessionID(r *http.Request) string {
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		return sid
	}
	return r.Header.Get("X-Session-Id")
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		h.metrics.ObserveTurn("bad_request", time.Since(start).Seconds())
		return
	}
	sid := req.SessionID
	if sid == "" {
		sid = sessionID(r)
	}

	res, err := h.engine.Turn(r.Context(), sid, req.Message)
	if errors.Is(err, ErrEmptyMessage) {
		h.writeError(w, http.StatusBadRequest, "message is required")
		h.metrics.ObserveTurn("bad_request", time.Since(start).Seconds())
		return
	}
	if err != nil {
		h.logger.Error("turn failed", "session_id", sid, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		h.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return
	}

	h.metrics.ObserveTurn("ok", time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, chatResponse{Reply: res.Reply, SessionID: res.SessionID})
}

// ListBookings handles GET /bookings.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	bookings, err := h.engine.ListBookings(r.Context(), sid)
	if err != nil {
		h.logger.Error("list bookings failed", "session_id", sid, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// GetBooking handles GET /bookings/{id}.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	booking, err := h.engine.GetBooking(r.Context(), sid, chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, sid, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

type patchBookingRequest struct {
	Details map[Field]string `json:"details"`
}

// UpdateBooking handles PATCH /bookings/{id}.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	var req patchBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.engine.UpdateBooking(r.Context(), sid, chi.URLParam(r, "id"), req.Details)
	var verr *ValidationError
	if errors.As(err, &verr) {
		h.writeError(w, http.StatusBadRequest, verr.Reply)
		return
	}
	if err != nil {
		h.writeLookupError(w, sid, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "booking": booking})
}

// DeleteBooking handles DELETE /bookings/{id}.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := h.engine.DeleteBooking(r.Context(), sid, chi.URLParam(r, "id")); err != nil {
		h.writeLookupError(w, sid, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ClinicInfo handles GET /clinic/info.
func (h *Handler) ClinicInfo(w http.ResponseWriter, r *http.Request) {
	var cat *catalog.Catalog
	if h.catalogs != nil {
		cat = h.catalogs.Resolve(r.Context())
	} else {
		cat = catalog.Default()
	}
	h.writeJSON(w, http.StatusOK, cat)
}

// ClearHistory handles POST /history/clear.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := h.engine.ClearHistory(r.Context(), sid); err != nil {
		h.writeLookupError(w, sid, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, sid string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, ErrBookingNotFound):
		h.writeError(w, http.StatusNotFound, "booking not found")
	default:
		h.logger.Error("booking lookup failed", "session_id", sid, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
