package bookings

import (
	"encoding/json"
	"net/http"

	"github.com/bookbotclinic/bookbot/pkg/logging"
)

// Handler exposes the booking archive over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListBySession handles GET /archive/bookings.
func (h *Handler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("session_id")
	if sid == "" {
		sid = r.Header.Get("X-Session-Id")
	}
	if sid == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	rows, err := h.store.ListBySession(r.Context(), sid)
	if err != nil {
		h.logger.Error("archive list failed", "session_id", sid, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"bookings": rows})
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
