package license

import (
	"encoding/json"
	"net/http"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Handler serves the licence self-service endpoints. Every route assumes the
// auth middleware already placed a user in the context.
type Handler struct {
	service *Service
	logger  *logging.Logger

	// TrialEnabled gates the free-trial endpoint. On by default.
	TrialEnabled bool
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, TrialEnabled: true}
}

// Status handles GET /api/licencia.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	status, err := h.service.StatusFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("license status failed", "error", err, "user_id", userID)
		http.Error(w, "no se pudo consultar la licencia", http.StatusInternalServerError)
		return
	}
	if status == nil {
		writeJSON(w, http.StatusOK, Status{Estado: EstadoNotFound})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Trial handles POST /api/licencia/trial.
func (h *Handler) Trial(w http.ResponseWriter, r *http.Request) {
	if !h.TrialEnabled {
		http.Error(w, "la licencia de prueba no está disponible", http.StatusForbidden)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	// One active grant at a time: a user who still holds one keeps it.
	existing, err := h.service.StatusFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("trial check failed", "error", err, "user_id", userID)
		http.Error(w, "no se pudo emitir la licencia de prueba", http.StatusInternalServerError)
		return
	}
	if existing != nil && existing.Estado != EstadoExpired {
		http.Error(w, "ya tienes una licencia activa", http.StatusConflict)
		return
	}

	lic, err := h.service.IssueTrial(r.Context(), userID)
	if err != nil {
		h.logger.Error("trial issue failed", "error", err, "user_id", userID)
		http.Error(w, "no se pudo emitir la licencia de prueba", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, lic)
}

// RenewRequest is the JSON body for POST /api/licencia/renovar.
type RenewRequest struct {
	Meses int `json:"meses"`
}

// Renew handles POST /api/licencia/renovar.
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req RenewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "cuerpo inválido", http.StatusBadRequest)
		return
	}
	if req.Meses <= 0 {
		http.Error(w, "meses debe ser mayor a cero", http.StatusBadRequest)
		return
	}

	lic, err := h.service.Renew(r.Context(), userID, req.Meses)
	if err != nil {
		h.logger.Error("license renew failed", "error", err, "user_id", userID)
		http.Error(w, "no se pudo renovar la licencia", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, lic)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
