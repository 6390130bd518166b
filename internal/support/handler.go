package support

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Handler serves the support form endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Submit handles POST /api/soporte.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "cuerpo inválido", http.StatusBadRequest)
		return
	}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		req.UserID = userID
	}

	if err := h.service.Submit(r.Context(), &req); err != nil {
		h.logger.Error("support submit failed", "error", err)
		http.Error(w, "no se pudo registrar la solicitud", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": req.ID, "status": "recibido"})
}

// List handles GET /api/admin/soporte.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	reqs, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("support list failed", "error", err)
		http.Error(w, "error al listar solicitudes", http.StatusInternalServerError)
		return
	}
	if reqs == nil {
		reqs = []Request{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"solicitudes": reqs})
}
