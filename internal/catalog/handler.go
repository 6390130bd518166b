package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/internal/observability/metrics"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Handler serves the catalog search and stats endpoints.
type Handler struct {
	repo    Repository
	metrics *metrics.AppMetrics
	logger  *logging.Logger
}

func NewHandler(repo Repository, m *metrics.AppMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// SearchResponse is the payload for GET /api/partidas.
type SearchResponse struct {
	Resultados []TariffEntry `json:"resultados"`
	Count      int           `json:"count"`
	Termino    string        `json:"termino"`
}

// Search handles GET /api/partidas.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := SearchFilter{
		Termino:       q.Get("termino"),
		Capitulo:      q.Get("capitulo"),
		Gravamen:      q.Get("gravamen"),
		TipoDocumento: q.Get("tipo_documento"),
		EntidadEmite:  q.Get("entidad_emite"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	entries, err := h.repo.Search(r.Context(), filter)
	if err != nil {
		h.logger.Error("search failed", "error", err, "termino", filter.Termino)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveSearch()

	// Popularity stats only track what authenticated users actually typed.
	if userID, ok := auth.UserIDFromContext(r.Context()); ok && filter.Termino != "" {
		log := &SearchLog{UserID: userID, Termino: filter.Termino, Tipo: "texto_o_codigo"}
		if err := h.repo.LogSearch(r.Context(), log); err != nil {
			h.logger.Warn("search log failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Resultados: entries,
		Count:      len(entries),
		Termino:    filter.Termino,
	})
}

// Get handles GET /api/partidas/{codigo}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	codigo := chi.URLParam(r, "codigo")
	if codigo == "" {
		http.Error(w, "missing codigo", http.StatusBadRequest)
		return
	}
	entry, err := h.repo.GetByCode(r.Context(), codigo)
	if err != nil {
		h.logger.Error("get entry failed", "error", err, "codigo", codigo)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "partida no encontrada", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Autocomplete handles GET /api/autocomplete?prefix=0101.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = r.URL.Query().Get("q")
	}
	codes, err := h.repo.AutocompleteCodes(r.Context(), prefix, 10)
	if err != nil {
		h.logger.Error("autocomplete failed", "error", err)
		http.Error(w, "autocomplete failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codigos": codes})
}

// Filters handles GET /api/filtros.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	fv, err := h.repo.Filters(r.Context())
	if err != nil {
		h.logger.Error("filters failed", "error", err)
		http.Error(w, "filters failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}

// StatsByChapter handles GET /api/stats/por-capitulo.
func (h *Handler) StatsByChapter(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.StatsByChapter(r.Context())
	if err != nil {
		h.logger.Error("chapter stats failed", "error", err)
		http.Error(w, "stats failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capitulos": stats})
}

// TopSearchTerms handles GET /api/stats/terminos (admin).
func (h *Handler) TopSearchTerms(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	stats, err := h.repo.TopSearchTerms(r.Context(), limit)
	if err != nil {
		h.logger.Error("term stats failed", "error", err)
		http.Error(w, "stats failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"terminos": stats})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
