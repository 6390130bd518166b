package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/internal/uploads"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

const maxUploadBytes = 20 << 20 // 20 MiB

// Handler wires the two-step import handshake: preview parks the workbook
// and returns a token, commit replays it against the catalog.
type Handler struct {
	previewer *Previewer
	committer *Committer
	catalog   catalog.Repository
	runs      RunsRepository
	store     *uploads.Store
	archiver  uploads.Archiver
	logger    *logging.Logger
}

func NewHandler(previewer *Previewer, committer *Committer, repo catalog.Repository, runs RunsRepository, store *uploads.Store, archiver uploads.Archiver, logger *logging.Logger) *Handler {
	if archiver == nil {
		archiver = uploads.NopArchiver{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		previewer: previewer,
		committer: committer,
		catalog:   repo,
		runs:      runs,
		store:     store,
		archiver:  archiver,
		logger:    logger,
	}
}

// PreviewResponse wraps the dry-run result with the token the client must
// send back on confirm.
type PreviewResponse struct {
	Token   string `json:"token"`
	Archivo string `json:"archivo"`
	*PreviewResult
}

// Preview handles POST /api/admin/import/preview (multipart, field "archivo").
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "archivo demasiado grande o formulario inválido", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("archivo")
	if err != nil {
		http.Error(w, "falta el archivo (campo 'archivo')", http.StatusBadRequest)
		return
	}
	defer file.Close()

	updateExisting := parseBoolField(r, "update_existing")

	token, err := h.store.Save(file, header.Filename)
	if err != nil {
		h.logger.Error("park upload failed", "error", err)
		http.Error(w, "no se pudo guardar el archivo", http.StatusInternalServerError)
		return
	}

	path, _, err := h.store.Resolve(token)
	if err != nil {
		http.Error(w, "no se pudo guardar el archivo", http.StatusInternalServerError)
		return
	}
	sheet, err := ReadSheet(path)
	if err != nil {
		h.store.Release(token)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.previewer.Preview(r.Context(), sheet, updateExisting)
	if err != nil {
		h.store.Release(token)
		var missing *ErrMissingColumn
		if errors.As(err, &missing) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("preview failed", "error", err, "archivo", header.Filename)
		http.Error(w, "error al procesar la vista previa", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Token:         token,
		Archivo:       header.Filename,
		PreviewResult: result,
	})
}

// CommitRequest is the JSON body for POST /api/admin/import/commit.
type CommitRequest struct {
	Token          string `json:"token"`
	UpdateExisting bool   `json:"update_existing"`
	SyncCatalog    bool   `json:"sync_catalog"`
}

// Commit handles POST /api/admin/import/commit.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "cuerpo inválido: se requiere token", http.StatusBadRequest)
		return
	}

	path, filename, err := h.store.Resolve(req.Token)
	if err != nil {
		http.Error(w, "token desconocido o vista previa expirada", http.StatusGone)
		return
	}

	sheet, err := ReadSheet(path)
	if err != nil {
		h.store.Release(req.Token)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := "admin"
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		actor = userID
	}

	result, err := h.committer.Commit(r.Context(), sheet, actor, filename, req.UpdateExisting, req.SyncCatalog)
	if err != nil {
		var missing *ErrMissingColumn
		if errors.As(err, &missing) {
			h.store.Release(req.Token)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("commit failed", "error", err, "archivo", filename)
		http.Error(w, "error al importar", http.StatusInternalServerError)
		return
	}

	// Archive before releasing so the workbook behind each run survives.
	if result.Imported > 0 {
		if key, err := h.archiver.Archive(r.Context(), path, filename); err != nil {
			h.logger.Warn("workbook archive failed", "error", err, "archivo", filename)
		} else if key != "" {
			h.logger.Info("workbook archived", "key", key)
		}
	}
	h.store.Release(req.Token)

	writeJSON(w, http.StatusOK, result)
}

// Cancel handles POST /api/admin/import/cancel, discarding a parked preview.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "cuerpo inválido: se requiere token", http.StatusBadRequest)
		return
	}
	h.store.Release(req.Token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "descartado"})
}

// Export handles GET /api/admin/export, streaming the catalog as xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.logger.Error("export list failed", "error", err)
		http.Error(w, "error al exportar", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("partidas_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := WriteWorkbook(w, entries); err != nil {
		h.logger.Error("export write failed", "error", err)
	}
}

// ListRuns handles GET /api/admin/import/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		http.Error(w, "error al listar importaciones", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []ImportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"importaciones": runs})
}

func parseBoolField(r *http.Request, name string) bool {
	v := r.FormValue(name)
	return v == "1" || v == "true" || v == "on"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
