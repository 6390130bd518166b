package chat

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Handler serves POST /api/chat.
type Handler struct {
	controller *Controller
	logger     *logging.Logger
}

func NewHandler(controller *Controller, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{controller: controller, logger: logger}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
	Action      *Action  `json:"action"`
	SessionID   string   `json:"session_id"`
}

// Message handles one chat turn. Anonymous visitors get a generated
// session id back so their pending actions carry to the next turn.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "cuerpo inválido", http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	sessionID := req.SessionID
	if sessionID == "" {
		if userID != "" {
			sessionID = "user:" + userID
		} else {
			sessionID = uuid.NewString()
		}
	}

	res := h.controller.Reply(r.Context(), req.Message, sessionID, userID)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		Reply:       res.Reply,
		Suggestions: res.Suggestions,
		Action:      res.Action,
		SessionID:   sessionID,
	})
}
