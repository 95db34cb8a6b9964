package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dwizi/larkbot/internal/orchestrator"
)

const defaultChatID = "http-api"

type chatRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// handleChat runs one turn through the orchestrator without the chat
// platform in between. Actions requested by the model are executed.
func (r *router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Orchestrator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "orchestrator is unavailable"})
		return
	}

	var payload chatRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	chatID := strings.TrimSpace(payload.ChatID)
	if chatID == "" {
		chatID = defaultChatID
	}

	reply := r.deps.Orchestrator.HandleMessage(req.Context(), orchestrator.Turn{ChatID: chatID, Text: text})
	writeJSON(w, http.StatusOK, map[string]any{
		"chat_id": chatID,
		"reply":   reply,
	})
}
