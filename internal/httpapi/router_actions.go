package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dwizi/larkbot/internal/store"
)

func (r *router) handleActions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store is unavailable"})
		return
	}
	query := req.URL.Query()
	limit := 50
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	items, err := r.deps.Store.ListActionAudits(req.Context(), store.ListActionAuditsInput{
		ChatID: query.Get("chat_id"),
		Limit:  limit,
	})
	if err != nil {
		r.deps.Logger.Error("list action audits failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list actions"})
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, actionAuditToMap(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": payload,
		"count": len(payload),
	})
}

func actionAuditToMap(item store.ActionAudit) map[string]any {
	return map[string]any{
		"id":              item.ID,
		"chat_id":         item.ChatID,
		"action":          item.Action,
		"plugin":          item.Plugin,
		"outcome":         item.Outcome,
		"category":        item.Category,
		"detail":          item.Detail,
		"created_at_unix": item.CreatedAt.Unix(),
	}
}
