package handlers

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"chat-relay/internal/models"
)

type modelsResponse struct {
	Models []models.Model `json:"models"`
}

// HandleModels serves GET /api/models with the static model catalog.
func (m Main) HandleModels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, modelsResponse{Models: models.DefaultModels()})
}

// HandleExport serves GET /api/chats/export, rendering the persisted chat
// snapshot as a single HTML document with message markdown converted to HTML.
func (m Main) HandleExport(w http.ResponseWriter, _ *http.Request) {
	if m.snapshots == nil {
		respondError(w, http.StatusNotFound, "no chat snapshot available")
		return
	}

	snapshot, ok, err := m.snapshots.LoadSnapshot()
	if err != nil {
		m.logger.Error("Failed to load snapshot", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no chat snapshot available")
		return
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><body>\n")
	for _, chat := range snapshot.Chats {
		fmt.Fprintf(&sb, "<section>\n<h2>%s</h2>\n", html.EscapeString(chat.Title))
		for _, msg := range chat.Messages {
			rendered, err := models.RenderHTML(msg.Content)
			if err != nil {
				m.logger.Error("Failed to render message",
					slog.String("messageID", msg.ID),
					slog.String(errLoggerKey, err.Error()))
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			fmt.Fprintf(&sb, "<article class=%q>\n%s</article>\n", string(msg.Role), rendered)
		}
		sb.WriteString("</section>\n")
	}
	sb.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}
