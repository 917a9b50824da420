package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"chat-relay/internal/models"
)

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
	Model    string               `json:"model"`
}

// HandleChat serves POST /api/chat. It validates the request, opens a
// streaming completion against the upstream provider, and re-encodes each
// upstream delta as a "data: {json}\n\n" frame on a continuously flushed,
// uncached response, terminated by the "data: [DONE]\n\n" sentinel.
//
// Failures before the first upstream byte produce a JSON error envelope with
// the appropriate status; a mid-stream failure emits one error frame and then
// closes the stream without the sentinel, which conforming consumers treat as
// an abnormal but clean end.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Invalid request body", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Messages) == 0 || req.Model == "" {
		respondError(w, http.StatusBadRequest, "messages and model are required")
		return
	}

	if m.llm == nil {
		m.logger.Error("Provider credential not configured")
		respondError(w, http.StatusInternalServerError, "provider credential not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		m.logger.Error("Response writer does not support flushing")
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Headers go out with the first frame; until then an upstream failure can
	// still be answered with a JSON error envelope.
	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		started = true
	}

	for delta, err := range m.llm.Chat(r.Context(), req.Messages, req.Model) {
		if err != nil {
			m.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			if !started {
				respondError(w, http.StatusInternalServerError, "upstream provider error")
				return
			}
			writeFrame(w, errorResponse{Error: "upstream provider error"})
			flusher.Flush()
			return
		}

		if !started {
			start()
		}
		writeFrame(w, deltaFrame{Content: delta})
		flusher.Flush()
	}

	if !started {
		start()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

type deltaFrame struct {
	Content string `json:"content"`
}

func writeFrame(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
