package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/akolanti/PortfolioRAG/internal/adapter"
	"github.com/akolanti/PortfolioRAG/internal/api"
	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

const maxChatBodySize = 1 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}, log *logger_i.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// the status line is already out
		log.Error("Error encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(message), h.logger)
}

// decodeChatRequest accepts a body whose message is a non-empty JSON string.
// A topic of the wrong type decodes as empty and is rejected later as an
// unknown topic.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (api.ChatRequest, bool) {
	var raw struct {
		Message json.RawMessage `json:"message"`
		Topic   json.RawMessage `json:"topic"`
	}
	var request api.ChatRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodySize)).Decode(&raw); err != nil {
		return request, false
	}
	if err := json.Unmarshal(raw.Message, &request.Message); err != nil || request.Message == "" {
		return request, false
	}
	if len(raw.Topic) > 0 {
		_ = json.Unmarshal(raw.Topic, &request.Topic)
	}
	return request, true
}

func traceId(ctx context.Context) string {
	if v, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		return v
	}
	return ""
}

func getTargetDirectory(dir string) (string, error) {
	if dir == "" {
		dir = "temporary_data"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
