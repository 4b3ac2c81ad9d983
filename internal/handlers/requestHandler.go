package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/api"
	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/job"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

const (
	msgMessageRequired = "Message is required"
	msgChatFailed      = "Failed to process chat request"
)

type Handler struct {
	service   rag.Service
	jobs      *job.Service
	uploadDir string
	logger    *logger_i.Logger
}

// NewHandler serves chat from service. jobs may be nil when asynchronous
// ingestion is disabled.
func NewHandler(service rag.Service, jobs *job.Service, uploadDir string) *Handler {
	return &Handler{
		service:   service,
		jobs:      jobs,
		uploadDir: uploadDir,
		logger:    logger_i.NewLogger("request_handler"),
	}
}

// Health godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"}, h.logger)
}

// Topics godoc
// @Summary      List configured topics
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  api.TopicsResponse
// @Router       /api/topics [get]
func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.TopicsResponse{Topics: h.service.Topics()}, h.logger)
}

// Chat godoc
// @Summary      Ask a question about a topic
// @Description  Answers a question from the documents ingested for one topic.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest    true  "Question and topic"
// @Success      200      {object}  api.ChatResponse   "Model answer"
// @Failure      400      {object}  api.ErrorResponse  "Missing message or unknown topic"
// @Failure      500      {object}  api.ErrorResponse  "Any pipeline failure"
// @Router       /api/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithTrace(r.Context(), config.TRACE_ID_KEY)

	request, ok := decodeChatRequest(w, r)
	if !ok {
		log.Warn("Bad chat request")
		h.writeError(w, http.StatusBadRequest, msgMessageRequired)
		return
	}

	answer, err := h.service.Answer(r.Context(), request.Message, request.Topic)
	switch {
	case err == nil:
		writeJsonResponse(w, http.StatusOK, api.ChatResponse{Response: answer}, h.logger)
	// may wrap a provider's own InvalidInput
	case errors.Is(err, ragErrors.ErrChatFailure):
		log.Error("Chat error", "topic", request.Topic, "error", err)
		h.writeError(w, http.StatusInternalServerError, msgChatFailed)
	case errors.Is(err, ragErrors.ErrInvalidTopic):
		h.writeError(w, http.StatusBadRequest, h.topicMessage())
	case errors.Is(err, ragErrors.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, msgMessageRequired)
	default:
		log.Error("Chat error", "topic", request.Topic, "error", err)
		h.writeError(w, http.StatusInternalServerError, msgChatFailed)
	}
}

func (h *Handler) topicMessage() string {
	return "Topic must be one of: " + strings.Join(h.service.Topics(), ", ")
}
