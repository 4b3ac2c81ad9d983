package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string) ([]float32, error) {
	log.Debug("Answer", "step", "embedding")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, question)
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, topic string, vector []float32) ([]commonModels.SearchResult, error) {
	log.Debug("Answer", "step", "vector_search")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	results, err := s.vectorDB.Search(ctx, topic, vector, s.k)
	if err == nil && len(results) == 0 {
		log.Warn("No chunks retrieved, answering from an empty context")
	}
	return results, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, prompt string) (string, error) {
	log.Debug("Answer", "step", llm.Step)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(llm.Step, time.Since(start)) }()

	return s.llmProvider.Generate(ctx, prompt)
}

// chatFailure logs the failing step with its cause and hides both behind a
// ChatFailure. The cause stays in the chain for errors.Is.
func (s *service) chatFailure(log *logger_i.Logger, topic string, step string, err error, start time.Time) error {
	kind := ragErrors.KindOf(err)
	if kind == "" {
		kind = ragErrors.ChatFailure
	}
	log.Error("Answer failed", "step", step, "kind", string(kind), "error", err)
	metrics.CaptureChatMetrics(topic, strings.ToLower(string(kind)), time.Since(start))
	return ragErrors.New(ragErrors.ChatFailure, step, err).WithTopic(topic)
}
