package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

/*
Service is the only thing handlers, workers and the MCP tool see. The
private service struct holds the providers; NewService wires them once at
startup and the same instance is shared by every request. Nothing in it is
mutated after construction, so concurrent Answers need no locking.
*/
type Service interface {
	// Answer embeds the question, retrieves the top k chunks of the topic and
	// asks the model, returning its text verbatim. Unknown topics and empty
	// questions fail with InvalidInput before any provider is called. Any
	// later failure is a ChatFailure wrapping the failing step's error.
	Answer(ctx context.Context, question string, topic string) (string, error)

	// IngestDocument replaces the index of doc.Topic with doc's chunks.
	IngestDocument(ctx context.Context, doc commonModels.Document) (ingest.Report, error)

	Topics() []string
}

type Options struct {
	Embedder embedding.Embedder
	Index    vectorDB.DataProcessor
	LLM      llm.Provider
	Lock     jobModel.IngestLock
	Topics   []commonModels.Topic
	K        int
	Timeout  time.Duration
	Ingest   ingest.Options
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	pipeline    *ingest.Pipeline
	topics      *TopicRegistry
	k           int
	timeout     time.Duration
	logger      *logger_i.Logger
}

func NewService(opts Options) (Service, error) {
	if opts.Embedder == nil || opts.Index == nil || opts.LLM == nil || opts.Lock == nil {
		return nil, ragErrors.New(ragErrors.Configuration, "service", errors.New("embedder, index, llm and ingest lock are required"))
	}
	if opts.K <= 0 {
		return nil, ragErrors.Newf(ragErrors.Configuration, "service", "k must be positive, got %d", opts.K)
	}
	topics, err := NewTopicRegistry(opts.Topics)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.QueryTimeout
	}
	return &service{
		vectorDB:    opts.Index,
		llmProvider: opts.LLM,
		embedder:    opts.Embedder,
		pipeline:    ingest.NewPipeline(opts.Embedder, opts.Index, opts.Lock, opts.Ingest),
		topics:      topics,
		k:           opts.K,
		timeout:     timeout,
		logger:      logger_i.NewLogger("rag_service"),
	}, nil
}

func (s *service) Answer(ctx context.Context, question string, topic string) (string, error) {
	start := time.Now()
	log := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("topic", topic)

	t, err := s.topics.Resolve(topic)
	if err != nil {
		log.Warn("Rejected question for unknown topic")
		metrics.CaptureChatMetrics("unknown", "invalid_input", time.Since(start))
		return "", err
	}
	if strings.TrimSpace(question) == "" {
		metrics.CaptureChatMetrics(topic, "invalid_input", time.Since(start))
		return "", ragErrors.Newf(ragErrors.InvalidInput, "question", "question is empty").WithTopic(topic)
	}

	processContext, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vector, err := s.executeEmbeddingStep(processContext, log, question)
	if err != nil {
		return "", s.chatFailure(log, topic, "embedding", err, start)
	}

	results, err := s.executeVectorSearchStep(processContext, log, topic, vector)
	if err != nil {
		return "", s.chatFailure(log, topic, "vector_search", err, start)
	}

	prompt, err := ComposePrompt(t.Description, AssembleContext(results), question)
	if err != nil {
		return "", s.chatFailure(log, topic, "compose_prompt", err, start)
	}

	answer, err := s.executeLLMStep(processContext, log, prompt)
	if err != nil {
		return "", s.chatFailure(log, topic, llm.Step, err, start)
	}
	if strings.TrimSpace(answer) == "" {
		return "", s.chatFailure(log, topic, llm.Step, errors.New("model returned an empty answer"), start)
	}

	metrics.CaptureChatMetrics(topic, "ok", time.Since(start))
	log.Info("Question answered", "retrieved", len(results), "duration", time.Since(start))
	return answer, nil
}

func (s *service) IngestDocument(ctx context.Context, doc commonModels.Document) (ingest.Report, error) {
	if _, err := s.topics.Resolve(doc.Topic); err != nil {
		return ingest.Report{Topic: doc.Topic, Document: doc.Name}, err
	}
	ingestContext, cancel := context.WithTimeout(ctx, config.IngestTimeout)
	defer cancel()
	return s.pipeline.Ingest(ingestContext, doc)
}

func (s *service) Topics() []string {
	return s.topics.Names()
}
