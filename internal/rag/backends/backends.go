// Package backends turns configuration into the providers a rag.Service runs
// on. Remote clients are process-wide and are closed when the context passed
// to Build is done.
package backends

import (
	"context"
	"fmt"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/customHttpClient"
	"github.com/akolanti/PortfolioRAG/internal/data/redisStore"
	"github.com/akolanti/PortfolioRAG/internal/data/store"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm/extractive"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm/gemini"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/PortfolioRAG/internal/rag/resilience"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/sqliteDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/weaviateDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

type Providers struct {
	Embedder embedding.Embedder
	Index    vectorDB.DataProcessor
	LLM      llm.Provider
	Lock     jobModel.IngestLock
	Jobs     jobModel.JobStore
}

// Build validates cfg and wires every provider it names. Remote providers are
// wrapped in a resilience guard each.
func Build(ctx context.Context, cfg *config.AppConfig) (*Providers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("backends")

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	index, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	lock, jobs := buildStores(ctx, cfg, logger)

	logger.Info("Providers ready",
		"embedding", cfg.Embedding.Provider,
		"llm", cfg.LLM.Provider,
		"vector_store", cfg.VectorStore.Backend,
		"redis", cfg.Redis.Enabled)

	return &Providers{Embedder: embedder, Index: index, LLM: provider, Lock: lock, Jobs: jobs}, nil
}

// NewService builds the one service instance shared by every caller.
func NewService(cfg *config.AppConfig, p *Providers) (rag.Service, error) {
	return rag.NewService(rag.Options{
		Embedder: p.Embedder,
		Index:    p.Index,
		LLM:      p.LLM,
		Lock:     p.Lock,
		Topics:   cfg.Topics,
		K:        cfg.Retrieval.K,
		Timeout:  cfg.Retrieval.Timeout,
		Ingest: ingest.Options{
			ChunkSize:        cfg.Chunking.Size,
			ChunkOverlap:     cfg.Chunking.Overlap,
			BatchSize:        cfg.Embedding.BatchSize,
			BatchesPerSecond: cfg.Embedding.BatchesPerSecond,
		},
	})
}

func (p *Providers) Close() error {
	return p.Index.Close()
}

func buildEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case config.ProviderHash:
		return hashEmbedding.New(ec.Dimension)
	case config.ProviderOpenAI:
		e := openaiEmbedding.GetOpenAIEmbeddingClient(openaiEmbedding.Options{
			APIKey:     cfg.Credentials.OpenAIAPIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimension:  ec.Dimension,
			HTTPClient: customHttpClient.Get(),
		})
		return resilience.Embedder(e, resilience.NewGuard("openai_embedding", resilience.DefaultOptions())), nil
	case config.ProviderGemini:
		e, err := googleEmbedding.GetGoogleEmbeddingClient(ctx, googleEmbedding.Options{
			APIKey:     cfg.Credentials.GoogleAPIKey,
			Model:      ec.Model,
			Dimension:  ec.Dimension,
			BaseURL:    ec.BaseURL,
			HTTPClient: customHttpClient.Get(),
		})
		if err != nil {
			return nil, err
		}
		return resilience.Embedder(e, resilience.NewGuard("gemini_embedding", resilience.DefaultOptions())), nil
	}
	return nil, ragErrors.Newf(ragErrors.Configuration, "embedding", "unknown embedding provider %q", ec.Provider)
}

func buildLLM(ctx context.Context, cfg *config.AppConfig) (llm.Provider, error) {
	lc := cfg.LLM
	switch lc.Provider {
	case config.ProviderExtractive:
		return extractive.New(), nil
	case config.ProviderOpenAI:
		p := openaiLLM.GetOpenAIChatClient(openaiLLM.Options{
			APIKey:      cfg.Credentials.OpenAIAPIKey,
			BaseURL:     lc.BaseURL,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			HTTPClient:  customHttpClient.Get(),
		})
		return resilience.LLM(p, resilience.NewGuard("openai_chat", resilience.DefaultOptions())), nil
	case config.ProviderGemini:
		p, err := gemini.GetGeminiClient(ctx, gemini.Options{
			APIKey:      cfg.Credentials.GoogleAPIKey,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			BaseURL:     lc.BaseURL,
			HTTPClient:  customHttpClient.Get(),
		})
		if err != nil {
			return nil, err
		}
		return resilience.LLM(p, resilience.NewGuard("gemini_chat", resilience.DefaultOptions())), nil
	}
	return nil, ragErrors.Newf(ragErrors.Configuration, llm.Step, "unknown llm provider %q", lc.Provider)
}

func buildIndex(ctx context.Context, cfg *config.AppConfig) (vectorDB.DataProcessor, error) {
	vs := cfg.VectorStore
	dim := cfg.Embedding.Dimension
	switch vs.Backend {
	case config.BackendMemory:
		return memoryDB.New(dim), nil
	case config.BackendSQLite:
		return sqliteDB.GetSQLiteStore(ctx, vs.SQLitePath, dim)
	case config.BackendQdrant:
		s, err := qdrantDB.GetQdrantStore(ctx, qdrantDB.Options{
			Host:      vs.Qdrant.Host,
			Port:      vs.Qdrant.Port,
			APIKey:    vs.Qdrant.APIKey,
			UseTLS:    vs.Qdrant.UseTLS,
			PoolSize:  vs.Qdrant.PoolSize,
			IndexName: vs.IndexName,
			Dimension: dim,
		})
		if err != nil {
			return nil, err
		}
		return resilience.Index(s, resilience.NewGuard("qdrant", resilience.DefaultOptions())), nil
	case config.BackendWeaviate:
		if err := weaviateDB.CheckTopics(vs.Weaviate.ClassPrefix, cfg.TopicNames()); err != nil {
			return nil, err
		}
		s, err := weaviateDB.GetWeaviateStore(ctx, weaviateDB.Options{
			Host:        vs.Weaviate.Host,
			Scheme:      vs.Weaviate.Scheme,
			APIKey:      vs.Weaviate.APIKey,
			ClassPrefix: vs.Weaviate.ClassPrefix,
			Dimension:   dim,
			HTTPClient:  customHttpClient.Get(),
		})
		if err != nil {
			return nil, err
		}
		return resilience.Index(s, resilience.NewGuard("weaviate", resilience.DefaultOptions())), nil
	}
	return nil, ragErrors.New(ragErrors.Configuration, "vector_store", fmt.Errorf("unknown backend %q", vs.Backend))
}

// buildStores prefers Redis and falls back to process-local stores when Redis
// is disabled or offline.
func buildStores(ctx context.Context, cfg *config.AppConfig, logger *logger_i.Logger) (jobModel.IngestLock, jobModel.JobStore) {
	if cfg.Redis.Enabled {
		opts := redisStore.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password}
		lock, lockErr := store.GetRedisIngestLock(ctx, opts)
		jobs, jobsErr := store.GetRedisJobStore(ctx, opts)
		if lockErr == nil && jobsErr == nil {
			return lock, jobs
		}
		logger.Warn("Redis unavailable, using in-memory job store and ingest lock", "lockError", lockErr, "jobStoreError", jobsErr)
	}
	return store.NewInMemoryIngestLock(), store.InitInMemoryJobStore()
}
