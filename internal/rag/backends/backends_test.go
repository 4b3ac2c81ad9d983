package backends

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/data/store"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/sqliteDB"
	"github.com/alicebob/miniredis/v2"
)

func offlineConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Embedding.Provider = config.ProviderHash
	cfg.Embedding.Dimension = 128
	cfg.LLM.Provider = config.ProviderExtractive
	cfg.VectorStore.Backend = config.BackendMemory
	cfg.Retrieval.Timeout = time.Second
	return cfg
}

func cfgDocument(topic, content string) commonModels.Document {
	return commonModels.Document{Topic: topic, Name: topic + ".md", Content: content, ContentType: commonModels.MD}
}

func TestBuild_OfflineStack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := offlineConfig()
	p, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	if _, ok := p.Index.(*memoryDB.Store); !ok {
		t.Errorf("index is %T, want memory store", p.Index)
	}
	if _, ok := p.Lock.(*store.InMemoryIngestLock); !ok {
		t.Errorf("lock is %T, want in-memory lock", p.Lock)
	}
	if p.Embedder.Dimension() != 128 {
		t.Errorf("dimension = %d", p.Embedder.Dimension())
	}

	s, err := NewService(cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.IngestDocument(ctx, cfgDocument("career", "Adam has six years of experience in full-stack development")); err != nil {
		t.Fatal(err)
	}
	answer, err := s.Answer(ctx, "How many years of experience does Adam have?", "career")
	if err != nil || !strings.Contains(answer, "six") {
		t.Errorf("answer = %q, %v", answer, err)
	}
}

func TestBuild_SQLiteBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := offlineConfig()
	cfg.VectorStore.Backend = config.BackendSQLite
	cfg.VectorStore.SQLitePath = t.TempDir() + "/index.db"

	p, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()
	if _, ok := p.Index.(*sqliteDB.Store); !ok {
		t.Errorf("index is %T, want sqlite store", p.Index)
	}
}

func TestBuild_RedisStores(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := offlineConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	p, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := p.Lock.(*store.RedisIngestLock); !ok {
		t.Errorf("lock is %T, want redis lock", p.Lock)
	}
	if _, ok := p.Jobs.(*store.RedisJobStore); !ok {
		t.Errorf("jobs is %T, want redis job store", p.Jobs)
	}
}

func TestBuild_InvalidConfiguration(t *testing.T) {
	cfg := offlineConfig()
	cfg.Retrieval.K = 0
	cfg.VectorStore.Backend = "postgres"

	_, err := Build(context.Background(), cfg)
	if !errors.Is(err, ragErrors.ErrConfiguration) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	for _, want := range []string{"retrieval.k", "postgres"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestBuild_WeaviateRejectsCollidingTopics(t *testing.T) {
	cfg := offlineConfig()
	cfg.VectorStore.Backend = config.BackendWeaviate
	cfg.VectorStore.Weaviate.Host = "127.0.0.1:1"
	cfg.Topics = []commonModels.Topic{
		{Name: "fun-facts", Description: "Adam's fun facts"},
		{Name: "fun--facts", Description: "Adam's hobbies"},
	}

	_, err := Build(context.Background(), cfg)
	if !errors.Is(err, ragErrors.ErrConfiguration) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "PortfolioFunFacts") {
		t.Errorf("error %q does not name the shared class", err)
	}
}
