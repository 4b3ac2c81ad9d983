package rag_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnSearch       func(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error)
	OnUpsertBatch  func(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error
	OnReplaceTopic func(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error
	Calls          atomic.Int32
}

func (m *MockVectorDB) Search(ctx context.Context, topic string, v []float32, k int) ([]commonModels.SearchResult, error) {
	m.Calls.Add(1)
	if m.OnSearch != nil {
		return m.OnSearch(ctx, topic, v, k)
	}
	return []commonModels.SearchResult{{Text: "default context", Score: 1}}, nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	m.Calls.Add(1)
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, topic, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	m.Calls.Add(1)
	if m.OnReplaceTopic != nil {
		return m.OnReplaceTopic(ctx, topic, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) Close() error { return nil }

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
	Calls            atomic.Int32
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls.Add(1)
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	m.Calls.Add(1)
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1, 0.2}, nil
}

func (m *MockEmbedder) Dimension() int { return 2 }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (string, error)
	Calls      atomic.Int32
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls.Add(1)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

// MockLock implements jobModel.IngestLock in memory.
type MockLock struct {
	mu   sync.Mutex
	held map[string]string
}

func (m *MockLock) TryLock(ctx context.Context, topic, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = map[string]string{}
	}
	if _, ok := m.held[topic]; ok {
		return false, nil
	}
	m.held[topic] = owner
	return true, nil
}

func (m *MockLock) Unlock(ctx context.Context, topic, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[topic] == owner {
		delete(m.held, topic)
	}
	return nil
}
