package resilience

import (
	"context"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
)

type guardedEmbedder struct {
	next  embedding.Embedder
	guard *Guard
}

func Embedder(next embedding.Embedder, guard *Guard) embedding.Embedder {
	return &guardedEmbedder{next: next, guard: guard}
}

func (e *guardedEmbedder) Dimension() int { return e.next.Dimension() }

func (e *guardedEmbedder) GetEmbedding(ctx context.Context, text string) (vector []float32, err error) {
	err = e.guard.Do(ctx, "embedding", func(ctx context.Context) error {
		vector, err = e.next.GetEmbedding(ctx, text)
		return err
	})
	return vector, err
}

func (e *guardedEmbedder) BatchEmbedding(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	err = e.guard.Do(ctx, "embedding", func(ctx context.Context) error {
		vectors, err = e.next.BatchEmbedding(ctx, texts)
		return err
	})
	return vectors, err
}

type guardedLLM struct {
	next  llm.Provider
	guard *Guard
}

func LLM(next llm.Provider, guard *Guard) llm.Provider {
	return &guardedLLM{next: next, guard: guard}
}

func (p *guardedLLM) Generate(ctx context.Context, prompt string) (answer string, err error) {
	err = p.guard.Do(ctx, llm.Step, func(ctx context.Context) error {
		answer, err = p.next.Generate(ctx, prompt)
		return err
	})
	return answer, err
}

type guardedIndex struct {
	next  vectorDB.DataProcessor
	guard *Guard
}

// Index guards the remote calls of an index. Replacing a topic is safe to
// retry because every backend stages before it swaps.
func Index(next vectorDB.DataProcessor, guard *Guard) vectorDB.DataProcessor {
	return &guardedIndex{next: next, guard: guard}
}

func (d *guardedIndex) Search(ctx context.Context, topic string, vector []float32, k int) (results []commonModels.SearchResult, err error) {
	err = d.guard.Do(ctx, "vector_search", func(ctx context.Context) error {
		results, err = d.next.Search(ctx, topic, vector, k)
		return err
	})
	return results, err
}

func (d *guardedIndex) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	return d.guard.Do(ctx, "upsert", func(ctx context.Context) error {
		return d.next.UpsertBatch(ctx, topic, chunks, vectors)
	})
}

func (d *guardedIndex) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	return d.guard.Do(ctx, "upsert", func(ctx context.Context) error {
		return d.next.ReplaceTopic(ctx, topic, chunks, vectors)
	})
}

func (d *guardedIndex) Close() error {
	return d.next.Close()
}
