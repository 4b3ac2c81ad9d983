package vectorDB

import (
	"context"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
)

// DataProcessor is a set of per-topic vector indexes. Topics never share
// entries. Search on a topic that was never ingested returns no results.
type DataProcessor interface {
	// Search returns at most k entries best-first by cosine similarity.
	Search(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error)

	// UpsertBatch adds entries, replacing any with the same ordinal.
	UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error

	// ReplaceTopic swaps the whole topic for the given entries. On error the
	// previous content stays queryable.
	ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error

	Close() error
}
