// Package memoryDB is the process-local index. Nothing is persisted, so the
// ingester and the server only share it when they run in the same process.
//
// UpsertBatch replaces entries by ordinal. ReplaceTopic builds the new slice
// before taking the write lock, so readers see either the old or the new
// topic, never a mix.
package memoryDB

import (
	"context"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
)

type Store struct {
	mu        sync.RWMutex
	topics    map[string][]vectorDB.Entry
	dimension int
}

func New(dimension int) *Store {
	return &Store{
		topics:    make(map[string][]vectorDB.Entry),
		dimension: dimension,
	}
}

func (s *Store) Search(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error) {
	if err := vectorDB.CheckQuery(vector, k, s.dimension); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ragErrors.FromProvider("vector_search", err)
	}
	s.mu.RLock()
	entries := s.topics[topic]
	s.mu.RUnlock()

	//entries is never mutated in place, see ReplaceTopic and UpsertBatch
	return vectorDB.Rank(entries, vector, k), nil
}

func (s *Store) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.topics[topic]
	next := make([]vectorDB.Entry, len(current), len(current)+len(chunks))
	copy(next, current)
	position := make(map[int]int, len(next))
	for i, e := range next {
		position[e.Ordinal] = i
	}
	for _, e := range vectorDB.ToEntries(chunks, vectors) {
		if i, ok := position[e.Ordinal]; ok {
			next[i] = e
			continue
		}
		position[e.Ordinal] = len(next)
		next = append(next, e)
	}
	s.topics[topic] = next
	return nil
}

func (s *Store) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	next := vectorDB.ToEntries(chunks, vectors)

	s.mu.Lock()
	s.topics[topic] = next
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }
