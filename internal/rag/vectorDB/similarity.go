package vectorDB

import (
	"math"
	"slices"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

// Entry is a stored chunk, used by the in-process backends.
type Entry struct {
	Ordinal int
	Text    string
	Vector  []float32
}

func CheckQuery(vector []float32, k int, dimension int) error {
	if k <= 0 {
		return ragErrors.Newf(ragErrors.InvalidInput, "vector_search", "k must be positive, got %d", k)
	}
	if len(vector) != dimension {
		return ragErrors.Newf(ragErrors.Configuration, "vector_search", "query vector has dimension %d, index expects %d", len(vector), dimension)
	}
	return nil
}

func CheckBatch(chunks []commonModels.DocChunk, vectors [][]float32, dimension int) error {
	if len(chunks) != len(vectors) {
		return ragErrors.Newf(ragErrors.InvalidInput, "upsert", "mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return ragErrors.Newf(ragErrors.Configuration, "upsert", "vector %d has dimension %d, index expects %d", i, len(v), dimension)
		}
	}
	return nil
}

func ToEntries(chunks []commonModels.DocChunk, vectors [][]float32) []Entry {
	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{Ordinal: c.Ordinal, Text: c.Text, Vector: vectors[i]}
	}
	return entries
}

// Cosine returns 0 when either vector has no magnitude.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Rank scores every entry and keeps the best k. Ties keep ordinal order.
func Rank(entries []Entry, query []float32, k int) []commonModels.SearchResult {
	results := make([]commonModels.SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, commonModels.SearchResult{
			Text:    e.Text,
			Ordinal: e.Ordinal,
			Score:   Cosine(query, e.Vector),
		})
	}
	SortBestFirst(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func SortBestFirst(results []commonModels.SearchResult) {
	slices.SortStableFunc(results, func(a, b commonModels.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
}
