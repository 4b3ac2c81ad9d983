package embedding

import (
	"context"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

// Embedder maps text to fixed-length vectors. Output order matches input
// order and every vector has Dimension() entries.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// CheckInput rejects an empty batch or a blank entry before any network call.
func CheckInput(texts []string) error {
	if len(texts) == 0 {
		return ragErrors.Newf(ragErrors.InvalidInput, "embedding", "no texts to embed")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return ragErrors.Newf(ragErrors.InvalidInput, "embedding", "text %d is empty", i)
		}
	}
	return nil
}

// CheckVectors verifies a provider response against the request.
func CheckVectors(requested int, vectors [][]float32, dimension int) error {
	if len(vectors) != requested {
		return ragErrors.Newf(ragErrors.ProviderUnavailable, "embedding", "provider returned %d vectors for %d texts", len(vectors), requested)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return ragErrors.Newf(ragErrors.Configuration, "embedding", "vector %d has dimension %d, configured %d", i, len(v), dimension)
		}
	}
	return nil
}
