// Package hashEmbedding is an offline embedder based on feature hashing.
//
// Each lowercased word is hashed into one of Dimension buckets with a hashed
// sign and the result is L2 normalised, so texts sharing vocabulary have a
// high cosine similarity. It needs no network and is deterministic, which
// makes it the embedder of choice for tests and local demos.
package hashEmbedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

type client struct {
	dimension int
}

func New(dimension int) (embedding.Embedder, error) {
	if dimension <= 0 {
		return nil, ragErrors.Newf(ragErrors.Configuration, "embedding", "dimension must be positive, got %d", dimension)
	}
	return &client{dimension: dimension}, nil
}

func (c *client) Dimension() int { return c.dimension }

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.CheckInput(texts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ragErrors.FromProvider("embedding", err)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.vector(t)
	}
	return out, nil
}

func (c *client) vector(text string) []float32 {
	v := make([]float32, c.dimension)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		bucket := sum % uint64(c.dimension)
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
