package hashEmbedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestDimensionIsConstant(t *testing.T) {
	e, err := New(256)
	if err != nil {
		t.Fatal(err)
	}
	texts := []string{"a", "Adam has six years of experience", "Größe", "12345 !!", "x y z"}
	vectors, err := e.BatchEmbedding(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vectors {
		if len(v) != 256 {
			t.Errorf("vector %d has length %d", i, len(v))
		}
	}
}

func TestOrderAndDeterminism(t *testing.T) {
	e, _ := New(128)
	ctx := context.Background()
	batch, err := e.BatchEmbedding(ctx, []string{"first text", "second text"})
	if err != nil {
		t.Fatal(err)
	}
	single, _ := e.GetEmbedding(ctx, "second text")
	for i := range single {
		if single[i] != batch[1][i] {
			t.Fatal("batch order does not match input order")
		}
	}
}

func TestSimilarTextsScoreHigher(t *testing.T) {
	e, _ := New(512)
	ctx := context.Background()
	doc, _ := e.GetEmbedding(ctx, "Adam has six years of experience in full-stack development")
	related, _ := e.GetEmbedding(ctx, "How many years of experience does Adam have?")
	unrelated, _ := e.GetEmbedding(ctx, "Bananas grow in tropical climates")

	if cosine(doc, related) <= cosine(doc, unrelated) {
		t.Errorf("related %.3f should beat unrelated %.3f", cosine(doc, related), cosine(doc, unrelated))
	}
}

func TestInvalidInput(t *testing.T) {
	e, _ := New(8)
	if _, err := e.BatchEmbedding(context.Background(), nil); !errors.Is(err, ragErrors.ErrInvalidInput) {
		t.Errorf("empty batch: err = %v", err)
	}
	if _, err := e.GetEmbedding(context.Background(), ""); !errors.Is(err, ragErrors.ErrInvalidInput) {
		t.Errorf("empty text: err = %v", err)
	}
	if _, err := New(0); !errors.Is(err, ragErrors.ErrConfiguration) {
		t.Errorf("zero dimension: err = %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	e, _ := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.GetEmbedding(ctx, "text"); !errors.Is(err, ragErrors.ErrTimeout) {
		t.Errorf("err = %v, want Timeout", err)
	}
}
