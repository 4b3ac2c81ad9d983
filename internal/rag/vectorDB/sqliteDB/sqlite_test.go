package sqliteDB

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/vectorDBTest"
)

func newTestStore(t *testing.T, path string, dimension int) *Store {
	t.Helper()
	store, err := New(context.Background(), path, dimension)
	if err != nil {
		t.Fatalf("New(%s): %v", path, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreConformance(t *testing.T) {
	vectorDBTest.Run(t, func(t *testing.T) vectorDB.DataProcessor {
		return newTestStore(t, filepath.Join(t.TempDir(), "index.db"), vectorDBTest.Dimension)
	})
}

func TestContentSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	ctx := context.Background()

	first := newTestStore(t, path, 3)
	chunks := []commonModels.DocChunk{{Topic: "career", Ordinal: 0, Text: "Adam has six years of experience"}}
	if err := first.ReplaceTopic(ctx, "career", chunks, [][]float32{{0.25, -1.5, 3}}); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := newTestStore(t, path, 3)
	res, err := second.Search(ctx, "career", []float32{0.25, -1.5, 3}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Text != chunks[0].Text {
		t.Fatalf("got %v", res)
	}
	if res[0].Score < 0.999 {
		t.Errorf("score = %v, vector did not round-trip", res[0].Score)
	}
}

func TestDimensionMismatchOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	store := newTestStore(t, path, 3)
	store.Close()

	_, err := New(context.Background(), path, 1536)
	if !errors.Is(err, ragErrors.ErrConfiguration) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1, -1, 3.1415927, 1e-8}
	out := decodeVector(encodeVector(in))
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %v != %v", i, in[i], out[i])
		}
	}
}
