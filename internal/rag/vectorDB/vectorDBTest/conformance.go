// Package vectorDBTest holds the behaviour every vectorDB backend must share.
// Backend packages call Run from their own tests.
package vectorDBTest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
)

const Dimension = 4

// Factory returns an empty index with vectors of length Dimension.
type Factory func(t *testing.T) vectorDB.DataProcessor

func chunks(topic string, texts ...string) []commonModels.DocChunk {
	out := make([]commonModels.DocChunk, len(texts))
	for i, text := range texts {
		out[i] = commonModels.DocChunk{Topic: topic, Ordinal: i, Text: text}
	}
	return out
}

// axis vectors make the expected ranking obvious
var (
	east  = []float32{1, 0, 0, 0}
	north = []float32{0, 1, 0, 0}
	up    = []float32{0, 0, 1, 0}
	ne    = []float32{0.9, 0.1, 0, 0}
)

func Run(t *testing.T, newIndex Factory) {
	ctx := context.Background()

	t.Run("empty index returns nothing", func(t *testing.T) {
		db := newIndex(t)
		res, err := db.Search(ctx, "career", east, 3)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(res) != 0 {
			t.Errorf("got %d results from an empty index", len(res))
		}
	})

	t.Run("non-positive k is invalid input", func(t *testing.T) {
		db := newIndex(t)
		for _, k := range []int{0, -1} {
			if _, err := db.Search(ctx, "career", east, k); !errors.Is(err, ragErrors.ErrInvalidInput) {
				t.Errorf("k=%d: err = %v, want InvalidInput", k, err)
			}
		}
	})

	t.Run("results are best-first and bounded by k", func(t *testing.T) {
		db := newIndex(t)
		err := db.ReplaceTopic(ctx, "career", chunks("career", "east", "north", "up", "north-east"), [][]float32{east, north, up, ne})
		if err != nil {
			t.Fatalf("ReplaceTopic: %v", err)
		}
		res, err := db.Search(ctx, "career", east, 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(res) != 2 {
			t.Fatalf("got %d results, want 2", len(res))
		}
		if res[0].Text != "east" || res[1].Text != "north-east" {
			t.Errorf("ranking = %q, %q", res[0].Text, res[1].Text)
		}
		for i := 1; i < len(res); i++ {
			if res[i].Score > res[i-1].Score {
				t.Errorf("scores not non-increasing: %v", res)
			}
		}
	})

	t.Run("topics are isolated", func(t *testing.T) {
		db := newIndex(t)
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "career fact"), [][]float32{east}); err != nil {
			t.Fatal(err)
		}
		if err := db.ReplaceTopic(ctx, "funfacts", chunks("funfacts", "fun fact"), [][]float32{north}); err != nil {
			t.Fatal(err)
		}
		for _, q := range [][]float32{east, north, up} {
			res, err := db.Search(ctx, "funfacts", q, 10)
			if err != nil {
				t.Fatal(err)
			}
			for _, r := range res {
				if r.Text != "fun fact" {
					t.Errorf("funfacts query returned %q", r.Text)
				}
			}
		}
	})

	t.Run("replace does not grow duplicates", func(t *testing.T) {
		db := newIndex(t)
		for run := 0; run < 3; run++ {
			if err := db.ReplaceTopic(ctx, "career", chunks("career", "a", "b"), [][]float32{east, north}); err != nil {
				t.Fatalf("run %d: %v", run, err)
			}
		}
		res, err := db.Search(ctx, "career", east, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 2 {
			t.Errorf("got %d results after repeated replace, want 2", len(res))
		}
	})

	t.Run("replace drops entries missing from the new content", func(t *testing.T) {
		db := newIndex(t)
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "old one", "old two"), [][]float32{east, north}); err != nil {
			t.Fatal(err)
		}
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "new"), [][]float32{up}); err != nil {
			t.Fatal(err)
		}
		res, err := db.Search(ctx, "career", east, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 1 || res[0].Text != "new" {
			t.Errorf("got %v, want only the new entry", res)
		}
	})

	t.Run("upsert replaces by ordinal", func(t *testing.T) {
		db := newIndex(t)
		if err := db.UpsertBatch(ctx, "career", chunks("career", "first", "second"), [][]float32{east, north}); err != nil {
			t.Fatal(err)
		}
		updated := []commonModels.DocChunk{{Topic: "career", Ordinal: 1, Text: "second v2"}}
		if err := db.UpsertBatch(ctx, "career", updated, [][]float32{north}); err != nil {
			t.Fatal(err)
		}
		res, err := db.Search(ctx, "career", north, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 2 || res[0].Text != "second v2" {
			t.Errorf("got %v", res)
		}
	})

	t.Run("failed replace keeps previous content", func(t *testing.T) {
		db := newIndex(t)
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "kept"), [][]float32{east}); err != nil {
			t.Fatal(err)
		}
		bad := [][]float32{{1, 2}}
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "broken"), bad); !errors.Is(err, ragErrors.ErrConfiguration) {
			t.Fatalf("err = %v, want ConfigurationError", err)
		}
		res, err := db.Search(ctx, "career", east, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 1 || res[0].Text != "kept" {
			t.Errorf("got %v, want the previous content", res)
		}
	})

	t.Run("query dimension mismatch is a configuration error", func(t *testing.T) {
		db := newIndex(t)
		if _, err := db.Search(ctx, "career", []float32{1, 0}, 1); !errors.Is(err, ragErrors.ErrConfiguration) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("concurrent readers during replace", func(t *testing.T) {
		db := newIndex(t)
		if err := db.ReplaceTopic(ctx, "career", chunks("career", "v0"), [][]float32{east}); err != nil {
			t.Fatal(err)
		}
		done := make(chan error, 8)
		for r := 0; r < 8; r++ {
			go func() {
				for i := 0; i < 20; i++ {
					res, err := db.Search(ctx, "career", east, 1)
					if err != nil {
						done <- err
						return
					}
					if len(res) != 1 {
						done <- fmt.Errorf("reader saw %d results", len(res))
						return
					}
				}
				done <- nil
			}()
		}
		for v := 1; v <= 5; v++ {
			if err := db.ReplaceTopic(ctx, "career", chunks("career", fmt.Sprintf("v%d", v)), [][]float32{east}); err != nil {
				t.Fatal(err)
			}
		}
		for r := 0; r < 8; r++ {
			if err := <-done; err != nil {
				t.Error(err)
			}
		}
	})
}
