package vectorDB

import (
	"errors"
	"math"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRank_TiesKeepOrdinalOrder(t *testing.T) {
	entries := []Entry{
		{Ordinal: 2, Text: "c", Vector: []float32{1, 0}},
		{Ordinal: 0, Text: "a", Vector: []float32{1, 0}},
		{Ordinal: 1, Text: "b", Vector: []float32{0, 1}},
	}
	res := Rank(entries, []float32{1, 0}, 3)
	if res[0].Text != "a" || res[1].Text != "c" || res[2].Text != "b" {
		t.Errorf("order = %v", res)
	}
	if got := Rank(entries, []float32{1, 0}, 1); len(got) != 1 {
		t.Errorf("k=1 returned %d", len(got))
	}
}

func TestCheckBatchAndQuery(t *testing.T) {
	chunks := []commonModels.DocChunk{{Ordinal: 0, Text: "x"}}
	if err := CheckBatch(chunks, nil, 2); !errors.Is(err, ragErrors.ErrInvalidInput) {
		t.Errorf("count mismatch: %v", err)
	}
	if err := CheckBatch(chunks, [][]float32{{1}}, 2); !errors.Is(err, ragErrors.ErrConfiguration) {
		t.Errorf("dimension mismatch: %v", err)
	}
	if err := CheckQuery([]float32{1, 0}, 0, 2); !errors.Is(err, ragErrors.ErrInvalidInput) {
		t.Errorf("k=0: %v", err)
	}
}
