// Package chunking splits document text into bounded, overlapping chunks.
//
// Sizes are measured in runes. Every chunk holds at most maxSize runes and
// each chunk after the first starts with the last overlap runes of the one
// before it. Cut points prefer a paragraph break, then a sentence end, then
// whitespace, and only then fall back to a hard cut at maxSize. Windows that
// hold only whitespace are dropped.
package chunking

import (
	"iter"
	"strings"
	"unicode"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

// Split validates the parameters and returns a lazy sequence of
// (ordinal, chunk) pairs. The sequence can be ranged over any number of times.
// Empty or whitespace-only text yields nothing, and whitespace-only windows
// are skipped without leaving a gap in the ordinals.
func Split(text string, maxSize int, overlap int) (iter.Seq2[int, string], error) {
	if maxSize <= 0 {
		return nil, ragErrors.Newf(ragErrors.Configuration, "chunking", "chunk size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, ragErrors.Newf(ragErrors.Configuration, "chunking", "chunk overlap must be in [0, %d), got %d", maxSize, overlap)
	}

	blank := strings.TrimSpace(text) == ""
	runes := []rune(text)

	return func(yield func(int, string) bool) {
		if blank {
			return
		}
		n := len(runes)
		start := 0
		ordinal := 0
		// windows inside a long whitespace run carry no text and are dropped
		emit := func(chunk string) bool {
			if strings.TrimSpace(chunk) == "" {
				return true
			}
			ordinal++
			return yield(ordinal-1, chunk)
		}
		for {
			if n-start <= maxSize {
				emit(string(runes[start:n]))
				return
			}
			end := cutPoint(runes, start, maxSize, overlap)
			if !emit(string(runes[start:end])) {
				return
			}
			//end > start+overlap, so start always moves forward
			start = end - overlap
		}
	}, nil
}

// Chunks materialises Split for one document.
func Chunks(doc commonModels.Document, maxSize int, overlap int) ([]commonModels.DocChunk, error) {
	seq, err := Split(doc.Content, maxSize, overlap)
	if err != nil {
		return nil, err
	}
	var chunks []commonModels.DocChunk
	for ordinal, text := range seq {
		chunks = append(chunks, commonModels.DocChunk{
			Topic:   doc.Topic,
			Ordinal: ordinal,
			Text:    text,
		})
	}
	return chunks, nil
}

// cutPoint returns the exclusive end of the chunk starting at start.
func cutPoint(runes []rune, start int, maxSize int, overlap int) int {
	limit := start + maxSize
	// structural breaks are only taken if they keep the chunk reasonably full
	floor := start + max(overlap+1, maxSize/2)

	for end := limit; end >= floor; end-- {
		if end-start >= 2 && runes[end-1] == '\n' && runes[end-2] == '\n' {
			return end
		}
	}
	for end := limit; end >= floor; end-- {
		if isSentenceEnd(runes, start, end) {
			return end
		}
	}
	for end := limit; end > start+overlap; end-- {
		if unicode.IsSpace(runes[end-1]) {
			return end
		}
	}
	return limit
}

func isSentenceEnd(runes []rune, start int, end int) bool {
	if end-start < 2 || !unicode.IsSpace(runes[end-1]) {
		return false
	}
	switch runes[end-2] {
	case '.', '!', '?':
		return true
	}
	return false
}
