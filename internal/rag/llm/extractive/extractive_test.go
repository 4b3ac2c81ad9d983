package extractive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

func prompt(contextText, question string) string {
	return "You are a friendly AI assistant helping people learn about Adam's career.\n\n" +
		"Use the following pieces of context to answer the question.\n\n" +
		"Context:\n" + contextText + "\n\nQuestion: " + question + "\n\nHelpful Answer:"
}

func TestGenerate(t *testing.T) {
	career := "Adam has six years of experience in full-stack development.\n\nHe enjoys building APIs in Go."
	tests := []struct {
		name     string
		context  string
		question string
		contains string
	}{
		{"answers from context", career, "How many years of experience does Adam have?", "six"},
		{"picks the matching sentence", career, "What does Adam enjoy building?", "APIs"},
		{"refuses unrelated question", career, "What is Adam's favorite color?", NoInformation},
		{"refuses on empty context", "", "How many years of experience does Adam have?", NoInformation},
		{"refuses a question of stopwords", career, "What is it?", NoInformation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Generate(context.Background(), prompt(tt.context, tt.question))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.contains)) {
				t.Errorf("answer = %q, want it to contain %q", got, tt.contains)
			}
			if got != NoInformation && !strings.Contains(tt.context, got) {
				t.Errorf("answer %q is not taken from the context", got)
			}
		})
	}
}

func TestParsePrompt(t *testing.T) {
	ctxText, q := parsePrompt(prompt("line one\n\nline two", "Why?"))
	if ctxText != "line one\n\nline two" || q != "Why?" {
		t.Errorf("got context %q, question %q", ctxText, q)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Generate(ctx, prompt("x", "y")); !errors.Is(err, ragErrors.ErrTimeout) {
		t.Errorf("err = %v, want Timeout", err)
	}
}
