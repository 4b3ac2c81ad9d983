package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm/extractive"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB/memoryDB"
)

var testTopics = []commonModels.Topic{
	{Name: "career", Description: "Adam's career, experience, and professional background"},
	{Name: "funfacts", Description: "Adam's fun facts, personal interests, and personality"},
}

func traceCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func newMockService(t *testing.T, e *MockEmbedder, v *MockVectorDB, l *MockLLM) rag.Service {
	t.Helper()
	s, err := rag.NewService(rag.Options{
		Embedder: e, Index: v, LLM: l, Lock: &MockLock{},
		Topics: testTopics, K: 4, Timeout: time.Second,
		Ingest: ingest.Options{ChunkSize: 500, ChunkOverlap: 50, BatchSize: 100},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

// newOfflineService wires the three offline providers.
func newOfflineService(t *testing.T) rag.Service {
	t.Helper()
	emb, err := hashEmbedding.New(256)
	if err != nil {
		t.Fatal(err)
	}
	s, err := rag.NewService(rag.Options{
		Embedder: emb, Index: memoryDB.New(256), LLM: extractive.New(), Lock: &MockLock{},
		Topics: testTopics, K: config.DefaultTopK, Timeout: time.Second,
		Ingest: ingest.Options{ChunkSize: config.DefaultChunkSize, ChunkOverlap: config.DefaultChunkOverlap, BatchSize: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func ingestText(t *testing.T, s rag.Service, topic, content string) ingest.Report {
	t.Helper()
	report, err := s.IngestDocument(traceCtx(), commonModels.Document{Topic: topic, Name: topic + ".md", Content: content})
	if err != nil {
		t.Fatalf("IngestDocument(%s): %v", topic, err)
	}
	return report
}

func TestAnswer_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		setupMocks   func(e *MockEmbedder, v *MockVectorDB, l *MockLLM)
		expectAnswer string
		expectStep   string
		expectKinds  []error
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					return "final answer", nil
				}
			},
			expectAnswer: "final answer",
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				e.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, ragErrors.New(ragErrors.ProviderUnavailable, "embedding", errors.New("api limit"))
				}
			},
			expectStep:  "embedding",
			expectKinds: []error{ragErrors.ErrChatFailure, ragErrors.ErrProviderUnavailable},
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, topic string, vec []float32, k int) ([]commonModels.SearchResult, error) {
					return nil, ragErrors.New(ragErrors.ProviderUnavailable, "vector_search", errors.New("db down"))
				}
			},
			expectStep:  "vector_search",
			expectKinds: []error{ragErrors.ErrChatFailure, ragErrors.ErrProviderUnavailable},
		},
		{
			name: "Failure_LLM_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			expectStep:  "llm_generation",
			expectKinds: []error{ragErrors.ErrChatFailure},
		},
		{
			name: "Failure_Empty_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					return "  \n", nil
				}
			},
			expectStep:  "llm_generation",
			expectKinds: []error{ragErrors.ErrChatFailure},
		},
		{
			name: "Failure_Timeout",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					<-ctx.Done()
					return "", ragErrors.FromProvider("llm_generation", ctx.Err())
				}
			},
			expectStep:  "llm_generation",
			expectKinds: []error{ragErrors.ErrChatFailure, ragErrors.ErrTimeout},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			mVec := &MockVectorDB{}
			mLLM := &MockLLM{}
			tt.setupMocks(mEmbed, mVec, mLLM)

			s := newMockService(t, mEmbed, mVec, mLLM)
			answer, err := s.Answer(traceCtx(), "test question", "career")

			if tt.expectAnswer != "" {
				if err != nil || answer != tt.expectAnswer {
					t.Fatalf("got %q, %v; want %q", answer, err, tt.expectAnswer)
				}
				return
			}
			if answer != "" {
				t.Errorf("failed call returned answer %q", answer)
			}
			for _, kind := range tt.expectKinds {
				if !errors.Is(err, kind) {
					t.Errorf("err = %v, want it to match %v", err, kind)
				}
			}
			var rerr *ragErrors.Error
			if !errors.As(err, &rerr) || rerr.Step != tt.expectStep || rerr.Topic != "career" {
				t.Errorf("err = %#v, want step %q and topic career", rerr, tt.expectStep)
			}
		})
	}
}

func TestAnswer_PromptCarriesContextAndTopicPhrase(t *testing.T) {
	var got string
	mVec := &MockVectorDB{OnSearch: func(ctx context.Context, topic string, v []float32, k int) ([]commonModels.SearchResult, error) {
		if k != 4 || topic != "funfacts" {
			t.Errorf("search topic=%s k=%d", topic, k)
		}
		return []commonModels.SearchResult{{Text: "first", Score: 0.9}, {Text: "second", Score: 0.5}}, nil
	}}
	mLLM := &MockLLM{OnGenerate: func(ctx context.Context, prompt string) (string, error) {
		got = prompt
		return "ok", nil
	}}
	s := newMockService(t, &MockEmbedder{}, mVec, mLLM)
	if _, err := s.Answer(traceCtx(), "Does Adam surf?", "funfacts"); err != nil {
		t.Fatal(err)
	}

	want := "You are a friendly AI assistant helping people learn about Adam's fun facts, personal interests, and personality.\n\n" +
		"Use the following pieces of context to answer the question. If you don't know the answer based on the provided context, just say that you don't have that information available.\n\n" +
		"Context:\nfirst\n\nsecond\n\n" +
		"Question: Does Adam surf?\n\n" +
		"Helpful Answer:"
	if got != want {
		t.Errorf("prompt mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestAnswer_EmptyRetrievalStillAsksTheModel(t *testing.T) {
	mVec := &MockVectorDB{OnSearch: func(context.Context, string, []float32, int) ([]commonModels.SearchResult, error) {
		return nil, nil
	}}
	mLLM := &MockLLM{OnGenerate: func(ctx context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "Context:\n\n\nQuestion:") {
			t.Errorf("expected an empty context section, got %q", prompt)
		}
		return "I don't have that information available.", nil
	}}
	s := newMockService(t, &MockEmbedder{}, mVec, mLLM)
	if _, err := s.Answer(traceCtx(), "anything", "career"); err != nil {
		t.Fatal(err)
	}
}

// Scenario 3 and the empty question case: rejected before any provider call.
func TestAnswer_InvalidInputBeforeAnyProviderCall(t *testing.T) {
	tests := []struct {
		name     string
		question string
		topic    string
		invalid  bool
	}{
		{"unknown topic", "How many years?", "invalid-topic", true},
		{"empty topic", "How many years?", "", true},
		{"empty question", "   ", "career", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed, mVec, mLLM := &MockEmbedder{}, &MockVectorDB{}, &MockLLM{}
			s := newMockService(t, mEmbed, mVec, mLLM)

			_, err := s.Answer(traceCtx(), tt.question, tt.topic)
			if !errors.Is(err, ragErrors.ErrInvalidInput) {
				t.Errorf("err = %v, want InvalidInput", err)
			}
			if errors.Is(err, ragErrors.ErrInvalidTopic) != tt.invalid {
				t.Errorf("ErrInvalidTopic match = %v, want %v", !tt.invalid, tt.invalid)
			}
			if errors.Is(err, ragErrors.ErrChatFailure) {
				t.Error("caller errors must not be reported as ChatFailure")
			}
			if n := mEmbed.Calls.Load() + mVec.Calls.Load() + mLLM.Calls.Load(); n != 0 {
				t.Errorf("%d provider calls made", n)
			}
		})
	}
}

// Scenario 1
func TestEndToEnd_AnswersFromIngestedCareer(t *testing.T) {
	s := newOfflineService(t)
	report := ingestText(t, s, "career", "Adam has six years of experience in full-stack development")
	if report.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", report.Chunks)
	}

	answer, err := s.Answer(traceCtx(), "How many years of experience does Adam have?", "career")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(strings.ToLower(answer), "six") {
		t.Errorf("answer %q does not mention six", answer)
	}
}

// Scenario 2
func TestEndToEnd_UnrelatedQuestionIsUnavailable(t *testing.T) {
	s := newOfflineService(t)
	ingestText(t, s, "career", "Adam has six years of experience in full-stack development")

	answer, err := s.Answer(traceCtx(), "What is Adam's favorite color?", "career")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(strings.ToLower(answer), "don't have that information") {
		t.Errorf("answer %q is not a refusal", answer)
	}
	if strings.Contains(strings.ToLower(answer), "six") {
		t.Errorf("answer %q leaked unrelated content", answer)
	}
}

func TestEndToEnd_TopicIsolation(t *testing.T) {
	s := newOfflineService(t)
	ingestText(t, s, "career", "Adam has six years of experience in full-stack development")
	ingestText(t, s, "funfacts", "Adam once climbed Mount Kilimanjaro with his brother.")

	answer, err := s.Answer(traceCtx(), "How many years of experience does Adam have?", "funfacts")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.ToLower(answer), "six") {
		t.Errorf("funfacts answer %q used career content", answer)
	}
}

func TestEndToEnd_ReingestionIsIdempotent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Project %d was built with Go and Postgres over %d weeks. ", i, i%7+1)
	}
	content := b.String()

	s := newOfflineService(t)
	first := ingestText(t, s, "career", content)
	second := ingestText(t, s, "career", content)
	if first.Chunks != second.Chunks || first.Chunks < 2 {
		t.Fatalf("chunk counts %d then %d", first.Chunks, second.Chunks)
	}

	a1, err := s.Answer(traceCtx(), "Which project was built with Go?", "career")
	if err != nil {
		t.Fatal(err)
	}
	ingestText(t, s, "career", content)
	a2, err := s.Answer(traceCtx(), "Which project was built with Go?", "career")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Errorf("answers differ after re-ingestion: %q vs %q", a1, a2)
	}
}

func TestEndToEnd_ConcurrentAnswersAreIndependent(t *testing.T) {
	s := newOfflineService(t)
	ingestText(t, s, "career", "Adam has six years of experience in full-stack development")
	ingestText(t, s, "funfacts", "Adam once climbed Mount Kilimanjaro with his brother.")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a, err := s.Answer(traceCtx(), "How many years of experience does Adam have?", "career")
			if err == nil && !strings.Contains(a, "six") {
				err = fmt.Errorf("career answer %q", a)
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			a, err := s.Answer(traceCtx(), "Where did Adam climb Mount Kilimanjaro?", "funfacts")
			if err == nil && !strings.Contains(a, "Kilimanjaro") {
				err = fmt.Errorf("funfacts answer %q", a)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

func TestIngestDocument_UnknownTopic(t *testing.T) {
	mVec := &MockVectorDB{}
	s := newMockService(t, &MockEmbedder{}, mVec, &MockLLM{})
	_, err := s.IngestDocument(traceCtx(), commonModels.Document{Topic: "hobbies", Content: "text"})
	if !errors.Is(err, ragErrors.ErrInvalidTopic) {
		t.Errorf("err = %v", err)
	}
	if mVec.Calls.Load() != 0 {
		t.Error("index touched for an unknown topic")
	}
}

func TestNewService_RejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opts rag.Options
	}{
		{"no topics", rag.Options{Embedder: &MockEmbedder{}, Index: &MockVectorDB{}, LLM: &MockLLM{}, Lock: &MockLock{}, K: 4}},
		{"zero k", rag.Options{Embedder: &MockEmbedder{}, Index: &MockVectorDB{}, LLM: &MockLLM{}, Lock: &MockLock{}, Topics: testTopics}},
		{"missing llm", rag.Options{Embedder: &MockEmbedder{}, Index: &MockVectorDB{}, Lock: &MockLock{}, Topics: testTopics, K: 4}},
		{"duplicate topic", rag.Options{Embedder: &MockEmbedder{}, Index: &MockVectorDB{}, LLM: &MockLLM{}, Lock: &MockLock{}, K: 4,
			Topics: []commonModels.Topic{{Name: "career"}, {Name: "career"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rag.NewService(tt.opts); !errors.Is(err, ragErrors.ErrConfiguration) {
				t.Errorf("err = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestAssembleContext(t *testing.T) {
	if got := rag.AssembleContext(nil); got != "" {
		t.Errorf("empty results gave %q", got)
	}
	got := rag.AssembleContext([]commonModels.SearchResult{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if got != "a\n\nb\n\nc" {
		t.Errorf("got %q", got)
	}
}

func TestTopics(t *testing.T) {
	s := newMockService(t, &MockEmbedder{}, &MockVectorDB{}, &MockLLM{})
	names := s.Topics()
	if len(names) != 2 || names[0] != "career" || names[1] != "funfacts" {
		t.Errorf("topics = %v", names)
	}
	names[0] = "mutated"
	if s.Topics()[0] != "career" {
		t.Error("Topics exposes internal state")
	}
}
