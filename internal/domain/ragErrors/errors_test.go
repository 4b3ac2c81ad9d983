package ragErrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindThroughChain(t *testing.T) {
	timeout := FromProvider("embedding", context.DeadlineExceeded)
	chat := New(ChatFailure, "embedding", timeout).WithTopic("career")
	wrapped := fmt.Errorf("answering: %w", chat)

	if !errors.Is(wrapped, ErrChatFailure) {
		t.Error("expected ChatFailure")
	}
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("expected Timeout in the chain")
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("expected the original cause in the chain")
	}
	if errors.Is(wrapped, ErrConfiguration) {
		t.Error("unexpected ConfigurationError match")
	}
	if KindOf(wrapped) != ChatFailure {
		t.Errorf("KindOf = %s", KindOf(wrapped))
	}
}

func TestInvalidTopic(t *testing.T) {
	err := New(InvalidInput, "topic", ErrInvalidTopic).WithTopic("invalid-topic")
	if !errors.Is(err, ErrInvalidTopic) || !errors.Is(err, ErrInvalidInput) {
		t.Errorf("%v should match both InvalidTopic and InvalidInput", err)
	}
	other := Newf(InvalidInput, "query", "k must be positive")
	if errors.Is(other, ErrInvalidTopic) {
		t.Error("a plain InvalidInput must not match InvalidTopic")
	}
}

func TestFromProvider(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, Timeout},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), Timeout},
		{"network", errors.New("connection refused"), ProviderUnavailable},
		{"already classified", New(Configuration, "x", nil), Configuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(FromProvider("step", tt.in)); got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
		})
	}
	if FromProvider("step", nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestFromStatusCode(t *testing.T) {
	cases := map[int]Kind{400: InvalidInput, 401: ProviderUnavailable, 429: ProviderUnavailable, 500: ProviderUnavailable, 504: Timeout}
	for status, want := range cases {
		if got := KindOf(FromStatusCode("llm", status, errors.New("x"))); got != want {
			t.Errorf("status %d: kind = %s, want %s", status, got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(ProviderUnavailable, "vector_search", errors.New("dial tcp")).WithTopic("career")
	want := "ProviderUnavailable [vector_search] topic=career: dial tcp"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
