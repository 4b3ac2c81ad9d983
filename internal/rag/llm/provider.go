package llm

import "context"

// Provider turns a fully composed prompt into the model's answer text.
// Output is not deterministic; callers assert properties, not exact text.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const Step = "llm_generation"
