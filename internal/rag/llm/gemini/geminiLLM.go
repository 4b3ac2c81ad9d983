package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	BaseURL     string
	HTTPClient  *http.Client
}

var logger *logger_i.Logger
var geminiClient *llmClient
var initErr error
var once sync.Once

func GetGeminiClient(ctx context.Context, opts Options) (llm.Provider, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		geminiClient, initErr = newGeminiClient(ctx, opts)
	})
	if initErr != nil {
		return nil, initErr
	}
	return geminiClient, nil
}

func newGeminiClient(ctx context.Context, opts Options) (*llmClient, error) {
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return nil, ragErrors.New(ragErrors.Configuration, llm.Step, err)
	}
	logger.Info("Gemini client created", "model", opts.Model)
	return &llmClient{client: c, modelName: opts.Model, temperature: float32(opts.Temperature)}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)},
	)
	if err != nil {
		log.Error("Error generating answer with Gemini", "error", err)
		return "", classify(err)
	}
	return result.Text(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ragErrors.FromStatusCode(llm.Step, apiErr.Code, err)
	}
	return ragErrors.FromProvider(llm.Step, err)
}
