package openaiLLM

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var chatClient *client

type client struct {
	api         openai.Client
	model       string
	temperature float64
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  option.HTTPClient
}

// GetOpenAIChatClient builds the process-wide chat client on first use.
func GetOpenAIChatClient(opts Options) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		chatClient = newClient(opts)
		logger.Info("OpenAI chat client created", "model", opts.Model, "temperature", opts.Temperature)
	})
	return chatClient
}

func newClient(opts Options) *client {
	requestOptions := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(opts.BaseURL))
	}
	return &client{
		api:         openai.NewClient(requestOptions...),
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	res, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		log.Error("Error generating answer with OpenAI", "error", err)
		return "", classify(err)
	}
	if len(res.Choices) == 0 {
		return "", ragErrors.Newf(ragErrors.ProviderUnavailable, llm.Step, "openai returned no choices")
	}
	log.Debug("OpenAI answer received", "finishReason", res.Choices[0].FinishReason, "tokens", res.Usage.TotalTokens)
	return res.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ragErrors.FromStatusCode(llm.Step, apiErr.StatusCode, err)
	}
	return ragErrors.FromProvider(llm.Step, err)
}
