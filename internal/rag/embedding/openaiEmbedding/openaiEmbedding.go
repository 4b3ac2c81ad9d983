package openaiEmbedding

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	api       openai.Client
	model     string
	dimension int
}

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	HTTPClient option.HTTPClient
}

// GetOpenAIEmbeddingClient builds the process-wide client on first use.
// Retries are disabled in the SDK, the resilience layer owns them.
func GetOpenAIEmbeddingClient(opts Options) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		embeddingClient = newClient(opts)
		logger.Info("OpenAI embedding client created", "model", opts.Model, "dimension", opts.Dimension)
	})
	return embeddingClient
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
		api:       openai.NewClient(requestOptions...),
		model:     opts.Model,
		dimension: opts.Dimension,
	}
}

func (c *client) Dimension() int { return c.dimension }

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.CheckInput(texts); err != nil {
		return nil, err
	}
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)

	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(c.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	//only the v3 models accept a reduced output size
	if strings.HasPrefix(c.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	res, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err, "batch", len(texts))
		return nil, classify(err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, ragErrors.Newf(ragErrors.ProviderUnavailable, "embedding", "response index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vectors[d.Index] = v
	}
	if err := embedding.CheckVectors(len(texts), compact(vectors), c.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}

// compact drops holes left by missing indexes so CheckVectors sees the real count.
func compact(vectors [][]float32) [][]float32 {
	out := vectors[:0:0]
	for _, v := range vectors {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ragErrors.FromStatusCode("embedding", apiErr.StatusCode, err)
	}
	return ragErrors.FromProvider("embedding", err)
}
