package googleEmbedding

import (
	"context"
	"net/http"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var initErr error

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

type Options struct {
	APIKey     string
	Model      string
	Dimension  int
	BaseURL    string
	HTTPClient *http.Client
}

func newGoogleEmbedder(ctx context.Context, opts Options) (*client, error) {
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
		return nil, ragErrors.New(ragErrors.Configuration, "embedding", err)
	}
	logger.Info("Google Embedding client created", "model", opts.Model)
	return &client{genAi: c, model: opts.Model, dimension: int32(opts.Dimension)}, nil
}

// GetGoogleEmbeddingClient builds the process-wide client on first use.
func GetGoogleEmbeddingClient(ctx context.Context, opts Options) (embedding.Embedder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		embeddingClient, initErr = newGoogleEmbedder(ctx, opts)
	})
	if initErr != nil {
		return nil, initErr
	}
	return embeddingClient, nil
}

func (c *client) Dimension() int { return int(c.dimension) }

// GetEmbedding embeds a query. Gemini tunes vectors differently for queries
// and documents, so this uses the query task type.
func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := embedding.CheckInput([]string{text}); err != nil {
		return nil, err
	}
	vectors, err := c.doCall(ctx, getContent([]string{text}), taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if err := embedding.CheckInput(chunks); err != nil {
		return nil, err
	}
	return c.doCall(ctx, getContent(chunks), taskDocument)
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) ([][]float32, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY)
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
	if err != nil {
		if isRateLimited(err) {
			log.Warn("Rate limit hit", "error", err)
		}
		log.Error("Error getting Embeddings from Google", "error", err, "batch", len(content))
		return nil, classify(err)
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, r := range result.Embeddings {
		if r == nil {
			continue
		}
		vectors = append(vectors, r.Values)
	}
	if err := embedding.CheckVectors(len(content), vectors, int(c.dimension)); err != nil {
		return nil, err
	}
	return vectors, nil
}
