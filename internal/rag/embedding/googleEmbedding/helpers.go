package googleEmbedding

import (
	"errors"
	"net/http"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"google.golang.org/genai"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ragErrors.FromStatusCode("embedding", apiErr.Code, err)
	}
	return ragErrors.FromProvider("embedding", err)
}
