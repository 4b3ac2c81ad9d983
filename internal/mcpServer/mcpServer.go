// Package mcpServer exposes the portfolio assistant as an MCP tool so agents
// can ask the same questions the chat endpoint answers.
package mcpServer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ToolName = "ask_portfolio"

type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	Topic    string `json:"topic" jsonschema:"topic whose documents answer the question"`
}

type AskOutput struct {
	Answer string `json:"answer"`
}

// New registers the ask_portfolio tool on a fresh server backed by service.
func New(service rag.Service) *mcp.Server {
	logger := logger_i.NewLogger("mcp")
	server := mcp.NewServer(&mcp.Implementation{Name: "portfolio-rag", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Answer a question about Adam using one topic of his portfolio. Topics: " + strings.Join(service.Topics(), ", "),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
		answer, err := service.Answer(ctx, in.Question, in.Topic)
		if err != nil {
			logger.Warn("Tool call failed", "topic", in.Topic, "error", err)
			return toolError(errorMessage(service, err)), AskOutput{}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: answer}},
		}, AskOutput{Answer: answer}, nil
	})
	return server
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

// errorMessage mirrors the chat endpoint: caller mistakes are explained,
// pipeline failures are not.
func errorMessage(service rag.Service, err error) string {
	switch {
	case errors.Is(err, ragErrors.ErrChatFailure):
		// may wrap a provider's own InvalidInput
	case errors.Is(err, ragErrors.ErrInvalidTopic):
		return "Topic must be one of: " + strings.Join(service.Topics(), ", ")
	case errors.Is(err, ragErrors.ErrInvalidInput):
		return "Question is required"
	}
	return "Failed to process chat request"
}
