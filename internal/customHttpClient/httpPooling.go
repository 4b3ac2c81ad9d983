package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// Get returns the process-wide client handed to the OpenAI and Gemini SDKs so
// embedding and generation calls reuse connections. Deadlines come from the
// request context, not from the client.
func Get() *http.Client {
	once.Do(func() {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = config.MaxIdleConns
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		transport.IdleConnTimeout = config.IdleConnTimeout
		client = &http.Client{Transport: transport}
	})
	return client
}

// CloseIdle drops pooled connections at shutdown.
func CloseIdle() {
	if client != nil {
		client.CloseIdleConnections()
	}
}
