package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/adapter/utils"
	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/handlers"
	"github.com/akolanti/PortfolioRAG/internal/middleware"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

var (
	server     *http.Server
	_logger    *logger_i.Logger
	loggerOnce sync.Once
)

func initLogger() {
	loggerOnce.Do(func() { _logger = logger_i.NewLogger("server") })
}

type Routes struct {
	Handler     *handlers.Handler
	AsyncIngest bool
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func NewRouter(routes Routes) http.Handler {
	r := utils.NewRouter(middleware.Wrap)

	r.Get("/health", routes.Handler.Health)
	r.Post("/api/chat", routes.Handler.Chat)
	r.Get("/api/topics", routes.Handler.Topics)

	if routes.AsyncIngest {
		r.Post("/ingest", routes.Handler.PostIngest)
		r.Get("/status/{id}", routes.Handler.GetStatus)
	}
	if routes.MCP != nil {
		r.Handle("/mcp", routes.MCP)
	}
	return r
}

// CreateServer builds the server and starts listening in the background.
func CreateServer(listenAddr string, routes Routes) {
	initLogger()
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      NewRouter(routes),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	go func() {
		_logger.Info("Server is listening", "address", listenAddr, "asyncIngest", routes.AsyncIngest, "mcp", routes.MCP != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_logger.Error("Server crashed", "error", err, "addr", listenAddr)
			os.Exit(1)
		}
	}()
}

// ShutDownHandler waits for a signal, stops accepting requests, drains the
// workers and only then closes the provider clients.
func ShutDownHandler(shutdownParams ShutdownParams) {
	initLogger()
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Error("Forced shutdown")
		os.Exit(1)
	}
}
