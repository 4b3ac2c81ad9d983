// @title           Portfolio RAG API
// @version         1.0
// @description     Answers questions about Adam from per-topic document indexes.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3001
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/customHttpClient"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/handlers"
	"github.com/akolanti/PortfolioRAG/internal/job"
	"github.com/akolanti/PortfolioRAG/internal/mcpServer"
	"github.com/akolanti/PortfolioRAG/internal/rag/backends"
	"github.com/akolanti/PortfolioRAG/internal/server"
	"github.com/akolanti/PortfolioRAG/internal/worker"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&configPath, "config", "", "path to the YAML config file (defaults to $RAG_CONFIG)")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger_i.NewLogger("main").Error("Loading configuration failed", "error", err)
		os.Exit(1)
	}
	logger_i.Init(logger_i.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	logger := logger_i.NewLogger("main")
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	providers, err := backends.Build(serviceContext, cfg)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer providers.Close()
	defer customHttpClient.CloseIdle()

	ragService, err := backends.NewService(cfg, providers)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	//the ingestion queue only runs when uploads are enabled
	stopWorkerChannel = make(chan bool)
	var jobService *job.Service
	if cfg.Server.AsyncIngest {
		jobService = job.InitJobService(job.ServiceConfig{
			JobChannel:        make(chan jobModel.Job, config.BufferLimit),
			DispatcherChannel: make(chan bool, 1),
			JobStore:          providers.Jobs,
		})
		worker.NewPool(jobService, ragService, stopWorkerChannel, &workerWaitGroup, worker.DefaultOptions()).Start()
	}

	routes := server.Routes{
		Handler:     handlers.NewHandler(ragService, jobService, cfg.Server.UploadFolder),
		AsyncIngest: cfg.Server.AsyncIngest,
	}
	if cfg.Server.EnableMCP {
		routes.MCP = mcpServer.Handler(mcpServer.New(ragService))
	}

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	server.CreateServer(cfg.Server.ListenAddr, routes)
	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	})

	logger.Info("Portfolio RAG started", "topics", cfg.TopicNames(), "addr", cfg.Server.ListenAddr)
	<-stopExecution
	logger.Info("Server stopped")
}

