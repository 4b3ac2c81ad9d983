// Command ingest builds the vector index of one topic, or of every configured
// topic, from its source document.
//
//	ingest -topic career -file data/career.md
//	ingest -all
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/internal/rag/backends"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (defaults to $RAG_CONFIG)")
	topic := flag.String("topic", "", "topic to ingest")
	file := flag.String("file", "", "document to ingest, defaults to the topic's configured source")
	all := flag.Bool("all", false, "ingest every configured topic from its source")
	flag.Parse()

	if err := run(*configPath, *topic, *file, *all); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(configPath, topic, file string, all bool) error {
	if all == (topic != "") {
		return errors.New("pass exactly one of -topic or -all")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger_i.Init(logger_i.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := backends.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer providers.Close()

	service, err := backends.NewService(cfg, providers)
	if err != nil {
		return err
	}

	targets, err := selectTargets(cfg, topic, file, all)
	if err != nil {
		return err
	}
	return ingestAll(ctx, service, targets)
}

type target struct {
	topic string
	path  string
}

func selectTargets(cfg *config.AppConfig, topic, file string, all bool) ([]target, error) {
	byName := make(map[string]commonModels.Topic, len(cfg.Topics))
	for _, t := range cfg.Topics {
		byName[t.Name] = t
	}

	if all {
		targets := make([]target, 0, len(cfg.Topics))
		for _, t := range cfg.Topics {
			if t.Source == "" {
				return nil, fmt.Errorf("topic %s has no source configured", t.Name)
			}
			targets = append(targets, target{topic: t.Name, path: t.Source})
		}
		return targets, nil
	}

	t, ok := byName[topic]
	if !ok {
		return nil, fmt.Errorf("unknown topic %q, must be one of: %v", topic, cfg.TopicNames())
	}
	if file == "" {
		file = t.Source
	}
	if file == "" {
		return nil, fmt.Errorf("no -file given and topic %s has no source configured", topic)
	}
	return []target{{topic: topic, path: file}}, nil
}

// ingestAll runs one ingestion per topic concurrently. Topics are distinct so
// the per-topic single writer rule holds.
func ingestAll(ctx context.Context, service rag.Service, targets []target) error {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	reports := make([]ingest.Report, 0, len(targets))

	for _, tg := range targets {
		g.Go(func() error {
			doc, err := ingest.LoadDocument(tg.path, tg.topic)
			if err != nil {
				return fmt.Errorf("%s: %w", tg.topic, err)
			}
			report, err := service.IngestDocument(gctx, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", tg.topic, err)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	for _, r := range reports {
		fmt.Printf("%-12s %4d chunks from %s in %s\n", r.Topic, r.Chunks, r.Document, r.Duration.Round(time.Millisecond))
	}
	return err
}
