package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/internal/rag/chunking"
	"github.com/akolanti/PortfolioRAG/internal/rag/embedding"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	BatchSize        int
	BatchesPerSecond float64
}

// Report summarises one finished ingestion run.
type Report struct {
	Topic    string        `json:"topic"`
	Document string        `json:"document"`
	Chunks   int           `json:"chunks"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

// Pipeline chunks a document, embeds the chunks in paced batches and swaps
// them into the topic index. Runs for the same topic are serialised by the
// ingest lock; different topics may run concurrently.
type Pipeline struct {
	embedder  embedding.Embedder
	index     vectorDB.DataProcessor
	lock      jobModel.IngestLock
	limiter   *rate.Limiter
	size      int
	overlap   int
	batchSize int
	logger    *logger_i.Logger
}

func NewPipeline(e embedding.Embedder, index vectorDB.DataProcessor, lock jobModel.IngestLock, opts Options) *Pipeline {
	limit := rate.Inf
	if opts.BatchesPerSecond > 0 {
		limit = rate.Limit(opts.BatchesPerSecond)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultEmbeddingBatchSize
	}
	return &Pipeline{
		embedder:  e,
		index:     index,
		lock:      lock,
		limiter:   rate.NewLimiter(limit, 1),
		size:      opts.ChunkSize,
		overlap:   opts.ChunkOverlap,
		batchSize: batchSize,
		logger:    logger_i.NewLogger("document_ingestion"),
	}
}

func (p *Pipeline) Ingest(ctx context.Context, doc commonModels.Document) (Report, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	log := p.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("topic", doc.Topic, "document", doc.Name)
	report := Report{Topic: doc.Topic, Document: doc.Name}

	if doc.Topic == "" {
		return report, ragErrors.Newf(ragErrors.InvalidInput, "ingest", "document %q has no topic", doc.Name)
	}

	owner := uuid.NewString()
	locked, err := p.lock.TryLock(ctx, doc.Topic, owner)
	if err != nil {
		return report, ragErrors.FromProvider("ingest_lock", err)
	}
	if !locked {
		return report, ragErrors.Newf(ragErrors.InvalidInput, "ingest_lock", "ingestion already running for topic %s", doc.Topic).WithTopic(doc.Topic)
	}
	defer func() {
		// the run's ctx may already be cancelled, release regardless
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.lock.Unlock(unlockCtx, doc.Topic, owner); err != nil {
			log.Warn("Could not release ingest lock", "error", err)
		}
	}()

	chunks, err := chunking.Chunks(doc, p.size, p.overlap)
	if err != nil {
		return report, err
	}
	if len(chunks) == 0 {
		return report, ragErrors.Newf(ragErrors.InvalidInput, "chunking", "document %q produced no chunks", doc.Name).WithTopic(doc.Topic)
	}
	log.Debug("Document chunked", "chunks", len(chunks))

	vectors, batches, err := p.embedAll(ctx, chunks, log)
	if err != nil {
		return report, err
	}

	if err := p.index.ReplaceTopic(ctx, doc.Topic, chunks, vectors); err != nil {
		log.Error("Replacing topic failed, previous content kept", "error", err)
		return report, err
	}

	report.Chunks = len(chunks)
	report.Batches = batches
	report.Duration = time.Since(start)
	metrics.SetIngestedChunks(doc.Topic, len(chunks))
	log.Info("Topic ingested", "chunks", report.Chunks, "batches", report.Batches, "duration", report.Duration)
	return report, nil
}

// embedAll embeds every chunk, one paced batch at a time, keeping chunk order.
func (p *Pipeline) embedAll(ctx context.Context, chunks []commonModels.DocChunk, log *logger_i.Logger) ([][]float32, int, error) {
	vectors := make([][]float32, 0, len(chunks))
	batches := 0
	for i := 0; i < len(chunks); i += p.batchSize {
		end := min(i+p.batchSize, len(chunks))

		//Wait only fails when ctx ends or its deadline is too close
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, batches, ragErrors.New(ragErrors.Timeout, "embedding", err)
		}

		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		log.Debug("Starting embedding call", "batch", batches, "size", len(texts))
		batchStart := time.Now()
		batch, err := p.embedder.BatchEmbedding(ctx, texts)
		metrics.CaptureExecutionMetrics("embedding", time.Since(batchStart))
		if err != nil {
			return nil, batches, fmt.Errorf("embedding batch %d failed: %w", batches, err)
		}
		if len(batch) != len(texts) {
			return nil, batches, ragErrors.Newf(ragErrors.ProviderUnavailable, "embedding", "batch %d: got %d vectors for %d chunks", batches, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		batches++
	}
	return vectors, batches, nil
}
