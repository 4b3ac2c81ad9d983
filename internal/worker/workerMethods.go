package worker

import (
	"context"
	"os"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/adapter"
	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
)

func (p *Pool) executeJob(job jobModel.Job) {
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.jobTimeout)
	defer cancel()
	log := p.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("jobId", job.Id, "topic", job.Topic)
	log.Debug("Processing job")

	// the upload is single use
	defer func() {
		if err := os.Remove(job.JobPayload.IngestURL); err != nil && !os.IsNotExist(err) {
			log.Warn("Could not remove upload", "path", job.JobPayload.IngestURL, "error", err)
		}
	}()

	p.saveJobState(ctx, &job, jobModel.JobStatusRunning, jobModel.IngestInit)

	doc, err := ingest.LoadDocument(job.JobPayload.IngestURL, job.Topic)
	if err != nil {
		p.failJob(ctx, &job, err)
		return
	}
	doc.Name = job.JobPayload.IngestFileName

	report, err := p.service.IngestDocument(ctx, doc)
	if err != nil {
		p.failJob(ctx, &job, err)
		return
	}

	job.JobPayload.ChunkCount = report.Chunks
	job.EndTime = time.Now()
	p.saveJobState(ctx, &job, jobModel.JobStatusComplete, jobModel.Complete)
	log.Info("Ingestion job complete", "chunks", report.Chunks, "duration", report.Duration)
}

func (p *Pool) failJob(ctx context.Context, job *jobModel.Job, err error) {
	p.logger.WithTrace(ctx, config.TRACE_ID_KEY).Error("Ingestion job failed", "jobId", job.Id, "topic", job.Topic, "error", err)
	job.Error = adapter.ToJobError(err)
	job.EndTime = time.Now()
	// the run's ctx may be what failed
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	p.saveJobState(saveCtx, job, jobModel.JobStatusError, jobModel.Error)
}

func (p *Pool) saveJobState(ctx context.Context, job *jobModel.Job, status jobModel.JobStatus, step jobModel.InternalStatus) {
	job.Status = status
	job.CurrentStep = step
	if err := p.jobs.JobStore.SaveJob(ctx, *job); err != nil {
		p.logger.Error("Failed to update job state", "jobId", job.Id, "error", err)
	}
}
