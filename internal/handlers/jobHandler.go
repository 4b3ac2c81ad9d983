package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/adapter"
	"github.com/akolanti/PortfolioRAG/internal/adapter/utils"
	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
)

// PostIngest godoc
// @Summary      Upload a document for a topic
// @Description  Stores the upload and queues an ingestion job that replaces the topic's index.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        topic     formData  string  true  "Topic the document replaces"
// @Param        document  formData  file    true  "PDF, DOCX, ODT, RTF, TXT or MD file"
// @Success      202  {object}  api.InitJobResponse  "Job queued"
// @Failure      400  {object}  api.ErrorResponse    "Bad form or unknown topic"
// @Failure      500  {object}  api.ErrorResponse    "Storage error"
// @Router       /ingest [post]
func (h *Handler) PostIngest(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithTrace(r.Context(), config.TRACE_ID_KEY)

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	topic := r.FormValue("topic")
	if !slices.Contains(h.service.Topics(), topic) {
		h.writeError(w, http.StatusBadRequest, h.topicMessage())
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	documentName := filepath.Base(fileMetadata.Filename)
	if !ingest.IsSupported(documentName) {
		h.writeError(w, http.StatusBadRequest, "Unsupported document type")
		return
	}

	targetDir, err := getTargetDirectory(h.uploadDir)
	if err != nil {
		log.Error("Couldn't get target directory", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Storage error")
		return
	}

	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), documentName))
	if err := saveUpload(fileReader, tempFilePath); err != nil {
		log.Error("Saving upload failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Write error")
		return
	}

	newJob := jobModel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceId(r.Context()),
		Topic:       topic,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			IngestFileName: documentName,
			IngestURL:      tempFilePath,
		},
	}
	if err := h.enqueue(r.Context(), newJob); err != nil {
		_ = os.Remove(tempFilePath)
		log.Warn("Job not queued", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "Ingestion queue is unavailable")
		return
	}
	log.Info("Ingestion job queued", "jobId", newJob.Id, "topic", topic, "document", documentName)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.Id), h.logger)
}

// GetStatus godoc
// @Summary      Get ingestion job status
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse    "Current job state"
// @Failure      404  {object}  api.ErrorResponse  "Job not found"
// @Router       /status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	result, isFound := h.jobs.JobStore.GetJob(r.Context(), id)
	if !isFound {
		h.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result), h.logger)
}

// enqueue stores the queued job and hands it to the pool. Every ingestion
// job asks the dispatcher for a worker since ingestion is long running.
func (h *Handler) enqueue(ctx context.Context, newJob jobModel.Job) error {
	if err := h.jobs.JobStore.SaveJob(ctx, newJob); err != nil {
		return err
	}

	select {
	case h.jobs.JobChannel <- newJob:
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()

	atomic.AddInt64(&h.jobs.RequestCount, 1)
	select {
	case h.jobs.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
		//a signal is already pending
	}
	return nil
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}
