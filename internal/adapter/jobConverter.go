package adapter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/PortfolioRAG/internal/api"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	return api.JobResponse{
		Id:          job.Id,
		Topic:       job.Topic,
		Document:    job.JobPayload.IngestFileName,
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
		ChunkCount:  job.JobPayload.ChunkCount,
		StartTime:   job.CreatedTime,
		EndTime:     job.EndTime,
		Error:       errorPtr,
	}
}

func ToErrorResponse(message string) api.ErrorResponse {
	return api.ErrorResponse{Error: message}
}

// ToJobError maps a failed ingestion to the error stored on its job. Only
// transient failures are marked retryable.
func ToJobError(err error) jobModel.JobError {
	code := http.StatusInternalServerError
	retry := false
	switch {
	case errors.Is(err, ragErrors.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, ragErrors.ErrTimeout):
		code = http.StatusGatewayTimeout
		retry = true
	case errors.Is(err, ragErrors.ErrProviderUnavailable):
		code = http.StatusServiceUnavailable
		retry = true
	}
	return jobModel.JobError{Code: code, Message: err.Error(), Retry: retry}
}
