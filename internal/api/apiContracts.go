package api

import "time"

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" example:"How many years of experience does Adam have?"`
	Topic   string `json:"topic" example:"career"`
}

// responses---------------------

type ChatResponse struct {
	Response string `json:"response" example:"Adam has six years of experience in full-stack development."`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Failed to process chat request"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type TopicsResponse struct {
	Topics []string `json:"topics" example:"career,funfacts"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type JobResponse struct {
	Id          string            `json:"id" example:"5f1d7c9e-3b0a-4e43-9a57-0c1f2a7d9b11"`
	Topic       string            `json:"topic" example:"career"`
	Document    string            `json:"document" example:"career.md"`
	Status      string            `json:"status" example:"COMPLETE"`
	CurrentStep string            `json:"current_step" example:"Complete"`
	ChunkCount  int               `json:"chunk_count"`
	Error       *JobOutgoingError `json:"error,omitempty"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}
