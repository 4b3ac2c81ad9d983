package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/akolanti/PortfolioRAG/internal/api"
	"github.com/akolanti/PortfolioRAG/internal/data/store"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/job"
	"github.com/akolanti/PortfolioRAG/internal/rag/ingest"
	"github.com/go-chi/chi/v5"
)

type mockService struct {
	OnAnswer func(ctx context.Context, question, topic string) (string, error)
	calls    int
}

func (m *mockService) Answer(ctx context.Context, question, topic string) (string, error) {
	m.calls++
	if m.OnAnswer != nil {
		return m.OnAnswer(ctx, question, topic)
	}
	return "answer", nil
}

func (m *mockService) IngestDocument(ctx context.Context, doc commonModels.Document) (ingest.Report, error) {
	return ingest.Report{}, nil
}

func (m *mockService) Topics() []string { return []string{"career", "funfacts"} }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		answerErr  error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{name: "answered", body: `{"message":"How many years?","topic":"career"}`, wantStatus: 200, wantCalls: 1},
		{name: "missing message", body: `{"topic":"career"}`, wantStatus: 400, wantError: "Message is required"},
		{name: "message not a string", body: `{"message":42,"topic":"career"}`, wantStatus: 400, wantError: "Message is required"},
		{name: "empty message", body: `{"message":"","topic":"career"}`, wantStatus: 400, wantError: "Message is required"},
		{name: "malformed json", body: `{"message":`, wantStatus: 400, wantError: "Message is required"},
		{
			name: "unknown topic", body: `{"message":"hi","topic":"hobbies"}`,
			answerErr:  ragErrors.New(ragErrors.InvalidInput, "topic", ragErrors.ErrInvalidTopic),
			wantStatus: 400, wantError: "Topic must be one of: career, funfacts", wantCalls: 1,
		},
		{
			name: "blank question", body: `{"message":"   ","topic":"career"}`,
			answerErr:  ragErrors.Newf(ragErrors.InvalidInput, "question", "question is empty"),
			wantStatus: 400, wantError: "Message is required", wantCalls: 1,
		},
		{
			name: "pipeline failure hides detail", body: `{"message":"hi","topic":"career"}`,
			answerErr:  ragErrors.New(ragErrors.ChatFailure, "llm_generation", errors.New("401 invalid api key sk-123")),
			wantStatus: 500, wantError: "Failed to process chat request", wantCalls: 1,
		},
		{
			name: "provider rejected its request", body: `{"message":"hi","topic":"career"}`,
			answerErr: ragErrors.New(ragErrors.ChatFailure, "llm_generation",
				ragErrors.FromStatusCode("llm_generation", 400, errors.New("400 bad request"))),
			wantStatus: 500, wantError: "Failed to process chat request", wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{OnAnswer: func(ctx context.Context, q, topic string) (string, error) {
				if tt.answerErr != nil {
					return "", tt.answerErr
				}
				return "Adam has six years of experience.", nil
			}}
			h := NewHandler(svc, nil, "")

			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if svc.calls != tt.wantCalls {
				t.Errorf("service calls = %d, want %d", svc.calls, tt.wantCalls)
			}
			if tt.wantError != "" {
				if got := decodeError(t, rec); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			var body api.ChatResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Response != "Adam has six years of experience." {
				t.Errorf("body = %+v, %v", body, err)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&mockService{}, nil, "").Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != 200 || strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func multipartRequest(t *testing.T, topic, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if topic != "" {
		_ = mw.WriteField("topic", topic)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("document", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newJobs() *job.Service {
	return job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 1),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
}

func TestPostIngest_QueuesJob(t *testing.T) {
	jobs := newJobs()
	h := NewHandler(&mockService{}, jobs, t.TempDir())

	rec := httptest.NewRecorder()
	h.PostIngest(rec, multipartRequest(t, "career", "career.md", "Adam has six years of experience."))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var res api.InitJobResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil || res.Id == "" || res.StatusURL != "status/"+res.Id {
		t.Fatalf("response = %+v, %v", res, err)
	}

	queued := <-jobs.JobChannel
	if queued.Id != res.Id || queued.Topic != "career" || queued.JobPayload.IngestFileName != "career.md" {
		t.Errorf("queued job = %+v", queued)
	}
	saved, err := os.ReadFile(queued.JobPayload.IngestURL)
	if err != nil || string(saved) != "Adam has six years of experience." {
		t.Errorf("upload not stored: %v", err)
	}
	if stored, ok := jobs.JobStore.GetJob(context.Background(), res.Id); !ok || stored.Status != jobModel.JobStatusQueued {
		t.Errorf("stored job = %+v", stored)
	}
	select {
	case <-jobs.DispatcherChannel:
	default:
		t.Error("dispatcher was not signalled")
	}
}

func TestPostIngest_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		filename  string
		wantError string
	}{
		{"unknown topic", "hobbies", "a.md", "Topic must be one of: career, funfacts"},
		{"missing file", "career", "", "Could not retrieve file"},
		{"unsupported type", "career", "photo.png", "Unsupported document type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newJobs()
			rec := httptest.NewRecorder()
			NewHandler(&mockService{}, jobs, t.TempDir()).PostIngest(rec, multipartRequest(t, tt.topic, tt.filename, "x"))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := decodeError(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
			if len(jobs.JobChannel) != 0 {
				t.Error("job queued for a rejected upload")
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	jobs := newJobs()
	_ = jobs.JobStore.SaveJob(context.Background(), jobModel.Job{
		Id: "job-1", Topic: "career", Status: jobModel.JobStatusError, CurrentStep: jobModel.Error,
		Error: jobModel.JobError{Code: 503, Message: "provider down", Retry: true},
	})
	h := NewHandler(&mockService{}, jobs, "")
	r := chi.NewRouter()
	r.Get("/status/{id}", h.GetStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/job-1", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var res api.JobResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "Error" || res.Error == nil || res.Error.Code != 503 || !res.Error.Retry {
		t.Errorf("response = %+v", res)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/ghost", nil))
	if rec.Code != http.StatusNotFound || decodeError(t, rec) != "Job not found" {
		t.Errorf("ghost job: %d", rec.Code)
	}
}
