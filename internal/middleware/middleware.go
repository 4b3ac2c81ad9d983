package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Wrap injects the trace id and records the request in metrics.
func Wrap(next http.Handler) http.Handler {
	logger := logger_i.NewLogger("middleware")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := processRequest(requestResponseStruct{req: r, writer: rec, logger: logger})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next.ServeHTTP(rec, re.req)

		path := routePattern(re.req)
		metrics.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.Status)).Inc()
		re.logger.Debug("Request served", "method", r.Method, "path", path, "status", rec.Status, "duration", time.Since(start))
	})
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	return injectTrace(re)
}

// routePattern keeps path params out of metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
