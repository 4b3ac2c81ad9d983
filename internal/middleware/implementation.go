package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akolanti/PortfolioRAG/internal/adapter"
	"github.com/akolanti/PortfolioRAG/internal/adapter/utils"
	"github.com/akolanti/PortfolioRAG/internal/config"
)

const TraceHeader = "X-Trace-Id"

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		re.badRequest = failureStruct{isBadRequest: true, httpCode: http.StatusBadRequest, errorMessage: "request is empty"}
		return re
	}
	trace := req.Header.Get(TraceHeader)
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	re.req = req.WithContext(ctx)
	re.writer.Header().Set(TraceHeader, trace)
	return re
}

func handleBadRequest(re requestResponseStruct) {
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage)
	re.writer.Header().Set("Content-Type", "application/json")
	re.writer.WriteHeader(re.badRequest.httpCode)
	_ = json.NewEncoder(re.writer).Encode(adapter.ToErrorResponse(re.badRequest.errorMessage))
}
