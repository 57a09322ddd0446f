package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/middleware"
)

// StatusFor maps an error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case domain.ErrInvalidInput, domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFoundCode:
		return http.StatusNotFound
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrCompletion:
		return http.StatusBadGateway
	case domain.ErrCircuitOpen, domain.ErrStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toReportError gives every error the ReportError shape.
func toReportError(err error, requestID string) *domain.ReportError {
	var re *domain.ReportError
	if errors.As(err, &re) {
		out := *re
		if out.RequestID == "" {
			out.RequestID = requestID
		}
		return &out
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewReportError(domain.ErrInternalServer, "request timed out", err.Error(), requestID)
	}
	return domain.NewReportError(domain.ErrorCode(err), err.Error(), "", requestID)
}

func abortWith(c *gin.Context, status int, re *domain.ReportError) {
	c.AbortWithStatusJSON(status, gin.H{"error": re})
}

// respondError writes err with the status its code maps to.
func respondError(c *gin.Context, err error) {
	re := toReportError(err, c.GetString(middleware.CorrelationIDKey))
	status := StatusFor(re.Code)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	abortWith(c, status, re)
}

func badRequest(c *gin.Context, err error) {
	abortWith(c, http.StatusBadRequest, domain.NewReportError(
		domain.ErrInvalidInput, "invalid request body", err.Error(), c.GetString(middleware.CorrelationIDKey)))
}
