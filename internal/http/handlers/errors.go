// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package), plus the translation
// from service-layer sentinel errors to (status, code) pairs. These codes give
// clients a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (e.g., invalid_state, generation_failed) are reserved
//     for business logic errors that cannot be conveyed by status alone.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeNoPlan           = "no_plan"
	ErrCodeNoDocuments      = "no_documents"
	ErrCodeBaselineRevision = "baseline_revision"
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeUpstreamFailed   = "upstream_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failService maps service-layer sentinel errors to HTTP responses. Unknown
// errors become 500 internal_error; an *llm.UpstreamError becomes 502, since
// the request was fine and the model was not.
func failService(c *gin.Context, err error) {
	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrTopicNotFound),
		errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.Is(err, services.ErrNoPlan):
		fail(c, http.StatusConflict, ErrCodeNoPlan, err.Error())
	case errors.Is(err, services.ErrNoDocuments):
		fail(c, http.StatusConflict, ErrCodeNoDocuments, err.Error())
	case errors.Is(err, services.ErrBaselineRevision):
		fail(c, http.StatusConflict, ErrCodeBaselineRevision, err.Error())
	case errors.Is(err, services.ErrMalformedGeneration):
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, err.Error())
	case errors.Is(err, services.ErrEmptyPrompt), errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.As(err, &upstream):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "upstream model request failed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
