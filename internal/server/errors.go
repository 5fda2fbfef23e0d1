// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jeranaias/aspire/internal/classify"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/storage"
	"github.com/jeranaias/aspire/internal/strategy"
)

// Error types reported in the response envelope.
const (
	errTypeInvalidRequest  = "invalid_request_error"
	errTypeUnauthorized    = "unauthorized"
	errTypeNotFound        = "not_found"
	errTypeQuotaExceeded   = "quota_exceeded"
	errTypeContentFiltered = "content_filtered"
	errTypeProvider        = "provider_error"
	errTypeRateLimited     = "rate_limited"
	errTypeInternal        = "internal_error"
)

// msgProviderError replaces raw provider failures, which are not user-facing.
const msgProviderError = "The AI provider failed to respond. Please try again later."

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// apiError is the HTTP rendering of a domain error.
type apiError struct {
	status  int
	errType string
	message string
}

// toAPIError maps domain and classified provider errors onto HTTP statuses.
func toAPIError(err error) apiError {
	var cerr *classify.Error
	switch {
	case errors.Is(err, strategy.ErrInvalidRequest),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, storage.ErrInvalidStrategy):
		return apiError{http.StatusBadRequest, errTypeInvalidRequest, err.Error()}
	case errors.Is(err, conversation.ErrNoOwner):
		return apiError{http.StatusUnauthorized, errTypeUnauthorized, "Not authenticated"}
	case errors.Is(err, conversation.ErrNotFound):
		return apiError{http.StatusNotFound, errTypeNotFound, "Conversation not found"}
	case errors.Is(err, storage.ErrStrategyNotFound):
		return apiError{http.StatusNotFound, errTypeNotFound, "Strategy not found"}
	case errors.As(err, &cerr):
		switch cerr.Kind {
		case classify.KindQuotaExceeded:
			return apiError{http.StatusPaymentRequired, errTypeQuotaExceeded, cerr.Message}
		case classify.KindContentFiltered:
			msg := cerr.Message
			if msg == "" {
				msg = classify.Guidance(cerr.FilterType)
			}
			return apiError{http.StatusBadRequest, errTypeContentFiltered, msg}
		default:
			return apiError{http.StatusBadGateway, errTypeProvider, msgProviderError}
		}
	default:
		return apiError{http.StatusInternalServerError, errTypeInternal, "Internal Server Error"}
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_WRITE_FAILED | error=%v", err)
	}
}

// writeError writes the JSON error envelope.
func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Message: message, Type: errType, Code: status}})
}

// writeDomainError renders err through toAPIError and logs server-side failures.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.status >= http.StatusInternalServerError {
		log.Printf("REQUEST_FAILED | method=%s path=%s status=%d error=%v", r.Method, r.URL.Path, apiErr.status, err)
	}
	writeError(w, apiErr.status, apiErr.errType, apiErr.message)
}
