// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for aspire commands.
//
// Commands always return errors; Run displays them once and maps them to an
// exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/aspire/internal/classify"
	"github.com/jeranaias/aspire/internal/config"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/storage"
	"github.com/jeranaias/aspire/internal/strategy"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	// ExitQuotaError means the provider account is out of quota.
	ExitQuotaError = 9
	// ExitContentFilteredError means the provider's safety filter blocked the request.
	ExitContentFilteredError = 10
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required argument missing",
		Example: usage,
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w. In JSON mode the error is a JSONResponse.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), userMessage(err))
}

// userMessage returns the text shown to the user for err.
// Classified provider errors carry their own user-facing message.
func userMessage(err error) string {
	var cerr *classify.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case classify.KindContentFiltered:
			if cerr.Message == "" {
				return classify.Guidance(cerr.FilterType)
			}
			return cerr.Message
		case classify.KindQuotaExceeded:
			return cerr.Message
		}
	}
	return err.Error()
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps err onto an exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr      *config.ConfigurationError
		cfgInvalid  config.ValidateErrors
		validation  *ValidationError
		notFound    *storage.NotFoundError
		providerErr *classify.Error
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &cfgInvalid):
		return ExitConfigError
	case errors.As(err, &validation),
		errors.Is(err, strategy.ErrInvalidRequest),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, storage.ErrInvalidStrategy):
		return ExitUsageError
	case errors.Is(err, conversation.ErrNoOwner):
		return ExitAuthError
	case errors.Is(err, conversation.ErrNotFound), errors.As(err, &notFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &providerErr):
		switch providerErr.Kind {
		case classify.KindQuotaExceeded:
			return ExitQuotaError
		case classify.KindContentFiltered:
			return ExitContentFilteredError
		default:
			return ExitNetworkError
		}
	default:
		return ExitGeneralError
	}
}
