/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers deciding whether to retry.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindUpstream         Kind = "UPSTREAM_ERROR"
	KindQuoteExpired     Kind = "QUOTE_EXPIRED"
	KindProtocolMismatch Kind = "PROTOCOL_MISMATCH"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// AppError is an error with a machine-readable kind and a message that is safe to
// show to the consumer-facing layer. The wrapped error is for logs only.
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (underlying: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrValidation creates a client-fault error for a bad field
func ErrValidation(field, reason string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    fmt.Sprintf("Validation failed for field '%s': %s", field, reason),
		StatusCode: http.StatusBadRequest,
	}
}

// ErrUnsupported creates a client-fault error for an operation the target cannot perform
func ErrUnsupported(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ErrUpstream wraps a liquidity provider or router failure so callers can retry with backoff
func ErrUpstream(operation string, err error) *AppError {
	return &AppError{
		Kind:       KindUpstream,
		Message:    fmt.Sprintf("Upstream operation '%s' failed", operation),
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Err:        err,
	}
}

// ErrQuoteExpired creates an error for executing a quote past its provider-side expiry
func ErrQuoteExpired(quoteId string) *AppError {
	return &AppError{
		Kind:       KindQuoteExpired,
		Message:    fmt.Sprintf("Quote '%s' has expired", quoteId),
		StatusCode: http.StatusGone,
	}
}

// ErrProtocolMismatch creates an error for a provider response that contradicts the request
func ErrProtocolMismatch(message string) *AppError {
	return &AppError{
		Kind:       KindProtocolMismatch,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

// ErrInternal creates an error for unexpected local failures
func ErrInternal(message string, err error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// IsRetryable reports whether the caller may retry the failed call.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}

// SafeMessage returns a message that never includes upstream payloads.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal error"
}
