package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		kind      Kind
		retryable bool
	}{
		{"validation", ErrValidation("fiat_amount", "must not be null"), KindValidation, false},
		{"unsupported", ErrUnsupported("fixed crypto quotes are not supported"), KindValidation, false},
		{"upstream", ErrUpstream("request_quote", errors.New("502 bad gateway")), KindUpstream, true},
		{"expired", ErrQuoteExpired("q-1"), KindQuoteExpired, false},
		{"mismatch", ErrProtocolMismatch("asset pair mismatch"), KindProtocolMismatch, false},
		{"internal", ErrInternal("boom", nil), KindInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, IsKind(wrapped, tt.kind))
			assert.Equal(t, tt.retryable, IsRetryable(wrapped))
		})
	}
}

func TestSafeMessageHidesUpstreamPayload(t *testing.T) {
	raw := errors.New(`{"message":"signature invalid","request_id":"abc"}`)
	err := ErrUpstream("create_withdrawal", raw)

	assert.NotContains(t, SafeMessage(err), "signature invalid")
	assert.Contains(t, err.Error(), "signature invalid")
	assert.ErrorIs(t, err, raw)
}

func TestSafeMessageForPlainError(t *testing.T) {
	assert.Equal(t, "Internal error", SafeMessage(errors.New("sql: database is locked")))
	assert.Equal(t, "", SafeMessage(nil))
}
