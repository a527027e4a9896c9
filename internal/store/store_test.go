package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interface is importable and usable.
func TestConsumerLedgerInterfaceExists(t *testing.T) {
	_ = RecordTradeParams{}
	_ = DebitWithdrawalParams{}

	var _ ConsumerLedger
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	sentinels := []error{
		ErrDuplicateTransaction,
		ErrConcurrentModification,
		ErrInsufficientBalance,
		ErrParticipantNotFound,
		ErrParticipantExists,
		ErrTradeNotFound,
		ErrWithdrawalNotFound,
	}

	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("backend failure: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("Expected wrapped error to match %v", sentinel)
		}
		for _, other := range sentinels {
			if other != sentinel && errors.Is(wrapped, other) {
				t.Errorf("Sentinel %v unexpectedly matches %v", sentinel, other)
			}
		}
	}
}

func TestReversalKey(t *testing.T) {
	if got := ReversalKey("tx-1"); got != "tx-1-reversal" {
		t.Errorf("Expected tx-1-reversal, got %s", got)
	}
}
