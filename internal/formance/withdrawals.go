package formance

import (
	"context"
	"fmt"

	"prime-conversion-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

const numscriptWithdrawalSent = `vars {
  asset $asset
  number $amount
  account $participant_id
  string $destination_address
  string $idempotency_key
  string $asset_symbol
  string $amount_human
}

send [$asset $amount] (
  source = @participants:$participant_id
  destination = @platform:withdrawals:sent
)

set_tx_meta("event_type", "withdrawal_sent")
set_tx_meta("destination_address", $destination_address)
set_tx_meta("idempotency_key", $idempotency_key)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalReversed = `vars {
  asset $asset
  number $amount
  account $participant_id
  string $idempotency_key
  string $asset_symbol
  string $amount_human
}

send [$asset $amount] (
  source = @platform:withdrawals:sent
  destination = @participants:$participant_id
)

set_tx_meta("event_type", "withdrawal_reversed")
set_tx_meta("idempotency_key", $idempotency_key)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
`

func withdrawalReference(idempotencyKey string) string {
	return "withdrawal:" + idempotencyKey
}

// DebitWithdrawal moves custodial crypto out of the participant's account. The script
// also forbids overdraft; a repeated idempotency key conflicts and is treated as done.
func (s *Service) DebitWithdrawal(ctx context.Context, params store.DebitWithdrawalParams) error {
	if params.IdempotencyKey == "" {
		return fmt.Errorf("withdrawal idempotency key cannot be empty")
	}
	if !params.Amount.IsPositive() {
		return fmt.Errorf("withdrawal amount must be positive, got %s", params.Amount.String())
	}
	if _, err := s.GetParticipantById(ctx, params.ParticipantId); err != nil {
		return err
	}

	reference := withdrawalReference(params.IdempotencyKey)
	if existing, err := s.findByReference(ctx, reference); err != nil {
		return err
	} else if existing != nil {
		zap.L().Info("Withdrawal debit already recorded", zap.String("idempotency_key", params.IdempotencyKey))
		return nil
	}

	balance, err := s.GetBalance(ctx, params.ParticipantId, params.Asset)
	if err != nil {
		return fmt.Errorf("error getting current balance: %w", err)
	}
	if balance.LessThan(params.Amount) {
		return fmt.Errorf("%w: %s %s available, %s requested",
			store.ErrInsufficientBalance, balance.String(), params.Asset, params.Amount.String())
	}

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Metadata:  settlementMetadata(ctx),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptWithdrawalSent,
				Vars: map[string]string{
					"asset":               formanceAsset(params.Asset),
					"amount":              smallestUnits(params.Amount, params.Asset),
					"participant_id":      params.ParticipantId,
					"destination_address": params.DestinationAddress,
					"idempotency_key":     params.IdempotencyKey,
					"asset_symbol":        params.Asset,
					"amount_human":        params.Amount.String(),
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Withdrawal debit already recorded", zap.String("idempotency_key", params.IdempotencyKey))
			return nil
		}
		return fmt.Errorf("error processing withdrawal debit: %w", err)
	}

	zap.L().Info("Withdrawal debit recorded in Formance",
		zap.String("participant_id", params.ParticipantId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount.String()))
	return nil
}

// ReverseWithdrawal moves a failed withdrawal back from the sent account to the
// participant it was debited from.
func (s *Service) ReverseWithdrawal(ctx context.Context, idempotencyKey string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("withdrawal idempotency key cannot be empty")
	}

	debit, err := s.findByReference(ctx, withdrawalReference(idempotencyKey))
	if err != nil {
		return err
	}
	if debit == nil || len(debit.Postings) == 0 {
		return fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, idempotencyKey)
	}

	posting := debit.Postings[0]
	participantId := trimParticipant(posting.Source)
	symbol := debit.Metadata["asset_symbol"]

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(withdrawalReference(store.ReversalKey(idempotencyKey))),
			Metadata:  settlementMetadata(ctx),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptWithdrawalReversed,
				Vars: map[string]string{
					"asset":           posting.Asset,
					"amount":          posting.Amount.String(),
					"participant_id":  participantId,
					"idempotency_key": store.ReversalKey(idempotencyKey),
					"asset_symbol":    symbol,
					"amount_human":    debit.Metadata["amount_human"],
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Withdrawal already reversed", zap.String("idempotency_key", idempotencyKey))
			return nil
		}
		return fmt.Errorf("error reversing withdrawal: %w", err)
	}

	zap.L().Warn("Withdrawal debit reversed in Formance",
		zap.String("participant_id", participantId),
		zap.String("asset", symbol),
		zap.String("amount", debit.Metadata["amount_human"]),
		zap.String("idempotency_key", idempotencyKey))
	return nil
}

// findByReference returns the transaction posted under reference, or nil.
func (s *Service) findByReference(ctx context.Context, reference string) (*shared.V2Transaction, error) {
	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: ptrInt64(1),
		RequestBody: map[string]any{
			"$match": map[string]any{
				"reference": reference,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction %s: %w", reference, err)
	}
	if len(resp.V2TransactionsCursorResponse.Cursor.Data) == 0 {
		return nil, nil
	}
	return &resp.V2TransactionsCursorResponse.Cursor.Data[0], nil
}
