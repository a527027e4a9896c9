package formance

import (
	"context"
	"fmt"
	"time"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The seller is the platform's omnibus participant, so it may run negative against
// inventory held at the custodian.
const numscriptInternalTrade = `vars {
  asset $asset
  number $amount
  account $buyer_id
  account $seller_id
  string $trade_id
  string $idempotency_key
  string $asset_symbol
  string $amount_human
  string $quote_currency
  string $quote_amount
  string $price
}

send [$asset $amount] (
  source = @participants:$seller_id allowing unbounded overdraft
  destination = @participants:$buyer_id
)

set_tx_meta("event_type", "internal_trade")
set_tx_meta("trade_id", $trade_id)
set_tx_meta("idempotency_key", $idempotency_key)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("quote_currency", $quote_currency)
set_tx_meta("quote_amount", $quote_amount)
set_tx_meta("price", $price)
`

// tradeIdFor derives a stable trade ID from the caller's idempotency key so a retried
// trade resolves to the same ID without a lookup.
func tradeIdFor(idempotencyKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("trade:"+idempotencyKey)).String()
}

// RecordTrade posts an internal trade as a single Numscript transaction referenced by
// the idempotency key. A conflicting reference means the trade already exists.
func (s *Service) RecordTrade(ctx context.Context, params store.RecordTradeParams) (*models.LedgerTrade, error) {
	if params.IdempotencyKey == "" {
		return nil, fmt.Errorf("trade idempotency key cannot be empty")
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("trade amount must be positive, got %s", params.Amount.String())
	}

	tradeId := tradeIdFor(params.IdempotencyKey)

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr("trade:" + params.IdempotencyKey),
			Metadata:  settlementMetadata(ctx),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptInternalTrade,
				Vars: map[string]string{
					"asset":           formanceAsset(params.Asset),
					"amount":          smallestUnits(params.Amount, params.Asset),
					"buyer_id":        params.BuyerId,
					"seller_id":       params.SellerId,
					"trade_id":        tradeId,
					"idempotency_key": params.IdempotencyKey,
					"asset_symbol":    params.Asset,
					"amount_human":    params.Amount.String(),
					"quote_currency":  params.QuoteCurrency,
					"quote_amount":    params.QuoteAmount.String(),
					"price":           params.Price.String(),
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Trade already recorded for idempotency key",
				zap.String("idempotency_key", params.IdempotencyKey),
				zap.String("trade_id", tradeId))
			return s.GetTrade(ctx, tradeId)
		}
		return nil, fmt.Errorf("failed to record trade: %w", err)
	}

	zap.L().Info("Trade recorded in Formance",
		zap.String("trade_id", tradeId),
		zap.String("buyer_id", params.BuyerId),
		zap.String("seller_id", params.SellerId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount.String()))

	return &models.LedgerTrade{
		Id:             tradeId,
		IdempotencyKey: params.IdempotencyKey,
		BuyerId:        params.BuyerId,
		SellerId:       params.SellerId,
		Asset:          params.Asset,
		Amount:         params.Amount,
		QuoteCurrency:  params.QuoteCurrency,
		QuoteAmount:    params.QuoteAmount,
		Price:          params.Price,
		Status:         models.LedgerTradeSettled,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// GetTrade finds a trade transaction by its trade_id metadata.
func (s *Service) GetTrade(ctx context.Context, tradeId string) (*models.LedgerTrade, error) {
	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: ptrInt64(1),
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[trade_id]": tradeId,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find trade %s: %w", tradeId, err)
	}
	if len(resp.V2TransactionsCursorResponse.Cursor.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrTradeNotFound, tradeId)
	}

	return transactionToTrade(resp.V2TransactionsCursorResponse.Cursor.Data[0])
}

// transactionToTrade rebuilds a trade from the metadata the trade script attached.
func transactionToTrade(tx shared.V2Transaction) (*models.LedgerTrade, error) {
	meta := tx.Metadata
	trade := &models.LedgerTrade{
		Id:             meta["trade_id"],
		IdempotencyKey: meta["idempotency_key"],
		Asset:          meta["asset_symbol"],
		QuoteCurrency:  meta["quote_currency"],
		Status:         models.LedgerTradeSettled,
		CreatedAt:      tx.Timestamp,
	}

	for _, p := range tx.Postings {
		trade.SellerId = trimParticipant(p.Source)
		trade.BuyerId = trimParticipant(p.Destination)
	}

	var err error
	if trade.Amount, err = decimal.NewFromString(meta["amount_human"]); err != nil {
		return nil, fmt.Errorf("invalid trade amount %q: %w", meta["amount_human"], err)
	}
	if trade.QuoteAmount, err = decimal.NewFromString(meta["quote_amount"]); err != nil {
		return nil, fmt.Errorf("invalid trade quote amount %q: %w", meta["quote_amount"], err)
	}
	if trade.Price, err = decimal.NewFromString(meta["price"]); err != nil {
		return nil, fmt.Errorf("invalid trade price %q: %w", meta["price"], err)
	}
	if tx.Reverted {
		trade.Status = "reverted"
	}

	return trade, nil
}

func trimParticipant(address string) string {
	if isParticipantAccount(address) {
		return address[len(participantPrefix):]
	}
	return address
}
