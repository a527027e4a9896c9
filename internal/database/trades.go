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
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// RecordTrade moves the traded asset from seller to buyer and stores the trade, all in
// one transaction. Repeating an idempotency key returns the trade first recorded for it.
func (s *SubledgerService) RecordTrade(ctx context.Context, params store.RecordTradeParams) (*models.LedgerTrade, error) {
	existing, err := scanTrade(s.db.QueryRowContext(ctx, queryGetTradeByKey, params.IdempotencyKey))
	if err == nil {
		zap.L().Info("Trade already recorded for idempotency key",
			zap.String("idempotency_key", params.IdempotencyKey),
			zap.String("trade_id", existing.Id))
		return existing, nil
	}
	if !errors.Is(err, store.ErrTradeNotFound) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reference := fmt.Sprintf("TRADE: %s %s @ %s %s", params.Amount.String(), params.Asset, params.Price.String(), params.QuoteCurrency)

	if _, err := s.applyEntry(ctx, tx, ProcessTransactionParams{
		ParticipantId:  params.SellerId,
		Asset:          params.Asset,
		EntryType:      entryTypeTradeDebit,
		Amount:         params.Amount.Neg(),
		IdempotencyKey: params.IdempotencyKey + "-seller",
		Reference:      reference,
	}); err != nil {
		return nil, fmt.Errorf("failed to debit seller: %w", err)
	}

	if _, err := s.applyEntry(ctx, tx, ProcessTransactionParams{
		ParticipantId:  params.BuyerId,
		Asset:          params.Asset,
		EntryType:      entryTypeTradeCredit,
		Amount:         params.Amount,
		IdempotencyKey: params.IdempotencyKey + "-buyer",
		Reference:      reference,
	}); err != nil {
		return nil, fmt.Errorf("failed to credit buyer: %w", err)
	}

	trade := &models.LedgerTrade{
		Id:             uuid.New().String(),
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
	}

	_, err = tx.ExecContext(ctx, queryInsertTrade,
		trade.Id, trade.IdempotencyKey, trade.BuyerId, trade.SellerId, trade.Asset, trade.Amount.String(),
		trade.QuoteCurrency, trade.QuoteAmount.String(), trade.Price.String(), trade.Status, trade.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	zap.L().Info("Trade recorded",
		zap.String("trade_id", trade.Id),
		zap.String("buyer_id", trade.BuyerId),
		zap.String("seller_id", trade.SellerId),
		zap.String("asset", trade.Asset),
		zap.String("amount", trade.Amount.String()),
		zap.String("price", trade.Price.String()))

	return trade, nil
}

// GetTrade returns a recorded trade by its ID
func (s *SubledgerService) GetTrade(ctx context.Context, tradeId string) (*models.LedgerTrade, error) {
	return scanTrade(s.db.QueryRowContext(ctx, queryGetTradeById, tradeId))
}

func scanTrade(row rowScanner) (*models.LedgerTrade, error) {
	var t models.LedgerTrade
	var amountStr, quoteAmountStr, priceStr string
	err := row.Scan(&t.Id, &t.IdempotencyKey, &t.BuyerId, &t.SellerId, &t.Asset, &amountStr,
		&t.QuoteCurrency, &quoteAmountStr, &priceStr, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTradeNotFound
		}
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}

	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse trade amount '%s': %w", amountStr, err)
	}
	if t.QuoteAmount, err = decimal.NewFromString(quoteAmountStr); err != nil {
		return nil, fmt.Errorf("failed to parse trade quote amount '%s': %w", quoteAmountStr, err)
	}
	if t.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse trade price '%s': %w", priceStr, err)
	}

	return &t, nil
}
