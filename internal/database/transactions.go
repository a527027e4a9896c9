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

// Entry types recorded in the subledger
const (
	entryTypeTradeCredit = "trade-credit"
	entryTypeTradeDebit  = "trade-debit"
	entryTypeWithdrawal  = "withdrawal"
	entryTypeReversal    = "withdrawal-reversal"
)

// ProcessTransactionParams contains the parameters for processing a transaction
type ProcessTransactionParams struct {
	ParticipantId  string
	Asset          string
	EntryType      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Reference      string
}

// ProcessTransaction atomically updates balance and records the ledger entry
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.applyEntry(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// applyEntry records one balance movement inside an open transaction so that several
// movements (e.g. both sides of a trade) commit or fail together.
func (s *SubledgerService) applyEntry(ctx context.Context, tx *sql.Tx, params ProcessTransactionParams) (*models.LedgerEntry, error) {
	zap.L().Info("Processing ledger entry",
		zap.String("participant_id", params.ParticipantId),
		zap.String("asset", params.Asset),
		zap.String("type", params.EntryType),
		zap.String("amount", params.Amount.String()),
		zap.String("idempotency_key", params.IdempotencyKey))

	if params.IdempotencyKey != "" {
		var existingId string
		err := tx.QueryRowContext(ctx, queryCheckDuplicateEntry, params.IdempotencyKey).Scan(&existingId)
		if err == nil {
			zap.L().Warn("Duplicate idempotency key detected, skipping",
				zap.String("idempotency_key", params.IdempotencyKey),
				zap.String("existing_entry_id", existingId))
			return nil, fmt.Errorf("%w: idempotency key %s already exists", store.ErrDuplicateTransaction, params.IdempotencyKey)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate entry: %w", err)
		}
	}

	var currentBalanceStr string
	var accountId string
	var version int64

	err := tx.QueryRowContext(ctx, queryGetAccountBalance, params.ParticipantId, params.Asset).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.ParticipantId, params.Asset, "0", 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(params.Amount)

	entry := &models.LedgerEntry{
		Id:             uuid.New().String(),
		ParticipantId:  params.ParticipantId,
		Asset:          params.Asset,
		EntryType:      params.EntryType,
		Amount:         params.Amount,
		BalanceBefore:  currentBalance,
		BalanceAfter:   newBalance,
		IdempotencyKey: params.IdempotencyKey,
		Reference:      params.Reference,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertEntry,
		entry.Id, entry.ParticipantId, entry.Asset, entry.EntryType,
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.IdempotencyKey, entry.Reference, "confirmed", entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	// Optimistic locking on the balance row
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), entry.Id, params.ParticipantId, params.Asset, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := s.addJournalEntries(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Info("Ledger entry processed successfully",
		zap.String("entry_id", entry.Id),
		zap.String("participant_id", params.ParticipantId),
		zap.String("asset", params.Asset),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return entry, nil
}

type journalLine struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// addJournalEntries creates double-entry bookkeeping entries. Credits to a participant
// raise the platform's custodial liability, debits lower it.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry) error {
	participantAccount := fmt.Sprintf("%s_%s", entry.ParticipantId, entry.Asset)
	liabilityAccount := fmt.Sprintf("custody_%s", entry.Asset)

	var lines []journalLine
	if entry.Amount.IsPositive() {
		lines = []journalLine{
			{"participant_asset", participantAccount, entry.Amount, decimal.Zero},
			{"system_liability", liabilityAccount, decimal.Zero, entry.Amount},
		}
	} else if entry.Amount.IsNegative() {
		lines = []journalLine{
			{"participant_asset", participantAccount, decimal.Zero, entry.Amount.Neg()},
			{"system_liability", liabilityAccount, entry.Amount.Neg(), decimal.Zero},
		}
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), entry.Id, line.accountType, line.accountId, line.debitAmount.String(), line.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetEntryHistory returns paginated ledger entries for a participant
func (s *SubledgerService) GetEntryHistory(ctx context.Context, participantId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting entry history",
		zap.String("participant_id", participantId),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetEntryHistory, participantId, asset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&e.Id, &e.ParticipantId, &e.Asset, &e.EntryType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&e.IdempotencyKey, &e.Reference, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if e.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during entry row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}

	return entries, nil
}
