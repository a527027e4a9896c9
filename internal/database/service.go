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

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.ConsumerLedger.
var _ store.ConsumerLedger = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newServiceWithDB(db)
	if err := service.initSchema(cfg.CreateDummyParticipants); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newServiceWithDB(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Close() {
	closeQuietly(s.db)
}

func (s *Service) initSchema(createDummyParticipants bool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_participants_email ON participants(email);
	CREATE INDEX IF NOT EXISTS idx_participants_active ON participants(active);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.subledger.InitSchema(); err != nil {
		return fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	if !createDummyParticipants {
		zap.L().Info("Skipping dummy participant creation (CREATE_DUMMY_PARTICIPANTS=false)")
		return nil
	}

	participants := []struct {
		name  string
		email string
	}{
		{"Alice Johnson", "alice.johnson@example.com"},
		{"Bob Smith", "bob.smith@example.com"},
		{"Carol Williams", "carol.williams@example.com"},
	}

	for _, p := range participants {
		id := uuid.New().String()
		if _, err := s.db.Exec(queryInsertParticipant, id, p.name, p.email); err != nil {
			zap.L().Error("Failed to insert dummy participant", zap.String("name", p.name), zap.Error(err))
		} else {
			zap.L().Info("Dummy participant created", zap.String("id", id), zap.String("name", p.name))
		}
	}

	return nil
}

// Subledger convenience methods

func (s *Service) GetBalance(ctx context.Context, participantId string, asset string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, participantId, asset)
}

func (s *Service) GetAllBalances(ctx context.Context, participantId string) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx, participantId)
}

func (s *Service) GetEntryHistory(ctx context.Context, participantId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.subledger.GetEntryHistory(ctx, participantId, asset, limit, offset)
}

func (s *Service) ReconcileBalance(ctx context.Context, participantId, asset string) error {
	return s.subledger.ReconcileBalance(ctx, participantId, asset)
}

func (s *Service) RecordTrade(ctx context.Context, params store.RecordTradeParams) (*models.LedgerTrade, error) {
	if params.IdempotencyKey == "" {
		return nil, fmt.Errorf("trade idempotency key cannot be empty")
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("trade amount must be positive, got %s", params.Amount.String())
	}
	return s.subledger.RecordTrade(ctx, params)
}

func (s *Service) GetTrade(ctx context.Context, tradeId string) (*models.LedgerTrade, error) {
	return s.subledger.GetTrade(ctx, tradeId)
}

// DebitWithdrawal removes custodial crypto from a participant. The debit must be
// covered by the participant's balance; repeating the idempotency key is a no-op.
func (s *Service) DebitWithdrawal(ctx context.Context, params store.DebitWithdrawalParams) error {
	if params.IdempotencyKey == "" {
		return fmt.Errorf("withdrawal idempotency key cannot be empty")
	}
	if !params.Amount.IsPositive() {
		return fmt.Errorf("withdrawal amount must be positive, got %s", params.Amount.String())
	}

	if _, err := s.GetParticipantById(ctx, params.ParticipantId); err != nil {
		zap.L().Warn("Withdrawal for unknown participant", zap.String("participant_id", params.ParticipantId))
		return err
	}

	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateEntry, params.IdempotencyKey).Scan(&existingId)
	if err == nil {
		zap.L().Info("Withdrawal debit already recorded", zap.String("idempotency_key", params.IdempotencyKey))
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate entry: %w", err)
	}

	currentBalance, err := s.GetBalance(ctx, params.ParticipantId, params.Asset)
	if err != nil {
		return fmt.Errorf("error getting current balance: %w", err)
	}
	if currentBalance.LessThan(params.Amount) {
		return fmt.Errorf("%w: %s %s available, %s requested",
			store.ErrInsufficientBalance, currentBalance.String(), params.Asset, params.Amount.String())
	}

	zap.L().Info("Processing withdrawal debit",
		zap.String("participant_id", params.ParticipantId),
		zap.String("asset", params.Asset),
		zap.String("current_balance", currentBalance.String()),
		zap.String("withdrawal_amount", params.Amount.String()))

	_, err = s.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		ParticipantId:  params.ParticipantId,
		Asset:          params.Asset,
		EntryType:      entryTypeWithdrawal,
		Amount:         params.Amount.Neg(),
		IdempotencyKey: params.IdempotencyKey,
		Reference:      fmt.Sprintf("WITHDRAWAL: %s %s to %s", params.Amount.String(), params.Asset, params.DestinationAddress),
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateTransaction) {
		return fmt.Errorf("error processing withdrawal debit: %w", err)
	}

	return nil
}

// ReverseWithdrawal credits back a withdrawal debit the custodian never completed.
func (s *Service) ReverseWithdrawal(ctx context.Context, idempotencyKey string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("withdrawal idempotency key cannot be empty")
	}

	var participantId, asset, entryType, amountStr string
	err := s.db.QueryRowContext(ctx, queryGetEntryByKey, idempotencyKey).Scan(&participantId, &asset, &entryType, &amountStr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, idempotencyKey)
	} else if err != nil {
		return fmt.Errorf("failed to look up withdrawal debit: %w", err)
	}
	if entryType != entryTypeWithdrawal {
		return fmt.Errorf("%w: entry %s is a %s", store.ErrWithdrawalNotFound, idempotencyKey, entryType)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("failed to parse withdrawal amount '%s': %w", amountStr, err)
	}

	_, err = s.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		ParticipantId:  participantId,
		Asset:          asset,
		EntryType:      entryTypeReversal,
		Amount:         amount.Abs(),
		IdempotencyKey: store.ReversalKey(idempotencyKey),
		Reference:      fmt.Sprintf("WITHDRAWAL REVERSAL: %s %s", amount.Abs().String(), asset),
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		zap.L().Info("Withdrawal already reversed", zap.String("idempotency_key", idempotencyKey))
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reversing withdrawal: %w", err)
	}

	zap.L().Warn("Withdrawal debit reversed",
		zap.String("participant_id", participantId),
		zap.String("asset", asset),
		zap.String("amount", amount.Abs().String()),
		zap.String("idempotency_key", idempotencyKey))
	return nil
}
