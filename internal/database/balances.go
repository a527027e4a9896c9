package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrBalanceDrift means a cached custodial balance no longer equals the sum of
// its confirmed ledger entries.
var ErrBalanceDrift = errors.New("custodial balance drifted from ledger entries")

// GetBalance reads the cached custodial balance. A participant with no row holds zero.
func (s *SubledgerService) GetBalance(ctx context.Context, participantId, asset string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, queryGetBalance, participantId, asset).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Custodial balance read failed",
			zap.String("participant_id", participantId),
			zap.String("asset", asset),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return parseStoredAmount("balance", raw)
}

// GetAllBalances returns all non-zero balances for a participant
func (s *SubledgerService) GetAllBalances(ctx context.Context, participantId string) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllParticipantBalances, participantId)
	if err != nil {
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer closeRows(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var raw string
		if err := rows.Scan(&balance.Id, &balance.ParticipantId, &balance.Asset, &raw,
			&balance.LastTransactionId, &balance.Version, &balance.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		if balance.Balance, err = parseStoredAmount("balance", raw); err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Participant holdings loaded",
		zap.String("participant_id", participantId),
		zap.Int("assets_held", len(balances)))
	return balances, nil
}

// ReconcileBalance replays the participant's confirmed entries for asset and
// compares the total with the cached balance. A mismatch wraps ErrBalanceDrift.
func (s *SubledgerService) ReconcileBalance(ctx context.Context, participantId, asset string) error {
	cached, err := s.GetBalance(ctx, participantId, asset)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	replayed, entries, err := s.sumEntries(ctx, participantId, asset)
	if err != nil {
		return err
	}

	if !cached.Equal(replayed) {
		zap.L().Error("Custodial balance drifted from ledger entries",
			zap.String("participant_id", participantId),
			zap.String("asset", asset),
			zap.String("cached_balance", cached.String()),
			zap.String("replayed_balance", replayed.String()),
			zap.Int("entries", entries))
		return fmt.Errorf("%w: %s %s cached=%s replayed=%s",
			ErrBalanceDrift, participantId, asset, cached.String(), replayed.String())
	}

	zap.L().Info("Custodial balance matches ledger",
		zap.String("participant_id", participantId),
		zap.String("asset", asset),
		zap.String("balance", cached.String()),
		zap.Int("entries", entries))
	return nil
}

func (s *SubledgerService) sumEntries(ctx context.Context, participantId, asset string) (decimal.Decimal, int, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEntryAmounts, participantId, asset)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	defer closeRows(rows)

	total := decimal.Zero
	count := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, 0, fmt.Errorf("failed to scan entry amount: %w", err)
		}
		amount, err := parseStoredAmount("entry amount", raw)
		if err != nil {
			return decimal.Zero, 0, err
		}
		total = total.Add(amount)
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return total, count, nil
}

// parseStoredAmount reads a decimal persisted as TEXT.
func parseStoredAmount(what, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s '%s': %w", what, raw, err)
	}
	return amount, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
