package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"prime-conversion-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*SubledgerService, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	service := NewSubledgerService(db)

	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func TestProcessTransaction_TradeCredit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	participantId := "participant1"
	asset := "ETH"
	amount := decimal.RequireFromString("1.5")

	result, err := service.ProcessTransaction(ctx, ProcessTransactionParams{participantId, asset, entryTypeTradeCredit, amount, "tx1", "memo1"})
	if err != nil {
		t.Fatalf("ProcessTransaction failed: %v", err)
	}

	if result.ParticipantId != participantId {
		t.Errorf("Expected participantId %s, got %s", participantId, result.ParticipantId)
	}
	if result.Asset != asset {
		t.Errorf("Expected asset %s, got %s", asset, result.Asset)
	}
	if !result.Amount.Equal(amount) {
		t.Errorf("Expected amount %s, got %s", amount.String(), result.Amount.String())
	}
	if !result.BalanceAfter.Equal(amount) {
		t.Errorf("Expected balance %s, got %s", amount.String(), result.BalanceAfter.String())
	}
}

func TestProcessTransaction_Withdrawal(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	participantId := "participant1"
	asset := "ETH"

	_, err := service.ProcessTransaction(ctx, ProcessTransactionParams{participantId, asset, entryTypeTradeCredit, decimal.RequireFromString("2.0"), "tx1", ""})
	if err != nil {
		t.Fatalf("Initial credit failed: %v", err)
	}

	result, err := service.ProcessTransaction(ctx, ProcessTransactionParams{participantId, asset, entryTypeWithdrawal, decimal.RequireFromString("-0.5"), "tx2", ""})
	if err != nil {
		t.Fatalf("ProcessTransaction withdrawal failed: %v", err)
	}

	expectedBalance := decimal.RequireFromString("1.5")
	if !result.BalanceAfter.Equal(expectedBalance) {
		t.Errorf("Expected balance %s, got %s", expectedBalance.String(), result.BalanceAfter.String())
	}
}

func TestProcessTransaction_DecimalPrecisionPreserved(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for i, amount := range []string{"0.1", "0.2", "0.000000000000000001"} {
		key := []string{"a", "b", "c"}[i]
		if _, err := service.ProcessTransaction(ctx, ProcessTransactionParams{"participant1", "ETH", entryTypeTradeCredit, decimal.RequireFromString(amount), key, ""}); err != nil {
			t.Fatalf("ProcessTransaction failed: %v", err)
		}
	}

	balance, err := service.GetBalance(ctx, "participant1", "ETH")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	expected := decimal.RequireFromString("0.300000000000000001")
	if !balance.Equal(expected) {
		t.Errorf("Expected balance %s, got %s", expected.String(), balance.String())
	}

	if err := service.ReconcileBalance(ctx, "participant1", "ETH"); err != nil {
		t.Errorf("ReconcileBalance failed: %v", err)
	}
}

func TestReconcileBalance_DetectsDrift(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.ProcessTransaction(ctx, ProcessTransactionParams{"participant1", "ETH", entryTypeTradeCredit, decimal.NewFromInt(2), "drift-1", ""}); err != nil {
		t.Fatalf("ProcessTransaction failed: %v", err)
	}
	if err := service.ReconcileBalance(ctx, "participant1", "ETH"); err != nil {
		t.Fatalf("Expected balances to match, got %v", err)
	}

	if _, err := service.db.ExecContext(ctx, `UPDATE account_balances SET balance = '3' WHERE participant_id = ? AND asset = ?`, "participant1", "ETH"); err != nil {
		t.Fatalf("Failed to tamper with balance: %v", err)
	}

	err := service.ReconcileBalance(ctx, "participant1", "ETH")
	if !errors.Is(err, ErrBalanceDrift) {
		t.Errorf("Expected ErrBalanceDrift, got %v", err)
	}
}

func TestProcessTransaction_DuplicateHandling(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	amount := decimal.NewFromInt(1)
	key := "duplicate-tx"

	_, err := service.ProcessTransaction(ctx, ProcessTransactionParams{"participant1", "ETH", entryTypeTradeCredit, amount, key, ""})
	if err != nil {
		t.Fatalf("First ProcessTransaction failed: %v", err)
	}

	_, err = service.ProcessTransaction(ctx, ProcessTransactionParams{"participant1", "ETH", entryTypeTradeCredit, amount, key, ""})
	if err == nil {
		t.Fatalf("Expected duplicate transaction error, got nil")
	}
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("Expected duplicate transaction error, got: %v", err)
	}

	balance, _ := service.GetBalance(ctx, "participant1", "ETH")
	if !balance.Equal(amount) {
		t.Errorf("Expected balance %s after duplicate, got %s", amount.String(), balance.String())
	}
}

func TestProcessTransaction_NegativeBalanceAllowed(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	withdrawalAmount := decimal.NewFromInt(-1)
	result, err := service.ProcessTransaction(ctx, ProcessTransactionParams{"platform", "ETH", "trade-debit", withdrawalAmount, "tx1", ""})
	if err != nil {
		t.Fatalf("ProcessTransaction with negative balance failed: %v", err)
	}

	if !result.BalanceAfter.Equal(withdrawalAmount) {
		t.Errorf("Expected negative balance %s, got %s", withdrawalAmount.String(), result.BalanceAfter.String())
	}
}

func TestGetEntryHistory(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for i, key := range []string{"tx1", "tx2", "tx3"} {
		amount := decimal.NewFromInt(int64(i + 1))
		if _, err := service.ProcessTransaction(ctx, ProcessTransactionParams{"participant1", "ETH", entryTypeTradeCredit, amount, key, ""}); err != nil {
			t.Fatalf("ProcessTransaction failed: %v", err)
		}
	}

	entries, err := service.GetEntryHistory(ctx, "participant1", "ETH", 2, 0)
	if err != nil {
		t.Fatalf("GetEntryHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].IdempotencyKey != "tx3" {
		t.Errorf("Expected newest entry first, got %s", entries[0].IdempotencyKey)
	}
	if !entries[0].BalanceAfter.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected balance after 6, got %s", entries[0].BalanceAfter.String())
	}
}
