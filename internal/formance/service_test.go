package formance

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"USDC", "USDC/6"},
		{"BTC", "BTC/8"},
		{"ETH", "ETH/18"},
		{"UNKNOWN", "UNKNOWN/6"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USDC/6", "USDC"},
		{"BTC/8", "BTC"},
		{"ETH/18", "ETH"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrecisionFor(t *testing.T) {
	if precisionFor("USDC") != 6 {
		t.Error("expected USDC precision 6")
	}
	if precisionFor("ETH") != 18 {
		t.Error("expected ETH precision 18")
	}
	if precisionFor("DOGE") != 6 {
		t.Error("expected unknown precision default 6")
	}
}

func TestSmallestUnits(t *testing.T) {
	tests := []struct {
		amount string
		symbol string
		want   string
	}{
		{"1.5", "USDC", "1500000"},
		{"0.03125", "ETH", "31250000000000000"},
		{"12.34", "USD", "1234"},
		{"0.0000001", "USDC", "0"}, // below precision truncates
	}
	for _, tt := range tests {
		if got := smallestUnits(decimal.RequireFromString(tt.amount), tt.symbol); got != tt.want {
			t.Errorf("smallestUnits(%s, %s) = %s, want %s", tt.amount, tt.symbol, got, tt.want)
		}
	}
}

func TestBigIntToDecimal(t *testing.T) {
	result := bigIntToDecimal(big.NewInt(1_000_000), "USDC")
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", result.String())
	}

	result = bigIntToDecimal(big.NewInt(100_000_000), "BTC")
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", result.String())
	}

	result = bigIntToDecimal(nil, "USDC")
	if !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"ETH/18":  {Input: big.NewInt(10), Output: big.NewInt(4)},
		"USDC/6":  {Input: big.NewInt(10), Output: big.NewInt(4), Balance: big.NewInt(7)},
		"EMPTY/6": {},
	}
	if got := volumeBalance(vols, "ETH/18"); got.Cmp(big.NewInt(6)) != 0 {
		t.Errorf("expected derived balance 6, got %s", got)
	}
	if got := volumeBalance(vols, "USDC/6"); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("expected reported balance 7, got %s", got)
	}
	if got := volumeBalance(vols, "EMPTY/6"); got != nil {
		t.Errorf("expected nil for empty volume, got %s", got)
	}
	if got := volumeBalance(vols, "BTC/8"); got != nil {
		t.Errorf("expected nil for missing asset, got %s", got)
	}
}

func TestIsConflictError(t *testing.T) {
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
}

func TestIsParticipantAccount(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"participants:abc-123", true},
		{"participants:abc:ETH", false},
		{"participants:", false},
		{"platform:withdrawals:sent", false},
	}
	for _, tt := range tests {
		if got := isParticipantAccount(tt.address); got != tt.want {
			t.Errorf("isParticipantAccount(%q) = %v, want %v", tt.address, got, tt.want)
		}
	}
}

func TestTradeIdForIsStable(t *testing.T) {
	first := tradeIdFor("txn-1")
	if first != tradeIdFor("txn-1") {
		t.Error("expected the same trade id for the same key")
	}
	if first == tradeIdFor("txn-2") {
		t.Error("expected different trade ids for different keys")
	}
}

func TestTransactionToTrade(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tx := shared.V2Transaction{
		Timestamp: ts,
		Postings: []shared.V2Posting{{
			Source:      "participants:platform",
			Destination: "participants:consumer-1",
			Asset:       "ETH/18",
			Amount:      big.NewInt(500_000_000_000_000_000),
		}},
		Metadata: map[string]string{
			"trade_id":        "trade-1",
			"idempotency_key": "txn-1",
			"asset_symbol":    "ETH",
			"amount_human":    "0.5",
			"quote_currency":  "USD",
			"quote_amount":    "1000",
			"price":           "2000",
		},
	}

	trade, err := transactionToTrade(tx)
	if err != nil {
		t.Fatalf("transactionToTrade failed: %v", err)
	}
	if trade.BuyerId != "consumer-1" || trade.SellerId != "platform" {
		t.Errorf("unexpected parties buyer=%s seller=%s", trade.BuyerId, trade.SellerId)
	}
	if !trade.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected amount 0.5, got %s", trade.Amount.String())
	}
	if !trade.Price.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected price 2000, got %s", trade.Price.String())
	}
	if trade.Status != "settled" || !trade.CreatedAt.Equal(ts) {
		t.Errorf("unexpected status %s or timestamp %s", trade.Status, trade.CreatedAt)
	}

	tx.Metadata["price"] = "not-a-number"
	if _, err := transactionToTrade(tx); err == nil {
		t.Error("expected error for malformed price")
	}
}

func TestSettlementMetadata(t *testing.T) {
	if meta := settlementMetadata(context.Background()); meta != nil {
		t.Errorf("Expected no metadata without a settlement, got %v", meta)
	}

	ctx := models.WithSettlementContext(context.Background(), &models.SettlementContext{
		TransactionId: "tx-1",
		Stage:         "consumer_account",
	})
	meta := settlementMetadata(ctx)
	if meta["settlement_transaction_id"] != "tx-1" {
		t.Errorf("Expected transaction id tx-1, got %q", meta["settlement_transaction_id"])
	}
	if meta["settlement_stage"] != "consumer_account" {
		t.Errorf("Expected stage consumer_account, got %q", meta["settlement_stage"])
	}
	if _, ok := meta["settlement_consumer_id"]; ok {
		t.Error("Expected empty consumer id to be omitted")
	}
}

func TestWithdrawalReversalReference(t *testing.T) {
	debit := withdrawalReference("tx-1")
	reversal := withdrawalReference(store.ReversalKey("tx-1"))
	if debit != "withdrawal:tx-1" {
		t.Errorf("unexpected debit reference %q", debit)
	}
	if reversal != "withdrawal:tx-1-reversal" {
		t.Errorf("unexpected reversal reference %q", reversal)
	}
	if !strings.Contains(numscriptWithdrawalReversed, "source = @platform:withdrawals:sent") ||
		!strings.Contains(numscriptWithdrawalReversed, "destination = @participants:$participant_id") {
		t.Error("expected the reversal to move funds from the sent account back to the participant")
	}
}
