package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant represents a consumer's identity in the custodial ledger
type Participant struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id                string          `db:"id"`
	ParticipantId     string          `db:"participant_id"`
	Asset             string          `db:"asset"`
	Balance           decimal.Decimal `db:"balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// LedgerEntry represents immutable balance movement history (cold data)
type LedgerEntry struct {
	Id             string          `db:"id"`
	ParticipantId  string          `db:"participant_id"`
	Asset          string          `db:"asset"`
	EntryType      string          `db:"entry_type"`
	Amount         decimal.Decimal `db:"amount"`
	BalanceBefore  decimal.Decimal `db:"balance_before"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	IdempotencyKey string          `db:"idempotency_key"`
	Reference      string          `db:"reference"`
	CreatedAt      time.Time       `db:"created_at"`
}

// LedgerTrade represents an internal trade between two ledger participants
type LedgerTrade struct {
	Id             string          `db:"id"`
	IdempotencyKey string          `db:"idempotency_key"`
	BuyerId        string          `db:"buyer_id"`
	SellerId       string          `db:"seller_id"`
	Asset          string          `db:"asset"`
	Amount         decimal.Decimal `db:"amount"`
	QuoteCurrency  string          `db:"quote_currency"`
	QuoteAmount    decimal.Decimal `db:"quote_amount"`
	Price          decimal.Decimal `db:"price"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
}

const (
	LedgerTradeSettled = "settled"
)

// ConsumerBalance is a non-zero custodial balance as reported to operators
type ConsumerBalance struct {
	Asset   string
	Balance decimal.Decimal
}
