package store

import (
	"context"
	"errors"

	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantExists      = errors.New("participant already exists")
	ErrTradeNotFound          = errors.New("trade not found")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
)

// ReversalKey is the idempotency key under which a withdrawal debit is credited back.
func ReversalKey(idempotencyKey string) string {
	return idempotencyKey + "-reversal"
}

// RecordTradeParams describes an internal trade in which the platform participant
// sells custodial crypto to a consumer participant at a fixed price.
type RecordTradeParams struct {
	IdempotencyKey string
	BuyerId        string
	SellerId       string
	Asset          string
	Amount         decimal.Decimal
	QuoteCurrency  string
	QuoteAmount    decimal.Decimal
	Price          decimal.Decimal
}

// DebitWithdrawalParams removes custodial crypto from a participant when it is
// sent to an external address.
type DebitWithdrawalParams struct {
	ParticipantId      string
	Asset              string
	Amount             decimal.Decimal
	DestinationAddress string
	IdempotencyKey     string
}

// ConsumerLedger defines the contract that every backend (SQLite, Formance, ...) must satisfy.
// Writes are idempotent on the caller's key: repeating a trade returns the original
// record, repeating a debit is a no-op.
type ConsumerLedger interface {
	// --- Participants ---
	GetParticipants(ctx context.Context) ([]models.Participant, error)
	GetParticipantById(ctx context.Context, participantId string) (*models.Participant, error)
	GetParticipantByEmail(ctx context.Context, email string) (*models.Participant, error)
	CreateParticipant(ctx context.Context, participantId, name, email string) (*models.Participant, error)

	// --- Trades ---
	RecordTrade(ctx context.Context, params RecordTradeParams) (*models.LedgerTrade, error)
	GetTrade(ctx context.Context, tradeId string) (*models.LedgerTrade, error)

	// --- Withdrawals ---
	DebitWithdrawal(ctx context.Context, params DebitWithdrawalParams) error
	// ReverseWithdrawal credits back the debit recorded under idempotencyKey once the
	// custodian reports the withdrawal as failed. Reversing twice is a no-op.
	ReverseWithdrawal(ctx context.Context, idempotencyKey string) error

	// --- Balances ---
	GetBalance(ctx context.Context, participantId, asset string) (decimal.Decimal, error)
	GetAllBalances(ctx context.Context, participantId string) ([]models.AccountBalance, error)

	// --- Lifecycle ---
	Close()
}
