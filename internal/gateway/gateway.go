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

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all gateway implementations.
var (
	ErrQuoteNotFound       = errors.New("quote not found or expired")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already exists")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
)

// Provider trade states.
const (
	TradeStateAccepted   = "accepted"
	TradeStateActive     = "active"
	TradeStateTerminated = "terminated"
)

// Provider transfer states.
const (
	TransferStatusApproved  = "approved"
	TransferStatusPending   = "pending"
	TransferStatusSettled   = "settled"
	TransferStatusRejected  = "rejected"
	TransferStatusCancelled = "cancelled"
)

// Provider withdrawal states.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
	WithdrawalStatusSettled  = "settled"
)

// On-chain states of a settled withdrawal.
const (
	OnChainStatusPending   = "pending"
	OnChainStatusConfirmed = "confirmed"
	OnChainStatusError     = "error"
)

// NetworkFee is the provider's estimate of the blockchain fee for a withdrawal.
type NetworkFee struct {
	FeeInCrypto decimal.Decimal
	FeeInFiat   decimal.Decimal
}

// ProviderQuote is a short-lived executable price.
type ProviderQuote struct {
	QuoteId        string
	CryptoCurrency string
	FiatCurrency   string
	PerUnitPrice   decimal.Decimal
	ExpiresAt      time.Time
}

// TradeExecution is the provider's report of an executed quote. The currencies are
// the pair the provider says it traded.
type TradeExecution struct {
	TradeId        string
	CryptoCurrency string
	FiatCurrency   string
	TradePrice     decimal.Decimal
	CryptoReceived decimal.Decimal
}

// TradeRequest is an internal trade between two provider-side participants.
type TradeRequest struct {
	BuyerId       string
	SellerId      string
	BaseCurrency  string
	QuoteCurrency string
	BaseAmount    decimal.Decimal
	QuoteAmount   decimal.Decimal
	Price         decimal.Decimal
	IdempotencyId string
}

// TradeStatus is a trade's raw provider state.
type TradeStatus struct {
	State        string
	Settled      bool
	SettledAt    *time.Time
	ErrorMessage string
}

// TransferRequest moves an asset between two provider accounts.
type TransferRequest struct {
	FromAccount   string
	ToAccount     string
	Asset         string
	Amount        decimal.Decimal
	IdempotencyId string
}

// Transfer is a transfer's raw provider state.
type Transfer struct {
	Status     string
	MovementId string
}

// WithdrawalRequest sends custodial crypto to an external address.
type WithdrawalRequest struct {
	Address           string
	Amount            decimal.Decimal
	Asset             string
	ParticipantId     string
	AccountGroup      string
	SmartContractData []byte
	IdempotencyId     string
}

// Withdrawal is a withdrawal's raw provider state.
type Withdrawal struct {
	WithdrawalStatus     string
	OnChainStatus        string
	OnChainTransactionId string
	RequestedAmount      decimal.Decimal
	SettledAmount        decimal.Decimal
}

// ParticipantRequest identifies a consumer to register with the provider.
type ParticipantRequest struct {
	Email string
	Name  string
}

// Participant is a consumer's provider-side identity.
type Participant struct {
	Id    string
	Email string
	Name  string
}

// LiquidityProviderGateway is the contract the settlement engine needs from a
// custody/liquidity provider. Every creation call takes the caller's transaction ID
// as idempotency key; repeating it must return the original result.
type LiquidityProviderGateway interface {
	EstimateNetworkFee(ctx context.Context, crypto, fiat string) (*NetworkFee, error)
	RequestQuoteFixedFiat(ctx context.Context, crypto, fiat string, fiatAmount decimal.Decimal) (*ProviderQuote, error)
	RequestQuoteFixedCrypto(ctx context.Context, crypto, fiat string, cryptoQuantity decimal.Decimal) (*ProviderQuote, error)
	ExecuteQuote(ctx context.Context, quoteId, idempotencyId string) (*TradeExecution, error)
	ExecuteTrade(ctx context.Context, req TradeRequest) (string, error)
	CheckTradeStatus(ctx context.Context, tradeId string) (*TradeStatus, error)
	TransferAssets(ctx context.Context, req TransferRequest) (string, error)
	GetTransfer(ctx context.Context, transferId string) (*Transfer, error)
	RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (string, error)
	GetWithdrawal(ctx context.Context, withdrawalId string) (*Withdrawal, error)
	GetParticipantByEmail(ctx context.Context, email string) (*Participant, error)
	CreateParticipant(ctx context.Context, req ParticipantRequest) (*Participant, error)
}
