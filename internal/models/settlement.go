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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PollStatus is the abstract state of a settlement leg.
type PollStatus string

const (
	PollStatusPending          PollStatus = "PENDING"
	PollStatusSuccess          PollStatus = "SUCCESS"
	PollStatusFailure          PollStatus = "FAILURE"
	PollStatusRetryableFailure PollStatus = "RETRYABLE_FAILURE"
	PollStatusFatalError       PollStatus = "FATAL_ERROR"
)

// IsTerminal reports whether the leg has stopped changing.
func (s PollStatus) IsTerminal() bool {
	return s != PollStatusPending
}

// CanRetry reports whether the caller may re-attempt the same leg with the same transaction ID.
func (s PollStatus) CanRetry() bool {
	return s == PollStatusFailure || s == PollStatusRetryableFailure
}

// ConsumerInfo identifies the consumer a settlement is performed for.
type ConsumerInfo struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins first and last name.
func (c ConsumerInfo) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ExecuteQuoteRequest asks a strategy to buy crypto with operating funds at a fresh quote.
type ExecuteQuoteRequest struct {
	TransactionId string       `json:"transaction_id"`
	Quote         QuoteRequest `json:"quote"`
}

// ExecuteQuoteStatus is the mapped state of the operating-funds trade.
type ExecuteQuoteStatus struct {
	Status       PollStatus `json:"status"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// FundsAvailabilityRequest moves purchased crypto from the pooled account into the settlement account.
type FundsAvailabilityRequest struct {
	TransactionId  string          `json:"transaction_id"`
	CryptoCurrency string          `json:"crypto_currency"`
	CryptoAmount   decimal.Decimal `json:"crypto_amount"`
}

// FundsAvailabilityResponse carries the provider transfer handle.
type FundsAvailabilityResponse struct {
	TransferId   string          `json:"transfer_id"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
}

// FundsAvailabilityStatus is the mapped state of the pooled-to-settlement transfer.
type FundsAvailabilityStatus struct {
	Status       PollStatus `json:"status"`
	SettledId    string     `json:"settled_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ConsumerAccountTransferRequest credits the consumer's custodial balance at the fixed trade price.
type ConsumerAccountTransferRequest struct {
	TransactionId  string          `json:"transaction_id"`
	Consumer       ConsumerInfo    `json:"consumer"`
	CryptoCurrency string          `json:"crypto_currency"`
	FiatCurrency   string          `json:"fiat_currency"`
	CryptoAmount   decimal.Decimal `json:"crypto_amount"`
	TradePrice     decimal.Decimal `json:"trade_price"`
}

// ConsumerAccountTransferStatus is the mapped state of the internal trade.
type ConsumerAccountTransferStatus struct {
	Status       PollStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ConsumerWalletTransferRequest withdraws custodial crypto to an external wallet.
type ConsumerWalletTransferRequest struct {
	TransactionId     string          `json:"transaction_id"`
	Consumer          ConsumerInfo    `json:"consumer"`
	CryptoCurrency    string          `json:"crypto_currency"`
	CryptoAmount      decimal.Decimal `json:"crypto_amount"`
	WalletAddress     string          `json:"wallet_address"`
	SmartContractData []byte          `json:"smart_contract_data,omitempty"`
}

// ConsumerWalletTransferResponse carries the provider withdrawal handle. CryptoAmount is set
// when the delivered amount differs from the requested one.
type ConsumerWalletTransferResponse struct {
	LiquidityProviderTransactionId string              `json:"liquidity_provider_transaction_id"`
	CryptoAmount                   decimal.NullDecimal `json:"crypto_amount"`
}

// ConsumerWalletTransferStatus is the mapped state of the on-chain withdrawal.
type ConsumerWalletTransferStatus struct {
	Status               PollStatus      `json:"status"`
	RequestedAmount      decimal.Decimal `json:"requested_amount"`
	SettledAmount        decimal.Decimal `json:"settled_amount"`
	OnChainTransactionId string          `json:"on_chain_transaction_id,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
}
