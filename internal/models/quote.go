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

// FixedSide says which side of a conversion the consumer pinned.
type FixedSide string

const (
	FixedSideFiat   FixedSide = "FIAT"
	FixedSideCrypto FixedSide = "CRYPTO"
)

// TransactionType distinguishes card-funded purchases from internal wallet-to-wallet movements.
type TransactionType string

const (
	TransactionTypeCardPurchase   TransactionType = "CARD_PURCHASE"
	TransactionTypeWalletTransfer TransactionType = "WALLET_TRANSFER"
)

// Discount holds the five independent discount percentages, each in [0,1].
type Discount struct {
	SpreadPercent             decimal.Decimal `json:"spread_percent"`
	PlatformFeePercent        decimal.Decimal `json:"platform_fee_percent"`
	ProcessingFeePercent      decimal.Decimal `json:"processing_fee_percent"`
	FixedCreditCardFeePercent decimal.Decimal `json:"fixed_credit_card_fee_percent"`
	NetworkFeePercent         decimal.Decimal `json:"network_fee_percent"`
}

// IsZero reports whether no component is discounted.
func (d Discount) IsZero() bool {
	return d.SpreadPercent.IsZero() &&
		d.PlatformFeePercent.IsZero() &&
		d.ProcessingFeePercent.IsZero() &&
		d.FixedCreditCardFeePercent.IsZero() &&
		d.NetworkFeePercent.IsZero()
}

// QuoteRequest is a fixed-fiat or fixed-crypto quote request. Only the amount matching
// the pinned side is read; a null amount is rejected rather than treated as zero.
type QuoteRequest struct {
	CryptoCurrency             string              `json:"crypto_currency"`
	FiatCurrency               string              `json:"fiat_currency"`
	FixedSide                  FixedSide           `json:"fixed_side"`
	FiatAmount                 decimal.NullDecimal `json:"fiat_amount"`
	CryptoQuantity             decimal.NullDecimal `json:"crypto_quantity"`
	IntermediateCryptoCurrency string              `json:"intermediate_crypto_currency,omitempty"`
	TransactionType            TransactionType     `json:"transaction_type,omitempty"`
	Discount                   *Discount           `json:"discount,omitempty"`
}

// Quote is an immutable, fully-costed conversion quote.
type Quote struct {
	QuoteId                   string          `json:"quote_id"`
	CryptoCurrency            string          `json:"crypto_currency"`
	FiatCurrency              string          `json:"fiat_currency"`
	NetworkFeeInFiat          decimal.Decimal `json:"network_fee_in_fiat"`
	PlatformFeeInFiat         decimal.Decimal `json:"platform_fee_in_fiat"`
	ProcessingFeeInFiat       decimal.Decimal `json:"processing_fee_in_fiat"`
	AmountPreSpread           decimal.Decimal `json:"amount_pre_spread"`
	TotalFiatAmount           decimal.Decimal `json:"total_fiat_amount"`
	TotalCryptoQuantity       decimal.Decimal `json:"total_crypto_quantity"`
	PerUnitPriceWithSpread    decimal.Decimal `json:"per_unit_price_with_spread"`
	PerUnitPriceWithoutSpread decimal.Decimal `json:"per_unit_price_without_spread"`
	ExpiresAt                 time.Time       `json:"expires_at"`
}

// DiscountsGiven is the fiat amount waived per component.
type DiscountsGiven struct {
	SpreadDiscount             decimal.Decimal `json:"spread_discount"`
	PlatformFeeDiscount        decimal.Decimal `json:"platform_fee_discount"`
	ProcessingFeeDiscount      decimal.Decimal `json:"processing_fee_discount"`
	FixedCreditCardFeeDiscount decimal.Decimal `json:"fixed_credit_card_fee_discount"`
	NetworkFeeDiscount         decimal.Decimal `json:"network_fee_discount"`
}

// Total sums every waived component.
func (d DiscountsGiven) Total() decimal.Decimal {
	return d.SpreadDiscount.
		Add(d.PlatformFeeDiscount).
		Add(d.ProcessingFeeDiscount).
		Add(d.FixedCreditCardFeeDiscount).
		Add(d.NetworkFeeDiscount)
}

// CombinedQuote pairs the discounted quote with its undiscounted counterpart, both
// priced from the same provider quote.
type CombinedQuote struct {
	Quote              Quote          `json:"quote"`
	NonDiscountedQuote Quote          `json:"non_discounted_quote"`
	DiscountsGiven     DiscountsGiven `json:"discounts_given"`
}

// ExecutedQuote is the result of buying crypto from the provider at a quoted price.
type ExecutedQuote struct {
	TradeId        string          `json:"trade_id"`
	TradePrice     decimal.Decimal `json:"trade_price"`
	CryptoReceived decimal.Decimal `json:"crypto_received"`
	Quote          CombinedQuote   `json:"quote"`
}
