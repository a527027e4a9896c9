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

package pricing

import (
	"context"
	"strings"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quoter is the slice of the liquidity provider the calculator prices against.
type Quoter interface {
	EstimateNetworkFee(ctx context.Context, crypto, fiat string) (*gateway.NetworkFee, error)
	RequestQuoteFixedFiat(ctx context.Context, crypto, fiat string, fiatAmount decimal.Decimal) (*gateway.ProviderQuote, error)
	RequestQuoteFixedCrypto(ctx context.Context, crypto, fiat string, cryptoQuantity decimal.Decimal) (*gateway.ProviderQuote, error)
}

// CurrencyLookup resolves per-asset metadata.
type CurrencyLookup interface {
	PrecisionOf(symbol string) (int32, error)
	SpreadOverrideOf(symbol string) (decimal.Decimal, bool)
	IsSupportedFiat(symbol string) bool
}

// Calculator turns quote requests into fee, spread and discount adjusted quotes.
type Calculator struct {
	fees       models.FeeConfig
	quoter     Quoter
	currencies CurrencyLookup
}

func NewCalculator(fees models.FeeConfig, quoter Quoter, currencies CurrencyLookup) *Calculator {
	return &Calculator{
		fees:       fees,
		quoter:     quoter,
		currencies: currencies,
	}
}

// terms is one resolved set of fee inputs. A quote request produces two: the full
// schedule and the schedule after discounts.
type terms struct {
	networkFee    decimal.Decimal
	platformFee   decimal.Decimal
	dynamicCCRate decimal.Decimal
	fixedCCFee    decimal.Decimal
	spread        decimal.Decimal
}

// assetTerms resolves everything the calculator needs that does not depend on the amount.
type assetTerms struct {
	precision  int32
	full       terms
	discounted terms
}

// FixedFiat quotes a conversion where the consumer pins the fiat amount they pay.
func (c *Calculator) FixedFiat(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if !req.FiatAmount.Valid {
		return nil, apperrors.ErrValidation("fiat_amount", "must not be null")
	}
	fiatAmount := req.FiatAmount.Decimal
	if !fiatAmount.IsPositive() {
		return nil, apperrors.ErrValidation("fiat_amount", "must be greater than zero")
	}

	at, err := c.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	discounted := fixedFiatLeg(fiatAmount, at.discounted)
	full := fixedFiatLeg(fiatAmount, at.full)
	if !discounted.amountPostSpread.IsPositive() {
		return nil, apperrors.ErrValidation("fiat_amount", "amount does not cover fees")
	}

	providerQuote, err := c.quoter.RequestQuoteFixedFiat(ctx, req.CryptoCurrency, req.FiatCurrency, discounted.amountPostSpread)
	if err != nil {
		zap.L().Error("Failed to request fixed fiat quote",
			zap.String("crypto", req.CryptoCurrency),
			zap.String("fiat", req.FiatCurrency),
			zap.String("amount", discounted.amountPostSpread.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("request_quote_fixed_fiat", err)
	}
	price := providerQuote.PerUnitPrice
	if !price.IsPositive() {
		return nil, apperrors.ErrProtocolMismatch("provider returned a non-positive price")
	}

	quote := discounted.quote(req, providerQuote, at.discounted.spread, at.precision)
	nonDiscounted := full.quote(req, providerQuote, at.full.spread, at.precision)

	given := at.discountsGiven(quote, nonDiscounted)

	zap.L().Debug("Fixed fiat quote calculated",
		zap.String("quote_id", quote.QuoteId),
		zap.String("crypto", quote.CryptoCurrency),
		zap.String("total_fiat", quote.TotalFiatAmount.String()),
		zap.String("total_crypto", quote.TotalCryptoQuantity.String()),
		zap.String("discounts_total", given.Total().String()))

	return &models.CombinedQuote{
		Quote:              quote,
		NonDiscountedQuote: nonDiscounted,
		DiscountsGiven:     given,
	}, nil
}

// FixedCrypto quotes a conversion where the consumer pins the crypto quantity they receive.
func (c *Calculator) FixedCrypto(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if !req.CryptoQuantity.Valid {
		return nil, apperrors.ErrValidation("crypto_quantity", "must not be null")
	}
	quantity := req.CryptoQuantity.Decimal
	if !quantity.IsPositive() {
		return nil, apperrors.ErrValidation("crypto_quantity", "must be greater than zero")
	}

	at, err := c.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	providerQuote, err := c.quoter.RequestQuoteFixedCrypto(ctx, req.CryptoCurrency, req.FiatCurrency, quantity)
	if err != nil {
		zap.L().Error("Failed to request fixed crypto quote",
			zap.String("crypto", req.CryptoCurrency),
			zap.String("fiat", req.FiatCurrency),
			zap.String("quantity", quantity.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("request_quote_fixed_crypto", err)
	}
	price := providerQuote.PerUnitPrice
	if !price.IsPositive() {
		return nil, apperrors.ErrProtocolMismatch("provider returned a non-positive price")
	}

	discounted := fixedCryptoLeg(quantity, price, at.discounted)
	full := fixedCryptoLeg(quantity, price, at.full)

	quote := discounted.quote(req, providerQuote, quantity)
	nonDiscounted := full.quote(req, providerQuote, quantity)

	given := at.discountsGiven(quote, nonDiscounted)

	zap.L().Debug("Fixed crypto quote calculated",
		zap.String("quote_id", quote.QuoteId),
		zap.String("crypto", quote.CryptoCurrency),
		zap.String("total_fiat", quote.TotalFiatAmount.String()),
		zap.String("total_crypto", quote.TotalCryptoQuantity.String()),
		zap.String("discounts_total", given.Total().String()))

	return &models.CombinedQuote{
		Quote:              quote,
		NonDiscountedQuote: nonDiscounted,
		DiscountsGiven:     given,
	}, nil
}

func (c *Calculator) resolve(ctx context.Context, req models.QuoteRequest) (*assetTerms, error) {
	if strings.TrimSpace(req.CryptoCurrency) == "" {
		return nil, apperrors.ErrValidation("crypto_currency", "must not be empty")
	}
	if !c.currencies.IsSupportedFiat(req.FiatCurrency) {
		return nil, apperrors.ErrValidation("fiat_currency", "unsupported currency "+req.FiatCurrency)
	}
	precision, err := c.currencies.PrecisionOf(req.CryptoCurrency)
	if err != nil {
		return nil, apperrors.ErrValidation("crypto_currency", "unsupported currency "+req.CryptoCurrency)
	}

	discount, err := effectiveDiscount(req)
	if err != nil {
		return nil, err
	}

	if c.fees.DynamicCreditCardFeePercentage.GreaterThanOrEqual(one) {
		return nil, apperrors.ErrInternal("dynamic credit card fee must be below 100%", nil)
	}

	spread := c.fees.SpreadPercentage
	if override, ok := c.currencies.SpreadOverrideOf(req.CryptoCurrency); ok {
		spread = override
	}

	fee, err := c.quoter.EstimateNetworkFee(ctx, req.CryptoCurrency, req.FiatCurrency)
	if err != nil {
		zap.L().Error("Failed to estimate network fee",
			zap.String("crypto", req.CryptoCurrency),
			zap.String("fiat", req.FiatCurrency),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("estimate_network_fee", err)
	}

	full := terms{
		networkFee:    round2(fee.FeeInFiat),
		platformFee:   round2(c.fees.FlatFeeDollars),
		dynamicCCRate: c.fees.DynamicCreditCardFeePercentage,
		fixedCCFee:    round2(c.fees.FixedCreditCardFee),
		spread:        spread,
	}

	return &assetTerms{
		precision:  precision,
		full:       full,
		discounted: applyDiscount(full, discount),
	}, nil
}

// discountsGiven reports, per component, the undiscounted quote's figure minus the
// discounted one. The fixed credit card fee is carved out of the processing fee line.
// Spread is valued on the crypto actually quoted. In fixed crypto mode the
// processing fee is a share of the final charge, so any discount that lowers the
// charge also shows up as a processing fee discount.
func (at *assetTerms) discountsGiven(quote, nonDiscounted models.Quote) models.DiscountsGiven {
	fixedCC := at.full.fixedCCFee.Sub(at.discounted.fixedCCFee)
	return models.DiscountsGiven{
		NetworkFeeDiscount:         nonDiscounted.NetworkFeeInFiat.Sub(quote.NetworkFeeInFiat),
		PlatformFeeDiscount:        nonDiscounted.PlatformFeeInFiat.Sub(quote.PlatformFeeInFiat),
		FixedCreditCardFeeDiscount: fixedCC,
		ProcessingFeeDiscount:      nonDiscounted.ProcessingFeeInFiat.Sub(quote.ProcessingFeeInFiat).Sub(fixedCC),
		SpreadDiscount: round2(quote.TotalCryptoQuantity.Mul(
			nonDiscounted.PerUnitPriceWithSpread.Sub(quote.PerUnitPriceWithSpread))),
	}
}

type fixedFiatResult struct {
	fiatAmount       decimal.Decimal
	networkFee       decimal.Decimal
	platformFee      decimal.Decimal
	processingFee    decimal.Decimal
	amountPreSpread  decimal.Decimal
	amountPostSpread decimal.Decimal
}

func fixedFiatLeg(fiatAmount decimal.Decimal, t terms) fixedFiatResult {
	processingFee := round2(fiatAmount.Mul(t.dynamicCCRate).Add(t.fixedCCFee))
	totalFee := t.networkFee.Add(processingFee).Add(t.platformFee)
	amountPreSpread := round2(fiatAmount.Sub(totalFee))

	return fixedFiatResult{
		fiatAmount:       fiatAmount,
		networkFee:       t.networkFee,
		platformFee:      t.platformFee,
		processingFee:    processingFee,
		amountPreSpread:  amountPreSpread,
		amountPostSpread: amountPreSpread.Div(one.Add(t.spread)),
	}
}

func (r fixedFiatResult) quote(req models.QuoteRequest, pq *gateway.ProviderQuote, spread decimal.Decimal, precision int32) models.Quote {
	return models.Quote{
		QuoteId:                   pq.QuoteId,
		CryptoCurrency:            req.CryptoCurrency,
		FiatCurrency:              req.FiatCurrency,
		NetworkFeeInFiat:          r.networkFee,
		PlatformFeeInFiat:         r.platformFee,
		ProcessingFeeInFiat:       r.processingFee,
		AmountPreSpread:           r.amountPreSpread,
		TotalFiatAmount:           round2(r.fiatAmount),
		TotalCryptoQuantity:       r.amountPostSpread.Div(pq.PerUnitPrice).Round(precision),
		PerUnitPriceWithSpread:    pq.PerUnitPrice.Mul(one.Add(spread)),
		PerUnitPriceWithoutSpread: pq.PerUnitPrice,
		ExpiresAt:                 pq.ExpiresAt,
	}
}

type fixedCryptoResult struct {
	networkFee      decimal.Decimal
	platformFee     decimal.Decimal
	processingFee   decimal.Decimal
	rawCost         decimal.Decimal
	priceWithSpread decimal.Decimal
	finalFiatAmount decimal.Decimal
}

func fixedCryptoLeg(quantity, price decimal.Decimal, t terms) fixedCryptoResult {
	priceWithSpread := price.Mul(one.Add(t.spread))
	rawCost := quantity.Mul(priceWithSpread)
	preCCFee := rawCost.Add(t.platformFee).Add(t.networkFee)

	// The processing fee is a percentage of the final charge, so solve for the charge.
	finalFiatAmount := preCCFee.Add(t.fixedCCFee).Div(one.Sub(t.dynamicCCRate))

	return fixedCryptoResult{
		networkFee:      t.networkFee,
		platformFee:     t.platformFee,
		processingFee:   round2(finalFiatAmount.Sub(preCCFee)),
		rawCost:         rawCost,
		priceWithSpread: priceWithSpread,
		finalFiatAmount: finalFiatAmount,
	}
}

func (r fixedCryptoResult) quote(req models.QuoteRequest, pq *gateway.ProviderQuote, quantity decimal.Decimal) models.Quote {
	return models.Quote{
		QuoteId:                   pq.QuoteId,
		CryptoCurrency:            req.CryptoCurrency,
		FiatCurrency:              req.FiatCurrency,
		NetworkFeeInFiat:          r.networkFee,
		PlatformFeeInFiat:         r.platformFee,
		ProcessingFeeInFiat:       r.processingFee,
		AmountPreSpread:           round2(r.rawCost),
		TotalFiatAmount:           round2(r.finalFiatAmount),
		TotalCryptoQuantity:       quantity,
		PerUnitPriceWithSpread:    r.priceWithSpread,
		PerUnitPriceWithoutSpread: pq.PerUnitPrice,
		ExpiresAt:                 pq.ExpiresAt,
	}
}
