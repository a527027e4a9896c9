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

package api

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"
	"prime-conversion-go/internal/strategy"

	"go.uber.org/zap"
)

// ConversionService is the entry point for quoting and settling conversions. It
// resolves the strategy for a requested asset and validates requests before any
// provider is contacted.
type ConversionService struct {
	assets     *currency.Registry
	strategies map[string]strategy.AssetStrategy
	ledger     store.ConsumerLedger
}

func NewConversionService(assets *currency.Registry, strategies map[string]strategy.AssetStrategy, ledger store.ConsumerLedger) (*ConversionService, error) {
	if assets == nil || ledger == nil {
		return nil, fmt.Errorf("conversion service requires an asset registry and a ledger")
	}

	normalized := make(map[string]strategy.AssetStrategy, len(strategies))
	for symbol, s := range strategies {
		if _, err := assets.Lookup(symbol); err != nil {
			return nil, fmt.Errorf("strategy registered for unconfigured asset: %w", err)
		}
		normalized[strings.ToUpper(symbol)] = s
	}

	return &ConversionService{
		assets:     assets,
		strategies: normalized,
		ledger:     ledger,
	}, nil
}

// Strategy returns the strategy that settles symbol.
func (s *ConversionService) Strategy(symbol string) (strategy.AssetStrategy, error) {
	st, ok := s.strategies[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, apperrors.ErrValidation("crypto_currency", fmt.Sprintf("no strategy settles %q", symbol))
	}
	return st, nil
}

// Assets lists the symbols that have a strategy.
func (s *ConversionService) Assets() []string {
	symbols := make([]string, 0, len(s.strategies))
	for symbol := range s.strategies {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// GetQuote validates req and dispatches it on the pinned side.
func (s *ConversionService) GetQuote(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if err := s.ValidateQuoteRequest(req); err != nil {
		return nil, err
	}

	st, err := s.Strategy(req.CryptoCurrency)
	if err != nil {
		return nil, err
	}

	var quote *models.CombinedQuote
	switch req.FixedSide {
	case models.FixedSideFiat:
		quote, err = st.GetQuoteForFixedFiat(ctx, req)
	case models.FixedSideCrypto:
		quote, err = st.GetQuoteForFixedCrypto(ctx, req)
	}
	if err != nil {
		zap.L().Warn("Quote request failed",
			zap.String("crypto_currency", req.CryptoCurrency),
			zap.String("fiat_currency", req.FiatCurrency),
			zap.String("fixed_side", string(req.FixedSide)),
			zap.String("error_kind", errorKind(err)))
		return nil, err
	}

	zap.L().Info("Quote issued",
		zap.String("quote_id", quote.Quote.QuoteId),
		zap.String("crypto_currency", quote.Quote.CryptoCurrency),
		zap.String("total_fiat_amount", quote.Quote.TotalFiatAmount.String()),
		zap.String("total_crypto_quantity", quote.Quote.TotalCryptoQuantity.String()))

	return quote, nil
}

// ValidateQuoteRequest performs the checks that need no provider round trip.
func (s *ConversionService) ValidateQuoteRequest(req models.QuoteRequest) error {
	if strings.TrimSpace(req.CryptoCurrency) == "" {
		return apperrors.ErrValidation("crypto_currency", "must not be empty")
	}
	if !s.assets.IsSupportedFiat(req.FiatCurrency) {
		return apperrors.ErrValidation("fiat_currency", fmt.Sprintf("unsupported currency %q", req.FiatCurrency))
	}

	switch req.FixedSide {
	case models.FixedSideFiat:
		if !req.FiatAmount.Valid {
			return apperrors.ErrValidation("fiat_amount", "must not be null")
		}
		if !req.FiatAmount.Decimal.IsPositive() {
			return apperrors.ErrValidation("fiat_amount", "must be greater than zero")
		}
	case models.FixedSideCrypto:
		if !req.CryptoQuantity.Valid {
			return apperrors.ErrValidation("crypto_quantity", "must not be null")
		}
		if !req.CryptoQuantity.Decimal.IsPositive() {
			return apperrors.ErrValidation("crypto_quantity", "must be greater than zero")
		}
	default:
		return apperrors.ErrValidation("fixed_side", fmt.Sprintf("unsupported value %q", req.FixedSide))
	}

	switch req.TransactionType {
	case "", models.TransactionTypeCardPurchase, models.TransactionTypeWalletTransfer:
	default:
		return apperrors.ErrValidation("transaction_type", fmt.Sprintf("unsupported value %q", req.TransactionType))
	}

	return nil
}

func (s *ConversionService) HealthCheck(ctx context.Context) error {
	_, err := s.ledger.GetParticipants(ctx)
	if err != nil {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	return nil
}

func errorKind(err error) string {
	for _, kind := range []apperrors.Kind{
		apperrors.KindValidation,
		apperrors.KindUpstream,
		apperrors.KindQuoteExpired,
		apperrors.KindProtocolMismatch,
	} {
		if apperrors.IsKind(err, kind) {
			return string(kind)
		}
	}
	return string(apperrors.KindInternal)
}
