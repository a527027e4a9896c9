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

package strategy

import (
	"context"
	"fmt"
	"strings"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/routing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SwapRouted settles an asset the provider does not list by buying an intermediary
// asset through a Direct strategy and swapping it on-chain on the way out.
//
// The consumer wallet leg withdraws the intermediary to the router contract with
// the swap calldata, and the router pays the consumer's address. The inner gateway
// must accept a smart contract payload on withdrawals; the Prime gateway does not
// and rejects the leg as unsupported.
type SwapRouted struct {
	target string
	inner  *Direct
	router routing.Provider
}

func NewSwapRouted(target string, inner *Direct, router routing.Provider) (*SwapRouted, error) {
	if inner == nil || router == nil {
		return nil, fmt.Errorf("routed strategy for %s needs an intermediary strategy and a router", target)
	}
	if !strings.EqualFold(router.GetIntermediaryLeg(), inner.Asset()) {
		return nil, fmt.Errorf("router intermediary %s does not match strategy asset %s",
			router.GetIntermediaryLeg(), inner.Asset())
	}
	return &SwapRouted{
		target: strings.ToUpper(target),
		inner:  inner,
		router: router,
	}, nil
}

func (s *SwapRouted) NeedsIntermediaryLeg() bool {
	return true
}

func (s *SwapRouted) GetIntermediaryLeg() string {
	return s.inner.Asset()
}

func (s *SwapRouted) checkTarget(crypto string) error {
	if !strings.EqualFold(crypto, s.target) {
		return apperrors.ErrValidation("crypto_currency",
			fmt.Sprintf("%s is not settled by the %s strategy", crypto, s.target))
	}
	return nil
}

func (s *SwapRouted) intermediaryRequest(req models.QuoteRequest) models.QuoteRequest {
	inner := req
	inner.CryptoCurrency = s.inner.Asset()
	inner.IntermediateCryptoCurrency = s.inner.Asset()
	return inner
}

// GetQuoteForFixedFiat quotes the intermediary and replaces the crypto quantity with
// what the route delivers. Fiat figures and per-unit prices stay those of the
// intermediary purchase.
func (s *SwapRouted) GetQuoteForFixedFiat(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if err := s.checkTarget(req.CryptoCurrency); err != nil {
		return nil, err
	}

	quote, err := s.inner.GetQuoteForFixedFiat(ctx, s.intermediaryRequest(req))
	if err != nil {
		return nil, err
	}

	route, err := s.router.Route(ctx, routing.RouteRequest{
		TargetAsset:    s.target,
		SourceQuantity: quote.Quote.TotalCryptoQuantity,
	})
	if err != nil {
		zap.L().Error("Failed to route quote",
			zap.String("target", s.target),
			zap.String("intermediary", s.inner.Asset()),
			zap.String("quantity", quote.Quote.TotalCryptoQuantity.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("route", err)
	}

	quote.Quote.CryptoCurrency = s.target
	quote.Quote.TotalCryptoQuantity = route.AssetQuantity
	quote.NonDiscountedQuote.CryptoCurrency = s.target
	quote.NonDiscountedQuote.TotalCryptoQuantity = quote.NonDiscountedQuote.TotalCryptoQuantity.Mul(route.ExchangeRate)

	zap.L().Debug("Routed quote calculated",
		zap.String("quote_id", quote.Quote.QuoteId),
		zap.String("target", s.target),
		zap.String("exchange_rate", route.ExchangeRate.String()),
		zap.String("total_crypto", route.AssetQuantity.String()))

	return quote, nil
}

// GetQuoteForFixedCrypto is unsupported: the intermediary quantity needed for a fixed
// target quantity depends on a route price only known after routing.
func (s *SwapRouted) GetQuoteForFixedCrypto(_ context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if err := s.checkTarget(req.CryptoCurrency); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrUnsupported(
		fmt.Sprintf("Fixed crypto quantity quotes are not supported for %s", s.target))
}

func (s *SwapRouted) ExecuteQuoteForFundsAvailability(ctx context.Context, req models.ExecuteQuoteRequest) (*models.ExecutedQuote, error) {
	if err := s.checkTarget(req.Quote.CryptoCurrency); err != nil {
		return nil, err
	}
	if req.Quote.FixedSide == models.FixedSideCrypto {
		return nil, apperrors.ErrUnsupported(
			fmt.Sprintf("Fixed crypto quantity quotes are not supported for %s", s.target))
	}
	inner := req
	inner.Quote = s.intermediaryRequest(req.Quote)
	return s.inner.ExecuteQuoteForFundsAvailability(ctx, inner)
}

func (s *SwapRouted) PollExecuteQuoteForFundsAvailabilityStatus(ctx context.Context, tradeId string) models.ExecuteQuoteStatus {
	return s.inner.PollExecuteQuoteForFundsAvailabilityStatus(ctx, tradeId)
}

func (s *SwapRouted) MakeFundsAvailable(ctx context.Context, req models.FundsAvailabilityRequest) (*models.FundsAvailabilityResponse, error) {
	req.CryptoCurrency = s.inner.Asset()
	return s.inner.MakeFundsAvailable(ctx, req)
}

func (s *SwapRouted) PollFundsAvailableStatus(ctx context.Context, transferId string) models.FundsAvailabilityStatus {
	return s.inner.PollFundsAvailableStatus(ctx, transferId)
}

func (s *SwapRouted) TransferAssetToConsumerAccount(ctx context.Context, req models.ConsumerAccountTransferRequest) (string, error) {
	req.CryptoCurrency = s.inner.Asset()
	return s.inner.TransferAssetToConsumerAccount(ctx, req)
}

func (s *SwapRouted) PollAssetTransferToConsumerStatus(ctx context.Context, tradeId string) models.ConsumerAccountTransferStatus {
	return s.inner.PollAssetTransferToConsumerStatus(ctx, tradeId)
}

// TransferToConsumerWallet routes the intermediary balance to the consumer's address
// and withdraws the intermediary with the swap calldata attached. The response carries
// the routed amount of the target asset.
func (s *SwapRouted) TransferToConsumerWallet(ctx context.Context, req models.ConsumerWalletTransferRequest) (*models.ConsumerWalletTransferResponse, error) {
	if err := checkTransactionId(req.TransactionId); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		return nil, apperrors.ErrValidation("wallet_address", "must not be empty")
	}
	if !req.CryptoAmount.IsPositive() {
		return nil, apperrors.ErrValidation("crypto_amount", "must be greater than zero")
	}

	route, err := s.router.Route(ctx, routing.RouteRequest{
		TargetAsset:        s.target,
		SourceQuantity:     req.CryptoAmount,
		DestinationAddress: req.WalletAddress,
	})
	if err != nil {
		zap.L().Error("Failed to route withdrawal",
			zap.String("transaction_id", req.TransactionId),
			zap.String("target", s.target),
			zap.String("amount", req.CryptoAmount.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("route", err)
	}

	if route.ContractAddress == "" || len(route.SmartContractData) == 0 {
		return nil, apperrors.ErrUpstream("route", fmt.Errorf("route to %s carries no swap call", s.target))
	}

	inner := req
	inner.CryptoCurrency = s.inner.Asset()
	inner.WalletAddress = route.ContractAddress
	inner.SmartContractData = route.SmartContractData
	resp, err := s.inner.TransferToConsumerWallet(ctx, inner)
	if err != nil {
		return nil, err
	}

	resp.CryptoAmount = decimal.NewNullDecimal(route.AssetQuantity)
	return resp, nil
}

func (s *SwapRouted) PollConsumerWalletTransferStatus(ctx context.Context, withdrawalId string) models.ConsumerWalletTransferStatus {
	return s.inner.PollConsumerWalletTransferStatus(ctx, withdrawalId)
}

var _ AssetStrategy = (*SwapRouted)(nil)
