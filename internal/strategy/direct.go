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
	"errors"
	"fmt"
	"strings"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DirectConfig wires a Direct strategy.
type DirectConfig struct {
	Asset                 currency.Asset
	Gateway               gateway.LiquidityProviderGateway
	Calculator            *pricing.Calculator
	Participants          *ParticipantResolver
	Mapper                *StatusMapper
	PlatformParticipantId string
	AccountGroup          string
}

// Direct settles an asset the liquidity provider lists.
type Direct struct {
	asset                 currency.Asset
	gateway               gateway.LiquidityProviderGateway
	calculator            *pricing.Calculator
	participants          *ParticipantResolver
	mapper                *StatusMapper
	platformParticipantId string
	accountGroup          string
}

func NewDirect(cfg DirectConfig) (*Direct, error) {
	if cfg.Asset.Symbol == "" {
		return nil, fmt.Errorf("asset symbol required")
	}
	if cfg.Gateway == nil || cfg.Calculator == nil || cfg.Participants == nil {
		return nil, fmt.Errorf("gateway, calculator and participant resolver are required for %s", cfg.Asset.Symbol)
	}
	if cfg.PlatformParticipantId == "" {
		return nil, fmt.Errorf("platform participant id required for %s", cfg.Asset.Symbol)
	}

	mapper := cfg.Mapper
	if mapper == nil {
		mapper = NewStatusMapper()
	}

	return &Direct{
		asset:                 cfg.Asset,
		gateway:               cfg.Gateway,
		calculator:            cfg.Calculator,
		participants:          cfg.Participants,
		mapper:                mapper,
		platformParticipantId: cfg.PlatformParticipantId,
		accountGroup:          cfg.AccountGroup,
	}, nil
}

// Asset returns the symbol this strategy settles.
func (d *Direct) Asset() string {
	return d.asset.Symbol
}

func (d *Direct) NeedsIntermediaryLeg() bool {
	return false
}

func (d *Direct) GetIntermediaryLeg() string {
	return ""
}

func (d *Direct) checkAsset(crypto string) error {
	if !strings.EqualFold(crypto, d.asset.Symbol) {
		return apperrors.ErrValidation("crypto_currency",
			fmt.Sprintf("%s is not settled by the %s strategy", crypto, d.asset.Symbol))
	}
	return nil
}

func checkTransactionId(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ErrValidation("transaction_id", "must not be empty")
	}
	return nil
}

func (d *Direct) GetQuoteForFixedFiat(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if err := d.checkAsset(req.CryptoCurrency); err != nil {
		return nil, err
	}
	quote, err := d.calculator.FixedFiat(ctx, req)
	QuotesTotal.WithLabelValues(d.asset.Symbol, string(models.FixedSideFiat), outcome(err)).Inc()
	return quote, err
}

func (d *Direct) GetQuoteForFixedCrypto(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	if err := d.checkAsset(req.CryptoCurrency); err != nil {
		return nil, err
	}
	quote, err := d.calculator.FixedCrypto(ctx, req)
	QuotesTotal.WithLabelValues(d.asset.Symbol, string(models.FixedSideCrypto), outcome(err)).Inc()
	return quote, err
}

func (d *Direct) quote(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error) {
	switch req.FixedSide {
	case models.FixedSideFiat:
		return d.GetQuoteForFixedFiat(ctx, req)
	case models.FixedSideCrypto:
		return d.GetQuoteForFixedCrypto(ctx, req)
	default:
		return nil, apperrors.ErrValidation("fixed_side", fmt.Sprintf("unsupported value %q", req.FixedSide))
	}
}

// ExecuteQuoteForFundsAvailability prices the request and buys the crypto with
// operating funds at that price. The transaction ID is the provider's idempotency key.
func (d *Direct) ExecuteQuoteForFundsAvailability(ctx context.Context, req models.ExecuteQuoteRequest) (*models.ExecutedQuote, error) {
	executed, err := d.executeQuote(ctx, req)
	LegRequestsTotal.WithLabelValues(LegExecuteQuote, outcome(err)).Inc()
	return executed, err
}

func (d *Direct) executeQuote(ctx context.Context, req models.ExecuteQuoteRequest) (*models.ExecutedQuote, error) {
	if err := checkTransactionId(req.TransactionId); err != nil {
		return nil, err
	}

	quote, err := d.quote(ctx, req.Quote)
	if err != nil {
		return nil, err
	}

	execution, err := d.gateway.ExecuteQuote(ctx, quote.Quote.QuoteId, req.TransactionId)
	if err != nil {
		if errors.Is(err, gateway.ErrQuoteNotFound) {
			zap.L().Warn("Quote expired before execution",
				zap.String("transaction_id", req.TransactionId),
				zap.String("quote_id", quote.Quote.QuoteId))
			return nil, apperrors.ErrQuoteExpired(quote.Quote.QuoteId)
		}
		zap.L().Error("Failed to execute quote",
			zap.String("transaction_id", req.TransactionId),
			zap.String("quote_id", quote.Quote.QuoteId),
			zap.String("crypto", quote.Quote.CryptoCurrency),
			zap.String("fiat", quote.Quote.FiatCurrency),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("execute_quote", err)
	}

	if !strings.EqualFold(execution.CryptoCurrency, quote.Quote.CryptoCurrency) ||
		!strings.EqualFold(execution.FiatCurrency, quote.Quote.FiatCurrency) {
		zap.L().Error("Provider executed a different pair than quoted",
			zap.String("transaction_id", req.TransactionId),
			zap.String("quote_id", quote.Quote.QuoteId),
			zap.String("quoted_pair", quote.Quote.CryptoCurrency+"-"+quote.Quote.FiatCurrency),
			zap.String("executed_pair", execution.CryptoCurrency+"-"+execution.FiatCurrency))
		return nil, apperrors.ErrProtocolMismatch("Provider reported an inconsistent asset pair for the executed quote")
	}

	zap.L().Info("Quote executed",
		zap.String("transaction_id", req.TransactionId),
		zap.String("trade_id", execution.TradeId),
		zap.String("trade_price", execution.TradePrice.String()),
		zap.String("crypto_received", execution.CryptoReceived.String()))

	return &models.ExecutedQuote{
		TradeId:        execution.TradeId,
		TradePrice:     execution.TradePrice,
		CryptoReceived: execution.CryptoReceived,
		Quote:          *quote,
	}, nil
}

func (d *Direct) PollExecuteQuoteForFundsAvailabilityStatus(ctx context.Context, tradeId string) models.ExecuteQuoteStatus {
	status, err := d.gateway.CheckTradeStatus(ctx, tradeId)
	return d.mapper.Trade(tradeId, status, err)
}

// MakeFundsAvailable moves purchased crypto from the trading wallet into the
// settlement wallet consumer balances are paid from.
func (d *Direct) MakeFundsAvailable(ctx context.Context, req models.FundsAvailabilityRequest) (*models.FundsAvailabilityResponse, error) {
	resp, err := d.makeFundsAvailable(ctx, req)
	LegRequestsTotal.WithLabelValues(LegFundsAvailable, outcome(err)).Inc()
	return resp, err
}

func (d *Direct) makeFundsAvailable(ctx context.Context, req models.FundsAvailabilityRequest) (*models.FundsAvailabilityResponse, error) {
	if err := checkTransactionId(req.TransactionId); err != nil {
		return nil, err
	}
	if err := d.checkAsset(req.CryptoCurrency); err != nil {
		return nil, err
	}
	if !req.CryptoAmount.IsPositive() {
		return nil, apperrors.ErrValidation("crypto_amount", "must be greater than zero")
	}

	transferId, err := d.gateway.TransferAssets(ctx, gateway.TransferRequest{
		FromAccount:   d.asset.TradingWalletId,
		ToAccount:     d.asset.SettlementWalletId,
		Asset:         d.asset.Symbol,
		Amount:        req.CryptoAmount,
		IdempotencyId: req.TransactionId,
	})
	if err != nil {
		zap.L().Error("Failed to transfer funds to settlement account",
			zap.String("transaction_id", req.TransactionId),
			zap.String("asset", d.asset.Symbol),
			zap.String("amount", req.CryptoAmount.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("transfer_assets", err)
	}

	zap.L().Info("Funds availability transfer requested",
		zap.String("transaction_id", req.TransactionId),
		zap.String("transfer_id", transferId),
		zap.String("amount", req.CryptoAmount.String()))

	return &models.FundsAvailabilityResponse{
		TransferId:   transferId,
		CryptoAmount: req.CryptoAmount,
	}, nil
}

func (d *Direct) PollFundsAvailableStatus(ctx context.Context, transferId string) models.FundsAvailabilityStatus {
	transfer, err := d.gateway.GetTransfer(ctx, transferId)
	return d.mapper.Transfer(transferId, transfer, err)
}

// TransferAssetToConsumerAccount credits the consumer's custodial balance through an
// internal trade with the platform participant at the price the crypto was bought at.
func (d *Direct) TransferAssetToConsumerAccount(ctx context.Context, req models.ConsumerAccountTransferRequest) (string, error) {
	tradeId, err := d.transferToConsumerAccount(ctx, req)
	LegRequestsTotal.WithLabelValues(LegConsumerAccount, outcome(err)).Inc()
	return tradeId, err
}

func (d *Direct) transferToConsumerAccount(ctx context.Context, req models.ConsumerAccountTransferRequest) (string, error) {
	if err := checkTransactionId(req.TransactionId); err != nil {
		return "", err
	}
	if err := d.checkAsset(req.CryptoCurrency); err != nil {
		return "", err
	}
	if !req.CryptoAmount.IsPositive() {
		return "", apperrors.ErrValidation("crypto_amount", "must be greater than zero")
	}
	if !req.TradePrice.IsPositive() {
		return "", apperrors.ErrValidation("trade_price", "must be greater than zero")
	}

	participantId, err := d.participants.Resolve(ctx, req.Consumer)
	if err != nil {
		return "", err
	}

	tradeId, err := d.gateway.ExecuteTrade(ctx, gateway.TradeRequest{
		BuyerId:       participantId,
		SellerId:      d.platformParticipantId,
		BaseCurrency:  d.asset.Symbol,
		QuoteCurrency: strings.ToUpper(req.FiatCurrency),
		BaseAmount:    req.CryptoAmount,
		QuoteAmount:   req.CryptoAmount.Mul(req.TradePrice).Round(2),
		Price:         req.TradePrice,
		IdempotencyId: req.TransactionId,
	})
	if err != nil {
		zap.L().Error("Failed to execute consumer trade",
			zap.String("transaction_id", req.TransactionId),
			zap.String("consumer_id", req.Consumer.Id),
			zap.String("participant_id", participantId),
			zap.Error(err))
		return "", apperrors.ErrUpstream("execute_trade", err)
	}

	zap.L().Info("Consumer account credit requested",
		zap.String("transaction_id", req.TransactionId),
		zap.String("participant_id", participantId),
		zap.String("trade_id", tradeId))

	return tradeId, nil
}

func (d *Direct) PollAssetTransferToConsumerStatus(ctx context.Context, tradeId string) models.ConsumerAccountTransferStatus {
	status, err := d.gateway.CheckTradeStatus(ctx, tradeId)
	return d.mapper.ConsumerTrade(tradeId, status, err)
}

// TransferToConsumerWallet withdraws the consumer's custodial balance on-chain.
func (d *Direct) TransferToConsumerWallet(ctx context.Context, req models.ConsumerWalletTransferRequest) (*models.ConsumerWalletTransferResponse, error) {
	resp, err := d.transferToConsumerWallet(ctx, req)
	LegRequestsTotal.WithLabelValues(LegConsumerWallet, outcome(err)).Inc()
	return resp, err
}

func (d *Direct) transferToConsumerWallet(ctx context.Context, req models.ConsumerWalletTransferRequest) (*models.ConsumerWalletTransferResponse, error) {
	if err := checkTransactionId(req.TransactionId); err != nil {
		return nil, err
	}
	if err := d.checkAsset(req.CryptoCurrency); err != nil {
		return nil, err
	}
	if !req.CryptoAmount.IsPositive() {
		return nil, apperrors.ErrValidation("crypto_amount", "must be greater than zero")
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		return nil, apperrors.ErrValidation("wallet_address", "must not be empty")
	}

	participantId, err := d.participants.Resolve(ctx, req.Consumer)
	if err != nil {
		return nil, err
	}

	withdrawalId, err := d.gateway.RequestWithdrawal(ctx, gateway.WithdrawalRequest{
		Address:           req.WalletAddress,
		Amount:            req.CryptoAmount,
		Asset:             d.asset.Symbol,
		ParticipantId:     participantId,
		AccountGroup:      d.accountGroup,
		SmartContractData: req.SmartContractData,
		IdempotencyId:     req.TransactionId,
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindValidation) {
			return nil, err
		}
		zap.L().Error("Failed to request withdrawal",
			zap.String("transaction_id", req.TransactionId),
			zap.String("participant_id", participantId),
			zap.String("asset", d.asset.Symbol),
			zap.String("amount", req.CryptoAmount.String()),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("request_withdrawal", err)
	}

	zap.L().Info("Consumer withdrawal requested",
		zap.String("transaction_id", req.TransactionId),
		zap.String("withdrawal_id", withdrawalId),
		zap.Bool("has_smart_contract_data", len(req.SmartContractData) > 0))

	return &models.ConsumerWalletTransferResponse{
		LiquidityProviderTransactionId: withdrawalId,
		CryptoAmount:                   decimal.NullDecimal{},
	}, nil
}

func (d *Direct) PollConsumerWalletTransferStatus(ctx context.Context, withdrawalId string) models.ConsumerWalletTransferStatus {
	withdrawal, err := d.gateway.GetWithdrawal(ctx, withdrawalId)
	return d.mapper.Withdrawal(withdrawalId, withdrawal, err)
}

var _ AssetStrategy = (*Direct)(nil)
