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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/strategy"

	"go.uber.org/zap"
)

// Stage names, in pipeline order.
const (
	StageExecuteQuote    = strategy.LegExecuteQuote
	StageFundsAvailable  = strategy.LegFundsAvailable
	StageConsumerAccount = strategy.LegConsumerAccount
	StageConsumerWallet  = strategy.LegConsumerWallet
)

// StrategyProvider resolves the strategy that settles an asset.
type StrategyProvider interface {
	Strategy(symbol string) (strategy.AssetStrategy, error)
}

// Request is one settlement to drive end to end. Without a wallet address the
// pipeline stops once the consumer's custodial balance is credited.
type Request struct {
	TransactionId     string
	Quote             models.QuoteRequest
	Consumer          models.ConsumerInfo
	WalletAddress     string
	SmartContractData []byte
}

// StageOutcome records how a leg finished.
type StageOutcome struct {
	Stage    string
	LegId    string
	Attempts int
	Status   models.PollStatus
	Message  string
}

// Result collects every leg handle and outcome of a settlement.
type Result struct {
	TransactionId   string
	Executed        *models.ExecutedQuote
	FundsTransferId string
	ConsumerTradeId string
	Withdrawal      *models.ConsumerWalletTransferResponse
	WalletStatus    *models.ConsumerWalletTransferStatus
	Stages          []StageOutcome
}

// LegError is returned when a leg ends without success.
type LegError struct {
	Stage    string
	Status   models.PollStatus
	Message  string
	Attempts int
	Err      error
}

func (e *LegError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s leg failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s leg ended %s after %d attempt(s): %s", e.Stage, e.Status, e.Attempts, e.Message)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// Runner drives the four request/poll pairs of a settlement. Each leg is polled on
// an interval until it is terminal; FAILURE and RETRYABLE_FAILURE legs are
// re-requested with the same transaction ID up to MaxLegAttempts, FATAL_ERROR aborts.
type Runner struct {
	strategies      StrategyProvider
	pollingInterval time.Duration
	maxLegAttempts  int
	now             func() time.Time
}

func NewRunner(strategies StrategyProvider, cfg models.WorkflowConfig) (*Runner, error) {
	if strategies == nil {
		return nil, fmt.Errorf("strategy provider is required")
	}
	if cfg.PollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %v", cfg.PollingInterval)
	}
	if cfg.MaxLegAttempts <= 0 {
		return nil, fmt.Errorf("max leg attempts must be positive, got %d", cfg.MaxLegAttempts)
	}
	return &Runner{
		strategies:      strategies,
		pollingInterval: cfg.PollingInterval,
		maxLegAttempts:  cfg.MaxLegAttempts,
		now:             time.Now,
	}, nil
}

// leg is one request/poll pair.
type leg struct {
	stage   string
	request func(ctx context.Context) (string, error)
	poll    func(ctx context.Context, id string) (models.PollStatus, string)
}

// Run settles req. The returned result holds every leg reached, also on error.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{TransactionId: req.TransactionId}

	err := r.run(ctx, req, result)
	switch {
	case err == nil:
		SettlementsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		SettlementsTotal.WithLabelValues("cancelled").Inc()
	default:
		SettlementsTotal.WithLabelValues("failure").Inc()
	}
	return result, err
}

func (r *Runner) run(ctx context.Context, req Request, result *Result) error {
	if strings.TrimSpace(req.TransactionId) == "" {
		return apperrors.ErrValidation("transaction_id", "must not be empty")
	}

	st, err := r.strategies.Strategy(req.Quote.CryptoCurrency)
	if err != nil {
		return err
	}

	crypto := req.Quote.CryptoCurrency

	zap.L().Info("Starting settlement",
		zap.String("transaction_id", req.TransactionId),
		zap.String("crypto_currency", crypto),
		zap.String("fixed_side", string(req.Quote.FixedSide)),
		zap.Bool("needs_intermediary_leg", st.NeedsIntermediaryLeg()),
		zap.String("intermediary", st.GetIntermediaryLeg()))

	legs := []leg{
		{
			stage: StageExecuteQuote,
			request: func(ctx context.Context) (string, error) {
				executed, err := st.ExecuteQuoteForFundsAvailability(ctx, models.ExecuteQuoteRequest{
					TransactionId: req.TransactionId,
					Quote:         req.Quote,
				})
				if err != nil {
					return "", err
				}
				result.Executed = executed
				return executed.TradeId, nil
			},
			poll: func(ctx context.Context, id string) (models.PollStatus, string) {
				s := st.PollExecuteQuoteForFundsAvailabilityStatus(ctx, id)
				return s.Status, s.ErrorMessage
			},
		},
		{
			stage: StageFundsAvailable,
			request: func(ctx context.Context) (string, error) {
				funds, err := st.MakeFundsAvailable(ctx, models.FundsAvailabilityRequest{
					TransactionId:  req.TransactionId,
					CryptoCurrency: crypto,
					CryptoAmount:   result.Executed.CryptoReceived,
				})
				if err != nil {
					return "", err
				}
				result.FundsTransferId = funds.TransferId
				return funds.TransferId, nil
			},
			poll: func(ctx context.Context, id string) (models.PollStatus, string) {
				s := st.PollFundsAvailableStatus(ctx, id)
				return s.Status, s.ErrorMessage
			},
		},
		{
			stage: StageConsumerAccount,
			request: func(ctx context.Context) (string, error) {
				tradeId, err := st.TransferAssetToConsumerAccount(ctx, models.ConsumerAccountTransferRequest{
					TransactionId:  req.TransactionId,
					Consumer:       req.Consumer,
					CryptoCurrency: crypto,
					FiatCurrency:   req.Quote.FiatCurrency,
					CryptoAmount:   result.Executed.CryptoReceived,
					TradePrice:     result.Executed.TradePrice,
				})
				if err != nil {
					return "", err
				}
				result.ConsumerTradeId = tradeId
				return tradeId, nil
			},
			poll: func(ctx context.Context, id string) (models.PollStatus, string) {
				s := st.PollAssetTransferToConsumerStatus(ctx, id)
				return s.Status, s.ErrorMessage
			},
		},
	}

	if req.WalletAddress != "" {
		legs = append(legs, leg{
			stage: StageConsumerWallet,
			request: func(ctx context.Context) (string, error) {
				resp, err := st.TransferToConsumerWallet(ctx, models.ConsumerWalletTransferRequest{
					TransactionId:     req.TransactionId,
					Consumer:          req.Consumer,
					CryptoCurrency:    crypto,
					CryptoAmount:      result.Executed.CryptoReceived,
					WalletAddress:     req.WalletAddress,
					SmartContractData: req.SmartContractData,
				})
				if err != nil {
					return "", err
				}
				result.Withdrawal = resp
				return resp.LiquidityProviderTransactionId, nil
			},
			poll: func(ctx context.Context, id string) (models.PollStatus, string) {
				s := st.PollConsumerWalletTransferStatus(ctx, id)
				result.WalletStatus = &s
				return s.Status, s.ErrorMessage
			},
		})
	}

	for _, l := range legs {
		legCtx := models.WithSettlementContext(ctx, &models.SettlementContext{
			TransactionId: req.TransactionId,
			ConsumerId:    req.Consumer.Id,
			Stage:         l.stage,
		})
		outcome, err := r.runLeg(legCtx, l)
		result.Stages = append(result.Stages, outcome)
		if err != nil {
			zap.L().Error("Settlement stopped",
				zap.String("transaction_id", req.TransactionId),
				zap.String("stage", l.stage),
				zap.Int("attempts", outcome.Attempts),
				zap.Error(err))
			return err
		}
	}

	zap.L().Info("Settlement completed",
		zap.String("transaction_id", req.TransactionId),
		zap.Int("legs", len(result.Stages)))
	return nil
}

// runLeg requests a leg and waits for it, re-requesting on retryable outcomes.
func (r *Runner) runLeg(ctx context.Context, l leg) (StageOutcome, error) {
	outcome := StageOutcome{Stage: l.stage}
	started := r.now()
	defer func() {
		LegDuration.WithLabelValues(l.stage).Observe(r.now().Sub(started).Seconds())
	}()

	for attempt := 1; attempt <= r.maxLegAttempts; attempt++ {
		outcome.Attempts = attempt

		id, err := l.request(ctx)
		if err != nil {
			LegAttemptsTotal.WithLabelValues(l.stage, "request_error").Inc()
			if apperrors.IsRetryable(err) && attempt < r.maxLegAttempts {
				zap.L().Warn("Leg request failed, retrying",
					zap.String("stage", l.stage),
					zap.Int("attempt", attempt),
					zap.Error(err))
				if err := r.wait(ctx); err != nil {
					return outcome, err
				}
				continue
			}
			return outcome, &LegError{Stage: l.stage, Attempts: attempt, Err: err}
		}
		outcome.LegId = id

		status, message, err := r.await(ctx, l, id)
		if err != nil {
			return outcome, err
		}
		outcome.Status = status
		outcome.Message = message
		LegAttemptsTotal.WithLabelValues(l.stage, string(status)).Inc()

		switch {
		case status == models.PollStatusSuccess:
			zap.L().Info("Leg succeeded",
				zap.String("stage", l.stage),
				zap.String("leg_id", id),
				zap.Int("attempts", attempt))
			return outcome, nil
		case status.CanRetry() && attempt < r.maxLegAttempts:
			zap.L().Warn("Leg failed, re-requesting with the same transaction id",
				zap.String("stage", l.stage),
				zap.String("leg_id", id),
				zap.String("status", string(status)),
				zap.String("message", message),
				zap.Int("attempt", attempt))
		default:
			return outcome, &LegError{Stage: l.stage, Status: status, Message: message, Attempts: attempt}
		}
	}

	return outcome, &LegError{Stage: l.stage, Status: outcome.Status, Message: outcome.Message, Attempts: outcome.Attempts}
}

// await polls id until its status is terminal or ctx is done.
func (r *Runner) await(ctx context.Context, l leg, id string) (models.PollStatus, string, error) {
	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	for {
		status, message := l.poll(ctx, id)
		if status.IsTerminal() {
			return status, message, nil
		}

		zap.L().Debug("Leg pending",
			zap.String("stage", l.stage),
			zap.String("leg_id", id))

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
}

func (r *Runner) wait(ctx context.Context) error {
	timer := time.NewTimer(r.pollingInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
