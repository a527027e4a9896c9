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
	"fmt"
	"strings"
	"time"

	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"

	"go.uber.org/zap"
)

// Leg names used in logs and metrics.
const (
	LegExecuteQuote    = "execute_quote"
	LegFundsAvailable  = "funds_available"
	LegConsumerAccount = "consumer_account"
	LegConsumerWallet  = "consumer_wallet"
)

const (
	msgTradeUnsettled       = "Trade terminated without settlement."
	msgTradeStatusFailed    = "Unable to determine trade status."
	msgTransferRejected     = "Transfer request rejected."
	msgTransferCancelled    = "Transfer cancelled."
	msgWithdrawalRejected   = "Withdrawal request rejected."
	msgWithdrawalOnChainErr = "Transaction failed to settle on the blockchain"
)

// StatusMapper maps raw provider states onto PollStatus. It is shared by every
// strategy so all assets agree on what a provider state means.
type StatusMapper struct {
	now func() time.Time
}

func NewStatusMapper() *StatusMapper {
	return &StatusMapper{now: time.Now}
}

// Trade maps the operating-funds trade. A settled trade without a provider timestamp
// is stamped with the time it was observed.
func (m *StatusMapper) Trade(tradeId string, status *gateway.TradeStatus, err error) models.ExecuteQuoteStatus {
	result := m.trade(tradeId, status, err)
	PollStatusTotal.WithLabelValues(LegExecuteQuote, string(result.Status)).Inc()
	return result
}

func (m *StatusMapper) trade(tradeId string, status *gateway.TradeStatus, err error) models.ExecuteQuoteStatus {
	if err != nil {
		zap.L().Error("Failed to check trade status",
			zap.String("trade_id", tradeId),
			zap.Error(err))
		return models.ExecuteQuoteStatus{Status: models.PollStatusFatalError, ErrorMessage: msgTradeStatusFailed}
	}

	switch strings.ToLower(status.State) {
	case gateway.TradeStateAccepted, gateway.TradeStateActive:
		return models.ExecuteQuoteStatus{Status: models.PollStatusPending}
	case gateway.TradeStateTerminated:
		if !status.Settled {
			msg := status.ErrorMessage
			if msg == "" {
				msg = msgTradeUnsettled
			}
			return models.ExecuteQuoteStatus{Status: models.PollStatusFailure, ErrorMessage: msg}
		}
		settledAt := status.SettledAt
		if settledAt == nil {
			observed := m.now().UTC()
			settledAt = &observed
		}
		return models.ExecuteQuoteStatus{Status: models.PollStatusSuccess, SettledAt: settledAt}
	default:
		zap.L().Error("Unknown trade state",
			zap.String("trade_id", tradeId),
			zap.String("state", status.State))
		return models.ExecuteQuoteStatus{
			Status:       models.PollStatusFatalError,
			ErrorMessage: fmt.Sprintf("Unknown trade state %q.", status.State),
		}
	}
}

// ConsumerTrade maps the internal trade that credits the consumer. The result is
// collapsed to pending, success or failure; only a failed lookup is fatal.
func (m *StatusMapper) ConsumerTrade(tradeId string, status *gateway.TradeStatus, err error) models.ConsumerAccountTransferStatus {
	var result models.ConsumerAccountTransferStatus
	mapped := m.trade(tradeId, status, err)
	switch {
	case err != nil:
		result = models.ConsumerAccountTransferStatus{Status: models.PollStatusFatalError, ErrorMessage: mapped.ErrorMessage}
	case mapped.Status == models.PollStatusPending || mapped.Status == models.PollStatusSuccess:
		result = models.ConsumerAccountTransferStatus{Status: mapped.Status}
	default:
		result = models.ConsumerAccountTransferStatus{Status: models.PollStatusFailure, ErrorMessage: mapped.ErrorMessage}
	}
	PollStatusTotal.WithLabelValues(LegConsumerAccount, string(result.Status)).Inc()
	return result
}

// Transfer maps the pooled-to-settlement transfer.
func (m *StatusMapper) Transfer(transferId string, transfer *gateway.Transfer, err error) models.FundsAvailabilityStatus {
	result := m.transfer(transferId, transfer, err)
	PollStatusTotal.WithLabelValues(LegFundsAvailable, string(result.Status)).Inc()
	return result
}

func (m *StatusMapper) transfer(transferId string, transfer *gateway.Transfer, err error) models.FundsAvailabilityStatus {
	if err != nil {
		zap.L().Error("Failed to get transfer",
			zap.String("transfer_id", transferId),
			zap.Error(err))
		return models.FundsAvailabilityStatus{
			Status:       models.PollStatusFatalError,
			ErrorMessage: fmt.Sprintf("Unable to determine status of transfer %s.", transferId),
		}
	}

	switch strings.ToLower(transfer.Status) {
	case gateway.TransferStatusApproved, gateway.TransferStatusPending:
		return models.FundsAvailabilityStatus{Status: models.PollStatusPending}
	case gateway.TransferStatusSettled:
		return models.FundsAvailabilityStatus{Status: models.PollStatusSuccess, SettledId: transfer.MovementId}
	case gateway.TransferStatusRejected:
		return models.FundsAvailabilityStatus{Status: models.PollStatusFatalError, ErrorMessage: msgTransferRejected}
	case gateway.TransferStatusCancelled:
		return models.FundsAvailabilityStatus{Status: models.PollStatusFailure, ErrorMessage: msgTransferCancelled}
	default:
		zap.L().Error("Unknown transfer status",
			zap.String("transfer_id", transferId),
			zap.String("status", transfer.Status))
		return models.FundsAvailabilityStatus{
			Status:       models.PollStatusFatalError,
			ErrorMessage: fmt.Sprintf("Unknown status %q for transfer %s.", transfer.Status, transferId),
		}
	}
}

// Withdrawal maps the on-chain withdrawal. Lookup failures on this leg are common
// and transient, so they map to pending rather than fatal.
func (m *StatusMapper) Withdrawal(withdrawalId string, w *gateway.Withdrawal, err error) models.ConsumerWalletTransferStatus {
	result := m.withdrawal(withdrawalId, w, err)
	PollStatusTotal.WithLabelValues(LegConsumerWallet, string(result.Status)).Inc()
	return result
}

func (m *StatusMapper) withdrawal(withdrawalId string, w *gateway.Withdrawal, err error) models.ConsumerWalletTransferStatus {
	if err != nil {
		zap.L().Warn("Failed to get withdrawal, reporting pending",
			zap.String("withdrawal_id", withdrawalId),
			zap.Error(err))
		return models.ConsumerWalletTransferStatus{Status: models.PollStatusPending}
	}

	rejected := models.ConsumerWalletTransferStatus{
		Status:          models.PollStatusRetryableFailure,
		RequestedAmount: w.RequestedAmount,
		ErrorMessage:    msgWithdrawalRejected,
	}

	switch strings.ToLower(w.WithdrawalStatus) {
	case gateway.WithdrawalStatusPending, gateway.WithdrawalStatusApproved:
		return models.ConsumerWalletTransferStatus{Status: models.PollStatusPending, RequestedAmount: w.RequestedAmount}
	case gateway.WithdrawalStatusRejected:
		return rejected
	case gateway.WithdrawalStatusSettled:
		switch strings.ToLower(w.OnChainStatus) {
		case gateway.OnChainStatusConfirmed:
			return models.ConsumerWalletTransferStatus{
				Status:               models.PollStatusSuccess,
				RequestedAmount:      w.RequestedAmount,
				SettledAmount:        w.SettledAmount,
				OnChainTransactionId: w.OnChainTransactionId,
			}
		case gateway.OnChainStatusError:
			return models.ConsumerWalletTransferStatus{
				Status:               models.PollStatusFailure,
				RequestedAmount:      w.RequestedAmount,
				OnChainTransactionId: w.OnChainTransactionId,
				ErrorMessage:         msgWithdrawalOnChainErr,
			}
		default:
			return models.ConsumerWalletTransferStatus{Status: models.PollStatusPending, RequestedAmount: w.RequestedAmount}
		}
	default:
		zap.L().Warn("Unknown withdrawal status, treating as rejected",
			zap.String("withdrawal_id", withdrawalId),
			zap.String("withdrawal_status", w.WithdrawalStatus))
		return rejected
	}
}
