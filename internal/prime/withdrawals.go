package prime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestWithdrawal debits the participant in the consumer ledger and then sends
// the crypto on-chain from the asset's settlement wallet.
func (s *Service) RequestWithdrawal(ctx context.Context, req gateway.WithdrawalRequest) (string, error) {
	if len(req.SmartContractData) > 0 {
		return "", apperrors.ErrUnsupported("Prime withdrawals cannot carry smart contract data")
	}

	asset, err := s.assets.Lookup(req.Asset)
	if err != nil {
		return "", apperrors.ErrValidation("asset", err.Error())
	}

	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("portfolio_id", s.portfolioId),
		zap.String("wallet_id", asset.SettlementWalletId),
		zap.String("participant_id", req.ParticipantId),
		zap.String("account_group", req.AccountGroup),
		zap.String("asset", asset.Symbol),
		zap.String("amount", req.Amount.String()),
		zap.String("destination", req.Address))

	err = s.ledger.DebitWithdrawal(ctx, store.DebitWithdrawalParams{
		ParticipantId:      req.ParticipantId,
		Asset:              asset.Symbol,
		Amount:             req.Amount,
		DestinationAddress: req.Address,
		IdempotencyKey:     req.IdempotencyId,
	})
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		return "", apperrors.ErrValidation("crypto_amount", "exceeds the consumer's custodial balance")
	case errors.Is(err, store.ErrParticipantNotFound):
		return "", apperrors.ErrValidation("consumer", "participant is not registered")
	case err != nil:
		return "", fmt.Errorf("unable to debit consumer ledger: %w", err)
	}

	blockchainAddr := &model.BlockchainAddress{
		Address: req.Address,
	}

	// Network is configured as "<id>-<type>", e.g. ethereum-mainnet.
	if networkId, networkType, ok := strings.Cut(asset.Network, "-"); ok {
		blockchainAddr.Network = &model.NetworkDetails{
			Id:   networkId,
			Type: networkType,
		}
	}

	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       s.portfolioId,
		SourceWalletId:    asset.SettlementWalletId,
		Amount:            req.Amount.String(),
		IdempotencyKey:    req.IdempotencyId,
		Symbol:            asset.Symbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddr,
	}

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("wallet_id", asset.SettlementWalletId),
			zap.String("amount", request.Amount),
			zap.String("asset", asset.Symbol),
			zap.Error(err))
		return "", fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("activity_id", response.ActivityId),
		zap.String("wallet_id", asset.SettlementWalletId),
		zap.String("amount", request.Amount),
		zap.String("asset", asset.Symbol))

	return legId(asset.SettlementWalletId, s.now(), req.IdempotencyId), nil
}

// GetWithdrawal polls Prime for the withdrawal. A withdrawal Prime rejected,
// cancelled, expired or failed is credited back to the participant in the ledger.
func (s *Service) GetWithdrawal(ctx context.Context, withdrawalId string) (*gateway.Withdrawal, error) {
	l, err := parseLegId(withdrawalId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrWithdrawalNotFound, err)
	}

	tx, err := s.findTransaction(ctx, l)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return &gateway.Withdrawal{WithdrawalStatus: gateway.WithdrawalStatusPending}, nil
	}

	withdrawal := withdrawalStatus(tx.Status)
	if amount, err := decimal.NewFromString(tx.Amount); err == nil {
		withdrawal.RequestedAmount = amount.Abs()
		withdrawal.SettledAmount = amount.Abs()
	}
	if withdrawal.OnChainStatus == gateway.OnChainStatusConfirmed && len(tx.BlockchainIds) > 0 {
		withdrawal.OnChainTransactionId = tx.BlockchainIds[0]
	}

	if withdrawalFailed(withdrawal) {
		if err := s.ledger.ReverseWithdrawal(ctx, l.idempotencyKey); err != nil {
			zap.L().Error("Failed to reverse withdrawal debit",
				zap.String("withdrawal_id", withdrawalId),
				zap.String("prime_status", tx.Status),
				zap.Error(err))
			return nil, fmt.Errorf("unable to reverse withdrawal debit: %w", err)
		}
	}
	return withdrawal, nil
}

func withdrawalFailed(w *gateway.Withdrawal) bool {
	return w.WithdrawalStatus == gateway.WithdrawalStatusRejected ||
		(w.WithdrawalStatus == gateway.WithdrawalStatusSettled && w.OnChainStatus == gateway.OnChainStatusError)
}

func withdrawalStatus(status string) *gateway.Withdrawal {
	status = strings.ToUpper(status)
	switch {
	case status == txStatusCreated, status == txStatusRequested, status == txStatusDelayed:
		return &gateway.Withdrawal{WithdrawalStatus: gateway.WithdrawalStatusPending}
	case status == txStatusApproved:
		return &gateway.Withdrawal{WithdrawalStatus: gateway.WithdrawalStatusApproved}
	case inFlightStatuses[status]:
		return &gateway.Withdrawal{
			WithdrawalStatus: gateway.WithdrawalStatusSettled,
			OnChainStatus:    gateway.OnChainStatusPending,
		}
	case status == txStatusDone:
		return &gateway.Withdrawal{
			WithdrawalStatus: gateway.WithdrawalStatusSettled,
			OnChainStatus:    gateway.OnChainStatusConfirmed,
		}
	case status == txStatusFailed:
		return &gateway.Withdrawal{
			WithdrawalStatus: gateway.WithdrawalStatusSettled,
			OnChainStatus:    gateway.OnChainStatusError,
		}
	case status == txStatusCancelled, status == txStatusRejected, status == txStatusExpired:
		return &gateway.Withdrawal{WithdrawalStatus: gateway.WithdrawalStatusRejected}
	default:
		return &gateway.Withdrawal{WithdrawalStatus: strings.ToLower(status)}
	}
}
