package prime

import (
	"context"
	"fmt"
	"strings"

	"prime-conversion-go/internal/gateway"

	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"go.uber.org/zap"
)

// Prime transaction states.
const (
	txStatusCreated      = "TRANSACTION_CREATED"
	txStatusRequested    = "TRANSACTION_REQUESTED"
	txStatusDelayed      = "TRANSACTION_DELAYED"
	txStatusApproved     = "TRANSACTION_APPROVED"
	txStatusGassing      = "TRANSACTION_GASSING"
	txStatusGassed       = "TRANSACTION_GASSED"
	txStatusProvisioned  = "TRANSACTION_PROVISIONED"
	txStatusPlanned      = "TRANSACTION_PLANNED"
	txStatusProcessing   = "TRANSACTION_PROCESSING"
	txStatusRestored     = "TRANSACTION_RESTORED"
	txStatusRetried      = "TRANSACTION_RETRIED"
	txStatusBroadcasting = "TRANSACTION_BROADCASTING"
	txStatusConstructed  = "TRANSACTION_CONSTRUCTED"
	txStatusDone         = "TRANSACTION_DONE"
	txStatusCancelled    = "TRANSACTION_CANCELLED"
	txStatusRejected     = "TRANSACTION_REJECTED"
	txStatusFailed       = "TRANSACTION_FAILED"
	txStatusExpired      = "TRANSACTION_EXPIRED"
)

// inFlightStatuses are states in which Prime has approved the movement and is
// working it on-chain.
var inFlightStatuses = map[string]bool{
	txStatusGassing:      true,
	txStatusGassed:       true,
	txStatusProvisioned:  true,
	txStatusPlanned:      true,
	txStatusProcessing:   true,
	txStatusRestored:     true,
	txStatusRetried:      true,
	txStatusBroadcasting: true,
	txStatusConstructed:  true,
}

// TransferAssets moves an asset between two wallets of the portfolio.
func (s *Service) TransferAssets(ctx context.Context, req gateway.TransferRequest) (string, error) {
	zap.L().Info("Creating wallet transfer via Prime API",
		zap.String("from_wallet", req.FromAccount),
		zap.String("to_wallet", req.ToAccount),
		zap.String("asset", req.Asset),
		zap.String("amount", req.Amount.String()))

	response, err := s.transactionsSvc.CreateWalletTransfer(ctx, &transactions.CreateWalletTransferRequest{
		PortfolioId:         s.portfolioId,
		SourceWalletId:      req.FromAccount,
		DestinationWalletId: req.ToAccount,
		Symbol:              strings.ToUpper(req.Asset),
		Amount:              req.Amount.String(),
		IdempotencyKey:      req.IdempotencyId,
	})
	if err != nil {
		zap.L().Error("Failed to create wallet transfer",
			zap.String("from_wallet", req.FromAccount),
			zap.String("asset", req.Asset),
			zap.Error(err))
		return "", fmt.Errorf("unable to create wallet transfer: %w", err)
	}

	zap.L().Info("Wallet transfer created successfully",
		zap.String("activity_id", response.ActivityId),
		zap.String("from_wallet", req.FromAccount))

	return legId(req.FromAccount, s.now(), req.IdempotencyId), nil
}

func (s *Service) GetTransfer(ctx context.Context, transferId string) (*gateway.Transfer, error) {
	l, err := parseLegId(transferId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrTransferNotFound, err)
	}

	tx, err := s.findTransaction(ctx, l)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return &gateway.Transfer{Status: gateway.TransferStatusPending}, nil
	}

	transfer := &gateway.Transfer{Status: transferStatus(tx.Status)}
	if transfer.Status == gateway.TransferStatusSettled {
		transfer.MovementId = tx.Id
	}
	return transfer, nil
}

func transferStatus(status string) string {
	status = strings.ToUpper(status)
	switch {
	case status == txStatusCreated, status == txStatusRequested, status == txStatusDelayed:
		return gateway.TransferStatusPending
	case status == txStatusApproved, inFlightStatuses[status]:
		return gateway.TransferStatusApproved
	case status == txStatusDone:
		return gateway.TransferStatusSettled
	case status == txStatusCancelled, status == txStatusExpired:
		return gateway.TransferStatusCancelled
	case status == txStatusRejected, status == txStatusFailed:
		return gateway.TransferStatusRejected
	default:
		return strings.ToLower(status)
	}
}
