package formance

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"prime-conversion-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the current balance for a participant and asset.
// Queries the single participants:{id} account directly.
func (s *Service) GetBalance(ctx context.Context, participantId, asset string) (decimal.Decimal, error) {
	zap.L().Debug("Getting participant balance from Formance",
		zap.String("participant_id", participantId), zap.String("asset", asset))

	account, err := s.getAccount(ctx, participantAccount(participantId))
	if err != nil || account == nil {
		return decimal.Zero, err
	}
	if bal := volumeBalance(account.Volumes, formanceAsset(asset)); bal != nil {
		return bigIntToDecimal(bal, asset), nil
	}
	return decimal.Zero, nil
}

// GetAllBalances returns all non-zero balances for a participant, sorted by asset.
func (s *Service) GetAllBalances(ctx context.Context, participantId string) ([]models.AccountBalance, error) {
	zap.L().Debug("Getting all participant balances from Formance", zap.String("participant_id", participantId))

	addr := participantAccount(participantId)
	account, err := s.getAccount(ctx, addr)
	if err != nil || account == nil {
		return nil, err
	}

	updatedAt := time.Now()
	switch {
	case account.UpdatedAt != nil:
		updatedAt = *account.UpdatedAt
	case account.FirstUsage != nil:
		updatedAt = *account.FirstUsage
	}
	lastReference := s.lastReference(ctx, addr)

	var balances []models.AccountBalance
	for fAsset := range account.Volumes {
		bal := volumeBalance(account.Volumes, fAsset)
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		symbol := assetSymbol(fAsset)
		balances = append(balances, models.AccountBalance{
			Id:                addr,
			ParticipantId:     participantId,
			Asset:             symbol,
			Balance:           bigIntToDecimal(bal, symbol),
			LastTransactionId: lastReference,
			UpdatedAt:         updatedAt,
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })
	return balances, nil
}

// getAccount fetches one account with its volumes. A nil account means it was
// never used.
func (s *Service) getAccount(ctx context.Context, address string) (*shared.V2Account, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		zap.L().Warn("Failed to get account", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &resp.V2AccountResponse.Data, nil
}

// lastReference returns the reference of the newest transaction touching address.
func (s *Service) lastReference(ctx context.Context, address string) string {
	pageSize := int64(1)
	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$or": []any{
				map[string]any{"$match": map[string]any{"source": address}},
				map[string]any{"$match": map[string]any{"destination": address}},
			},
		},
	})
	if err != nil || len(resp.V2TransactionsCursorResponse.Cursor.Data) == 0 {
		return ""
	}
	if ref := resp.V2TransactionsCursorResponse.Cursor.Data[0].Reference; ref != nil {
		return *ref
	}
	return ""
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, symbol string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(symbol)))
}

// assetSymbol extracts the symbol from a Formance asset like "USDC/6".
func assetSymbol(fAsset string) string {
	for i, c := range fAsset {
		if c == '/' {
			return fAsset[:i]
		}
	}
	return fAsset
}
