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

	"prime-conversion-go/internal/models"
)

// AssetStrategy quotes and settles conversions for one crypto asset. The settlement
// pipeline is four request/poll pairs; every request is idempotent on the caller's
// transaction ID and every poll is read-only and never returns an error, only a
// mapped status.
type AssetStrategy interface {
	GetQuoteForFixedFiat(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error)
	GetQuoteForFixedCrypto(ctx context.Context, req models.QuoteRequest) (*models.CombinedQuote, error)

	ExecuteQuoteForFundsAvailability(ctx context.Context, req models.ExecuteQuoteRequest) (*models.ExecutedQuote, error)
	PollExecuteQuoteForFundsAvailabilityStatus(ctx context.Context, tradeId string) models.ExecuteQuoteStatus

	MakeFundsAvailable(ctx context.Context, req models.FundsAvailabilityRequest) (*models.FundsAvailabilityResponse, error)
	PollFundsAvailableStatus(ctx context.Context, transferId string) models.FundsAvailabilityStatus

	TransferAssetToConsumerAccount(ctx context.Context, req models.ConsumerAccountTransferRequest) (string, error)
	PollAssetTransferToConsumerStatus(ctx context.Context, tradeId string) models.ConsumerAccountTransferStatus

	TransferToConsumerWallet(ctx context.Context, req models.ConsumerWalletTransferRequest) (*models.ConsumerWalletTransferResponse, error)
	PollConsumerWalletTransferStatus(ctx context.Context, withdrawalId string) models.ConsumerWalletTransferStatus

	NeedsIntermediaryLeg() bool
	GetIntermediaryLeg() string
}
