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

package routing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownTarget = errors.New("no route configured for target asset")
	ErrNoLiquidity   = errors.New("route returned no output")
)

// RouteRequest asks for a swap of SourceQuantity of the intermediary asset into
// TargetAsset. DestinationAddress is empty when only a price is needed.
type RouteRequest struct {
	TargetAsset        string
	SourceQuantity     decimal.Decimal
	DestinationAddress string
}

// Route is an executable swap. SmartContractData and ContractAddress are only set
// when the request carried a destination address; the intermediary must be sent
// to ContractAddress with SmartContractData for the swap to execute.
type Route struct {
	AssetQuantity     decimal.Decimal
	ExchangeRate      decimal.Decimal
	SmartContractData []byte
	ContractAddress   string
}

// Provider swaps a provider-listed intermediary asset into assets the liquidity
// provider does not list.
type Provider interface {
	GetIntermediaryLeg() string
	Route(ctx context.Context, req RouteRequest) (*Route, error)
}
