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

package common

import (
	"fmt"

	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/pricing"
	"prime-conversion-go/internal/routing"
	"prime-conversion-go/internal/strategy"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// RouterFactory builds the on-chain router that swaps intermediary into targets.
type RouterFactory func(intermediary currency.Asset, targets []currency.Asset) (routing.Provider, error)

// StrategyDeps holds what every strategy shares.
type StrategyDeps struct {
	Assets       *currency.Registry
	Gateway      gateway.LiquidityProviderGateway
	Participants *strategy.ParticipantResolver
	Fees         models.FeeConfig
	Prime        models.PrimeConfig
	// Routers is nil when routing is disabled; routed assets are then skipped.
	Routers RouterFactory
}

// BuildStrategies returns one strategy per configured asset, keyed by symbol.
func BuildStrategies(deps StrategyDeps) (map[string]strategy.AssetStrategy, error) {
	if deps.Assets == nil || deps.Gateway == nil || deps.Participants == nil {
		return nil, fmt.Errorf("asset registry, gateway and participant resolver are required")
	}

	calculator := pricing.NewCalculator(deps.Fees, deps.Gateway, deps.Assets)
	mapper := strategy.NewStatusMapper()

	strategies := make(map[string]strategy.AssetStrategy)
	direct := make(map[string]*strategy.Direct)
	routed := make(map[string][]currency.Asset)

	for _, asset := range deps.Assets.Assets() {
		if asset.IsRouted() {
			routed[asset.RouteVia] = append(routed[asset.RouteVia], asset)
			continue
		}

		d, err := strategy.NewDirect(strategy.DirectConfig{
			Asset:                 asset,
			Gateway:               deps.Gateway,
			Calculator:            calculator,
			Participants:          deps.Participants,
			Mapper:                mapper,
			PlatformParticipantId: deps.Prime.PlatformParticipantId,
			AccountGroup:          deps.Prime.AccountGroup,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to build strategy for %s: %w", asset.Symbol, err)
		}
		direct[asset.Symbol] = d
		strategies[asset.Symbol] = d
	}

	for via, targets := range routed {
		if deps.Routers == nil {
			for _, t := range targets {
				zap.L().Warn("Routing disabled, skipping routed asset",
					zap.String("symbol", t.Symbol),
					zap.String("route_via", via))
			}
			continue
		}

		inner, ok := direct[via]
		if !ok {
			return nil, fmt.Errorf("no direct strategy for intermediary %s", via)
		}
		intermediary, err := deps.Assets.Lookup(via)
		if err != nil {
			return nil, err
		}

		router, err := deps.Routers(intermediary, targets)
		if err != nil {
			return nil, fmt.Errorf("unable to build router via %s: %w", via, err)
		}

		for _, t := range targets {
			s, err := strategy.NewSwapRouted(t.Symbol, inner, router)
			if err != nil {
				return nil, fmt.Errorf("unable to build routed strategy for %s: %w", t.Symbol, err)
			}
			strategies[t.Symbol] = s
		}
	}

	zap.L().Info("Strategies built", zap.Int("count", len(strategies)))
	return strategies, nil
}

// UniswapRouters returns a RouterFactory backed by a Uniswap V2 router contract.
func UniswapRouters(caller routing.ContractCaller, cfg models.RoutingConfig) (RouterFactory, error) {
	if !ethcommon.IsHexAddress(cfg.RouterAddress) {
		return nil, fmt.Errorf("invalid router address %q", cfg.RouterAddress)
	}
	routerAddress := ethcommon.HexToAddress(cfg.RouterAddress)

	return func(intermediary currency.Asset, targets []currency.Asset) (routing.Provider, error) {
		via, err := toToken(intermediary)
		if err != nil {
			return nil, err
		}

		tokens := make([]routing.Token, 0, len(targets))
		for _, t := range targets {
			token, err := toToken(t)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
		}

		router, err := routing.NewUniswapV2Router(caller, routing.UniswapV2Config{
			RouterAddress: routerAddress,
			Intermediary:  via,
			Targets:       tokens,
			SlippageBps:   cfg.SlippageBps,
			Deadline:      cfg.Deadline,
			CallTimeout:   cfg.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		return router, nil
	}, nil
}

func toToken(a currency.Asset) (routing.Token, error) {
	if !ethcommon.IsHexAddress(a.TokenAddress) {
		return routing.Token{}, fmt.Errorf("asset %s has invalid token address %q", a.Symbol, a.TokenAddress)
	}
	return routing.Token{
		Symbol:   a.Symbol,
		Address:  ethcommon.HexToAddress(a.TokenAddress),
		Decimals: a.TokenDecimals,
	}, nil
}
