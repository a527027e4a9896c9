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

package currency

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned for symbols missing from the asset configuration.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Asset is the resolved metadata for one crypto asset.
type Asset struct {
	Symbol             string
	Network            string
	Precision          int32
	NetworkFee         decimal.Decimal
	SpreadOverride     decimal.NullDecimal
	TradingWalletId    string
	SettlementWalletId string
	RouteVia           string
	TokenAddress       string
	TokenDecimals      int32
}

// IsRouted reports whether the asset is reached through an intermediary leg.
func (a Asset) IsRouted() bool {
	return a.RouteVia != ""
}

// Registry answers currency metadata lookups.
type Registry struct {
	assets map[string]Asset
	fiat   map[string]struct{}
}

// NewRegistry builds a registry from a parsed asset configuration.
func NewRegistry(cfg *AssetsConfig) (*Registry, error) {
	r := &Registry{
		assets: make(map[string]Asset, len(cfg.Assets)),
		fiat:   make(map[string]struct{}, len(cfg.Fiat)),
	}

	for _, f := range cfg.Fiat {
		r.fiat[strings.ToUpper(f)] = struct{}{}
	}

	for _, a := range cfg.Assets {
		asset := Asset{
			Symbol:             a.Symbol,
			Network:            a.Network,
			Precision:          int32(a.Precision),
			TradingWalletId:    a.TradingWalletId,
			SettlementWalletId: a.SettlementWalletId,
			RouteVia:           a.RouteVia,
			TokenAddress:       a.TokenAddress,
			TokenDecimals:      int32(a.TokenDecimals),
		}
		if a.NetworkFee != "" {
			asset.NetworkFee = decimal.RequireFromString(a.NetworkFee)
		}
		if a.SpreadOverride != "" {
			asset.SpreadOverride = decimal.NewNullDecimal(decimal.RequireFromString(a.SpreadOverride))
		}
		if _, dup := r.assets[asset.Symbol]; dup {
			return nil, fmt.Errorf("asset %s configured twice", asset.Symbol)
		}
		r.assets[asset.Symbol] = asset
	}

	for _, a := range r.assets {
		if !a.IsRouted() {
			continue
		}
		via, ok := r.assets[a.RouteVia]
		if !ok {
			return nil, fmt.Errorf("asset %s routes via unknown asset %s", a.Symbol, a.RouteVia)
		}
		if via.IsRouted() {
			return nil, fmt.Errorf("asset %s routes via %s which is itself routed", a.Symbol, a.RouteVia)
		}
	}

	return r, nil
}

// Lookup returns the metadata for a crypto symbol.
func (r *Registry) Lookup(symbol string) (Asset, error) {
	a, ok := r.assets[strings.ToUpper(symbol)]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, symbol)
	}
	return a, nil
}

// PrecisionOf returns the number of decimals crypto quantities of symbol are rounded to.
func (r *Registry) PrecisionOf(symbol string) (int32, error) {
	a, err := r.Lookup(symbol)
	if err != nil {
		return 0, err
	}
	return a.Precision, nil
}

// SpreadOverrideOf returns the per-asset spread if one is configured.
func (r *Registry) SpreadOverrideOf(symbol string) (decimal.Decimal, bool) {
	a, err := r.Lookup(symbol)
	if err != nil || !a.SpreadOverride.Valid {
		return decimal.Zero, false
	}
	return a.SpreadOverride.Decimal, true
}

// IsSupportedFiat reports whether the fiat currency is configured.
func (r *Registry) IsSupportedFiat(symbol string) bool {
	_, ok := r.fiat[strings.ToUpper(symbol)]
	return ok
}

// ProductId returns the provider product identifier for a crypto/fiat pair, e.g. "ETH-USD".
func (r *Registry) ProductId(crypto, fiat string) string {
	return strings.ToUpper(crypto) + "-" + strings.ToUpper(fiat)
}

// Assets returns all configured assets sorted by symbol.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
