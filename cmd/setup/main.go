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

package main

import (
	"context"
	"flag"
	"fmt"

	"prime-conversion-go/internal/common"
	"prime-conversion-go/internal/config"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type assetWallets struct {
	Symbol             string `json:"symbol"`
	Network            string `json:"network"`
	TradingWalletId    string `json:"trading_wallet_id"`
	SettlementWalletId string `json:"settlement_wallet_id"`
}

// getOrCreateWallet retrieves an existing wallet of the given type or creates a new one
func getOrCreateWallet(ctx context.Context, services *common.Services, symbol, walletType, role string, dryRun bool) (*models.Wallet, error) {
	zap.L().Debug("Listing wallets for asset",
		zap.String("asset", symbol),
		zap.String("wallet_type", walletType))
	wallets, err := services.Prime.ListWallets(ctx, walletType, []string{symbol})
	if err != nil {
		return nil, err
	}

	if len(wallets) > 0 {
		wallet := &wallets[0]
		zap.L().Info("Using existing wallet",
			zap.String("asset", symbol),
			zap.String("wallet_name", wallet.Name),
			zap.String("wallet_id", wallet.Id))
		return wallet, nil
	}

	walletName := fmt.Sprintf("%s %s Wallet", symbol, role)
	if dryRun {
		zap.L().Info("Wallet missing (dry run, not creating)",
			zap.String("asset", symbol),
			zap.String("wallet_name", walletName))
		return &models.Wallet{Name: walletName, Symbol: symbol, Type: walletType}, nil
	}

	zap.L().Info("Creating new wallet",
		zap.String("asset", symbol),
		zap.String("wallet_name", walletName))

	wallet, err := services.Prime.CreateWallet(ctx, walletName, symbol, walletType)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Created new wallet",
		zap.String("asset", symbol),
		zap.String("wallet_name", wallet.Name),
		zap.String("wallet_id", wallet.Id))
	return wallet, nil
}

func setupAsset(ctx context.Context, services *common.Services, asset currency.Asset, dryRun bool) (*assetWallets, error) {
	trading, err := getOrCreateWallet(ctx, services, asset.Symbol, models.WalletTypeTrading, "Trading", dryRun)
	if err != nil {
		return nil, fmt.Errorf("trading wallet: %w", err)
	}

	settlement, err := getOrCreateWallet(ctx, services, asset.Symbol, models.WalletTypeVault, "Settlement", dryRun)
	if err != nil {
		return nil, fmt.Errorf("settlement wallet: %w", err)
	}

	return &assetWallets{
		Symbol:             asset.Symbol,
		Network:            asset.Network,
		TradingWalletId:    trading.Id,
		SettlementWalletId: settlement.Id,
	}, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	dryRun := flag.Bool("dry-run", false, "List wallets without creating missing ones")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var results []*assetWallets
	var failedAssets []string

	for _, asset := range services.Assets.Assets() {
		// Routed assets are bought as their intermediary and never held in Prime
		if asset.IsRouted() {
			zap.L().Info("Skipping routed asset",
				zap.String("asset", asset.Symbol),
				zap.String("route_via", asset.RouteVia))
			continue
		}

		wallets, err := setupAsset(ctx, services, asset, *dryRun)
		if err != nil {
			zap.L().Error("Failed to set up wallets",
				zap.String("asset", asset.Symbol),
				zap.Error(err))
			failedAssets = append(failedAssets, asset.Symbol)
			continue
		}
		results = append(results, wallets)
	}

	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		zap.L().Fatal("Failed to marshal wallet summary", zap.Error(err))
	}

	common.PrintHeader("PRIME WALLETS (copy the ids into your asset configuration)", common.DefaultWidth)
	fmt.Println(string(output))

	if len(failedAssets) > 0 {
		zap.L().Warn("Wallet setup completed with some failures",
			zap.Int("assets_ready", len(results)),
			zap.Strings("failed_assets", failedAssets))
		return
	}
	zap.L().Info("Wallet setup completed successfully", zap.Int("assets_ready", len(results)))
}
