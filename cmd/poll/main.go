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
	"os"
	"strings"
	"time"

	"prime-conversion-go/internal/common"
	"prime-conversion-go/internal/config"
	"prime-conversion-go/internal/strategy"

	"go.uber.org/zap"
)

// pollLeg returns the mapped status of one leg handle.
func pollLeg(ctx context.Context, st strategy.AssetStrategy, leg, id string) (any, bool) {
	switch leg {
	case strategy.LegExecuteQuote:
		return st.PollExecuteQuoteForFundsAvailabilityStatus(ctx, id), true
	case strategy.LegFundsAvailable:
		return st.PollFundsAvailableStatus(ctx, id), true
	case strategy.LegConsumerAccount:
		return st.PollAssetTransferToConsumerStatus(ctx, id), true
	case strategy.LegConsumerWallet:
		return st.PollConsumerWalletTransferStatus(ctx, id), true
	default:
		return nil, false
	}
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	crypto := flag.String("crypto", "", "Crypto currency the leg belongs to (required)")
	leg := flag.String("leg", "", "Leg to poll: execute_quote, funds_available, consumer_account or consumer_wallet (required)")
	id := flag.String("id", "", "Leg handle returned when the leg was requested (required)")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Parse()

	if *crypto == "" || *leg == "" || *id == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	st, err := services.Conversions.Strategy(*crypto)
	if err != nil {
		logger.Fatal("Unknown asset", zap.String("crypto_currency", *crypto), zap.Error(err))
	}

	status, ok := pollLeg(ctx, st, strings.ToLower(*leg), *id)
	if !ok {
		logger.Fatal("Unknown leg", zap.String("leg", *leg))
	}

	common.PrintHeader("LEG STATUS", common.DefaultWidth)
	if err := common.PrintJSON(status); err != nil {
		logger.Fatal("Failed to print status", zap.Error(err))
	}
}
