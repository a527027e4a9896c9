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
	"time"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/common"
	"prime-conversion-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	var flags common.QuoteFlags
	flag.StringVar(&flags.Crypto, "crypto", "", "Crypto currency to buy, e.g. ETH (required)")
	flag.StringVar(&flags.Fiat, "fiat", "USD", "Fiat currency to pay with")
	flag.StringVar(&flags.Side, "side", "FIAT", "Pinned side: FIAT or CRYPTO")
	flag.StringVar(&flags.Amount, "amount", "", "Fiat amount or crypto quantity, matching -side (required)")
	flag.StringVar(&flags.TransactionType, "type", "CARD_PURCHASE", "CARD_PURCHASE or WALLET_TRANSFER")
	flag.StringVar(&flags.Discount, "discount", "", "Optional discount JSON, e.g. {\"spread_percent\":\"0.5\"}")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	asJSON := flag.Bool("json", false, "Print the full combined quote as JSON")
	flag.Parse()

	if flags.Crypto == "" || flags.Amount == "" {
		flag.Usage()
		os.Exit(2)
	}

	req, err := common.ParseQuoteRequest(flags)
	if err != nil {
		logger.Fatal("Invalid quote request", zap.Error(err))
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

	quote, err := services.Conversions.GetQuote(ctx, req)
	if err != nil {
		logger.Fatal("Failed to get quote",
			zap.String("reason", apperrors.SafeMessage(err)),
			zap.Error(err))
	}

	common.PrintHeader("COMBINED QUOTE", common.DefaultWidth)
	if *asJSON {
		if err := common.PrintJSON(quote); err != nil {
			logger.Fatal("Failed to print quote", zap.Error(err))
		}
	} else {
		common.PrintQuoteSummary(quote)
	}

	logger.Info("Quote generated",
		zap.String("quote_id", quote.Quote.QuoteId),
		zap.String("total_fiat_amount", quote.Quote.TotalFiatAmount.String()),
		zap.String("total_crypto_quantity", quote.Quote.TotalCryptoQuantity.String()),
		zap.Time("expires_at", quote.Quote.ExpiresAt))
}
