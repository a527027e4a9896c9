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
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/workflow"

	"github.com/google/uuid"
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

	var consumer models.ConsumerInfo
	flag.StringVar(&consumer.Id, "consumer-id", "", "Consumer id in the caller's system")
	flag.StringVar(&consumer.Email, "email", "", "Consumer email (required)")
	flag.StringVar(&consumer.FirstName, "first-name", "", "Consumer first name")
	flag.StringVar(&consumer.LastName, "last-name", "", "Consumer last name")

	transactionId := flag.String("transaction-id", "", "Settlement transaction id; reuse it to resume (default: new uuid)")
	walletAddress := flag.String("wallet", "", "Withdraw to this on-chain address after crediting the consumer (optional)")
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall settlement timeout")
	flag.Parse()

	if flags.Crypto == "" || flags.Amount == "" || consumer.Email == "" {
		flag.Usage()
		os.Exit(2)
	}

	req, err := common.ParseQuoteRequest(flags)
	if err != nil {
		logger.Fatal("Invalid quote request", zap.Error(err))
	}

	if *transactionId == "" {
		*transactionId = uuid.New().String()
	}
	if consumer.Id == "" {
		consumer.Id = consumer.Email
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

	logger.Info("Settling conversion",
		zap.String("transaction_id", *transactionId),
		zap.String("crypto_currency", req.CryptoCurrency),
		zap.String("consumer_email", consumer.Email),
		zap.Bool("withdraw", *walletAddress != ""))

	result, err := services.Runner.Run(ctx, workflow.Request{
		TransactionId: *transactionId,
		Quote:         req,
		Consumer:      consumer,
		WalletAddress: *walletAddress,
	})

	common.PrintHeader("SETTLEMENT RESULT", common.DefaultWidth)
	if printErr := common.PrintJSON(result); printErr != nil {
		logger.Error("Failed to print result", zap.Error(printErr))
	}

	if err != nil {
		logger.Fatal("Settlement failed",
			zap.String("transaction_id", *transactionId),
			zap.String("reason", apperrors.SafeMessage(err)),
			zap.Error(err))
	}

	logger.Info("Settlement completed", zap.String("transaction_id", *transactionId))
}
