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
	"strings"
	"time"

	"prime-conversion-go/internal/common"
	"prime-conversion-go/internal/config"
	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	participants  int
	withBalances  int
	balances      int
	totalsByAsset map[string]decimal.Decimal
	assetsInOrder []string
}

func (s *balanceStats) add(b models.AccountBalance) {
	if _, ok := s.totalsByAsset[b.Asset]; !ok {
		s.assetsInOrder = append(s.assetsInOrder, b.Asset)
	}
	s.totalsByAsset[b.Asset] = s.totalsByAsset[b.Asset].Add(b.Balance)
	s.balances++
}

func shortRef(ref string) string {
	switch {
	case ref == "":
		return "-"
	case len(ref) > 12:
		return ref[:12] + "…"
	default:
		return ref
	}
}

func filterBalances(balances []models.AccountBalance, asset string, includeZero bool) []models.AccountBalance {
	out := balances[:0:0]
	for _, b := range balances {
		if asset != "" && b.Asset != asset {
			continue
		}
		if !includeZero && b.Balance.IsZero() {
			continue
		}
		out = append(out, b)
	}
	return out
}

func printParticipant(p common.ParticipantInfo, balances []models.AccountBalance, platform bool) {
	label := "Participant"
	if platform {
		label = "Platform"
	}
	fmt.Printf("\n┌─ %s: %s <%s>\n", label, p.Name, p.Email)
	fmt.Printf("│  id=%s assets=%d\n", p.Id, len(balances))
	common.PrintBoxSeparator(78)

	for i, b := range balances {
		fmt.Printf("%s %-8s %24s  ref=%-14s v%-4d %s\n",
			common.BoxPrefix(i == len(balances)-1),
			b.Asset,
			b.Balance.String(),
			shortRef(b.LastTransactionId),
			b.Version,
			b.UpdatedAt.Format(time.DateTime))
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Only report the participant with this email")
	assetFlag := flag.String("asset", "", "Only report balances in this asset")
	zeroFlag := flag.Bool("include-zero", false, "Include zero balances")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only, the Prime API is not needed
	ledger, err := common.InitializeLedger(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize ledger", zap.Error(err))
	}
	defer ledger.Close()

	participants, err := common.LookupParticipants(ctx, ledger, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to look up participants", zap.Error(err))
	}

	asset := strings.ToUpper(*assetFlag)
	stats := balanceStats{totalsByAsset: make(map[string]decimal.Decimal)}

	common.PrintHeader("CUSTODIAL BALANCES", common.DefaultWidth)

	for _, p := range participants {
		stats.participants++

		all, err := ledger.GetAllBalances(ctx, p.Id)
		if err != nil {
			logger.Error("Failed to get balances",
				zap.String("participant_id", p.Id),
				zap.Error(err))
			continue
		}

		balances := filterBalances(all, asset, *zeroFlag)
		if len(balances) == 0 {
			continue
		}
		stats.withBalances++

		platform := p.Id == cfg.Prime.PlatformParticipantId
		printParticipant(p, balances, platform)
		if platform {
			continue
		}
		for _, b := range balances {
			stats.add(b)
		}
	}

	fmt.Println()
	for _, a := range stats.assetsInOrder {
		fmt.Printf("  consumer total %-8s %24s\n", a, stats.totalsByAsset[a].String())
	}

	summary := fmt.Sprintf("%d of %d participants hold %d balances",
		stats.withBalances, stats.participants, stats.balances)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.String("asset", asset),
		zap.Int("participants", stats.participants),
		zap.Int("participants_with_balances", stats.withBalances))
}
