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

package api

import (
	"context"
	"fmt"

	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetConsumerBalance returns the custodial balance of a participant for one asset
func (s *ConversionService) GetConsumerBalance(ctx context.Context, participantId, asset string) (decimal.Decimal, error) {
	if participantId == "" || asset == "" {
		return decimal.Zero, fmt.Errorf("participant_id and asset are required")
	}

	balance, err := s.ledger.GetBalance(ctx, participantId, asset)
	if err != nil {
		zap.L().Error("Failed to get consumer balance",
			zap.String("participant_id", participantId),
			zap.String("asset", asset),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance")
	}

	return balance, nil
}

// GetConsumerBalances returns all non-zero balances for a participant
func (s *ConversionService) GetConsumerBalances(ctx context.Context, participantId string) ([]models.ConsumerBalance, error) {
	if participantId == "" {
		return nil, fmt.Errorf("participant_id is required")
	}

	balances, err := s.ledger.GetAllBalances(ctx, participantId)
	if err != nil {
		zap.L().Error("Failed to get consumer balances", zap.String("participant_id", participantId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances")
	}

	result := make([]models.ConsumerBalance, 0, len(balances))
	for _, balance := range balances {
		if balance.Balance.IsZero() {
			continue
		}
		result = append(result, models.ConsumerBalance{
			Asset:   balance.Asset,
			Balance: balance.Balance,
		})
	}

	return result, nil
}

// ParticipantBalances is the balance report line for one participant
type ParticipantBalances struct {
	Participant models.Participant
	Balances    []models.ConsumerBalance
}

// BalanceReport lists every participant with their non-zero balances
func (s *ConversionService) BalanceReport(ctx context.Context) ([]ParticipantBalances, error) {
	participants, err := s.ledger.GetParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list participants: %w", err)
	}

	report := make([]ParticipantBalances, 0, len(participants))
	for _, p := range participants {
		balances, err := s.GetConsumerBalances(ctx, p.Id)
		if err != nil {
			return nil, err
		}
		report = append(report, ParticipantBalances{Participant: p, Balances: balances})
	}

	return report, nil
}
