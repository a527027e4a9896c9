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
	"context"
	"errors"
	"fmt"

	"prime-conversion-go/internal/store"

	"go.uber.org/zap"
)

// ParticipantInfo represents simplified participant information for command-line utilities
type ParticipantInfo struct {
	Id    string
	Name  string
	Email string
}

// LookupParticipants retrieves participants based on an optional email filter.
// If emailFilter is provided, returns a single participant with that email.
// If emailFilter is empty, returns all participants.
func LookupParticipants(ctx context.Context, ledger store.ConsumerLedger, emailFilter string) ([]ParticipantInfo, error) {
	var participants []ParticipantInfo

	if emailFilter != "" {
		zap.L().Info("Looking up participant by email", zap.String("email", emailFilter))
		p, err := ledger.GetParticipantByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("participant not found: %w", err)
		}
		participants = append(participants, ParticipantInfo{
			Id:    p.Id,
			Name:  p.Name,
			Email: p.Email,
		})
	} else {
		all, err := ledger.GetParticipants(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get participants: %w", err)
		}
		for _, p := range all {
			participants = append(participants, ParticipantInfo{
				Id:    p.Id,
				Name:  p.Name,
				Email: p.Email,
			})
		}
	}

	zap.L().Info("Retrieved participants", zap.Int("count", len(participants)))
	return participants, nil
}

// EnsurePlatformParticipant creates the participant that sells operating funds
// to consumers if the ledger does not know it yet.
func EnsurePlatformParticipant(ctx context.Context, ledger store.ConsumerLedger, participantId string) error {
	if participantId == "" {
		return fmt.Errorf("platform participant id cannot be empty")
	}

	_, err := ledger.GetParticipantById(ctx, participantId)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrParticipantNotFound) {
		return fmt.Errorf("unable to look up platform participant: %w", err)
	}

	email := fmt.Sprintf("%s@platform.invalid", participantId)
	if _, err := ledger.CreateParticipant(ctx, participantId, "Platform", email); err != nil && !errors.Is(err, store.ErrParticipantExists) {
		return fmt.Errorf("unable to create platform participant: %w", err)
	}

	zap.L().Info("Platform participant created", zap.String("participant_id", participantId))
	return nil
}
