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
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetParticipants(ctx context.Context) ([]models.Participant, error) {
	zap.L().Debug("Querying active participants")

	rows, err := s.db.QueryContext(ctx, queryGetParticipants)
	if err != nil {
		zap.L().Error("Failed to query participants", zap.Error(err))
		return nil, fmt.Errorf("unable to query participants: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Id, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
			zap.L().Error("Failed to scan participant row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during participant row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	zap.L().Info("Retrieved participants", zap.Int("count", len(participants)))
	return participants, nil
}

func (s *Service) GetParticipantById(ctx context.Context, participantId string) (*models.Participant, error) {
	return s.getParticipant(ctx, queryGetParticipantById, "participant_id", participantId)
}

func (s *Service) GetParticipantByEmail(ctx context.Context, email string) (*models.Participant, error) {
	return s.getParticipant(ctx, queryGetParticipantByEmail, "email", email)
}

func (s *Service) getParticipant(ctx context.Context, query, field, value string) (*models.Participant, error) {
	zap.L().Debug("Querying participant", zap.String(field, value))

	var p models.Participant
	err := s.db.QueryRowContext(ctx, query, value).Scan(&p.Id, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrParticipantNotFound, value)
		}
		zap.L().Error("Failed to query participant", zap.String(field, value), zap.Error(err))
		return nil, fmt.Errorf("unable to query participant: %w", err)
	}

	return &p, nil
}

func (s *Service) CreateParticipant(ctx context.Context, participantId, name, email string) (*models.Participant, error) {
	zap.L().Info("Creating participant", zap.String("id", participantId), zap.String("name", name), zap.String("email", email))

	result, err := s.db.ExecContext(ctx, queryInsertParticipant, participantId, name, email)
	if err != nil {
		zap.L().Error("Failed to insert participant", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert participant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrParticipantExists, email)
	}

	zap.L().Info("Participant created successfully", zap.String("id", participantId), zap.String("email", email))

	return s.GetParticipantById(ctx, participantId)
}
