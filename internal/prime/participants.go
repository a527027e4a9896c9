package prime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Prime has no notion of end consumers; participants are kept in the consumer ledger.

func (s *Service) GetParticipantByEmail(ctx context.Context, email string) (*gateway.Participant, error) {
	p, err := s.ledger.GetParticipantByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrParticipantNotFound) {
		return nil, gateway.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to look up participant: %w", err)
	}
	return toParticipant(p), nil
}

func (s *Service) CreateParticipant(ctx context.Context, req gateway.ParticipantRequest) (*gateway.Participant, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	p, err := s.ledger.CreateParticipant(ctx, uuid.New().String(), req.Name, email)
	if errors.Is(err, store.ErrParticipantExists) {
		return nil, gateway.ErrParticipantExists
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create participant: %w", err)
	}

	zap.L().Info("Participant created",
		zap.String("participant_id", p.Id),
		zap.String("email", p.Email))

	return toParticipant(p), nil
}

func toParticipant(p *models.Participant) *gateway.Participant {
	return &gateway.Participant{
		Id:    p.Id,
		Email: p.Email,
		Name:  p.Name,
	}
}
