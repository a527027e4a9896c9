package strategy

import (
	"context"
	"errors"
	"strings"
	"time"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/cache"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"

	"go.uber.org/zap"
)

// ParticipantGateway is the part of the provider that knows consumer identities.
type ParticipantGateway interface {
	GetParticipantByEmail(ctx context.Context, email string) (*gateway.Participant, error)
	CreateParticipant(ctx context.Context, req gateway.ParticipantRequest) (*gateway.Participant, error)
}

// ParticipantResolver finds or creates the provider participant for a consumer.
// Two concurrent first-time resolutions may both try to create; the loser sees
// ErrParticipantExists and re-reads.
type ParticipantResolver struct {
	gateway ParticipantGateway
	cache   cache.Cache
	ttl     time.Duration
}

func NewParticipantResolver(gw ParticipantGateway, c cache.Cache, ttl time.Duration) *ParticipantResolver {
	return &ParticipantResolver{gateway: gw, cache: c, ttl: ttl}
}

func participantCacheKey(email string) string {
	return "participant:" + strings.ToLower(strings.TrimSpace(email))
}

// Resolve returns the provider participant ID for the consumer.
func (r *ParticipantResolver) Resolve(ctx context.Context, consumer models.ConsumerInfo) (string, error) {
	email := strings.TrimSpace(consumer.Email)
	if email == "" {
		return "", apperrors.ErrValidation("consumer.email", "must not be empty")
	}

	key := participantCacheKey(email)
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			if id, ok := v.(string); ok {
				return id, nil
			}
		}
	}

	participant, err := r.gateway.GetParticipantByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, gateway.ErrParticipantNotFound):
		participant, err = r.create(ctx, consumer, email)
		if err != nil {
			return "", err
		}
	default:
		zap.L().Error("Failed to look up participant",
			zap.String("consumer_id", consumer.Id),
			zap.Error(err))
		return "", apperrors.ErrUpstream("get_participant", err)
	}

	if r.cache != nil {
		r.cache.Set(key, participant.Id, r.ttl)
	}
	return participant.Id, nil
}

func (r *ParticipantResolver) create(ctx context.Context, consumer models.ConsumerInfo, email string) (*gateway.Participant, error) {
	participant, err := r.gateway.CreateParticipant(ctx, gateway.ParticipantRequest{
		Email: email,
		Name:  consumer.FullName(),
	})
	if err == nil {
		zap.L().Info("Created participant",
			zap.String("consumer_id", consumer.Id),
			zap.String("participant_id", participant.Id))
		return participant, nil
	}

	if !errors.Is(err, gateway.ErrParticipantExists) {
		zap.L().Error("Failed to create participant",
			zap.String("consumer_id", consumer.Id),
			zap.Error(err))
		return nil, apperrors.ErrUpstream("create_participant", err)
	}

	zap.L().Debug("Participant created concurrently, re-reading",
		zap.String("consumer_id", consumer.Id))
	participant, err = r.gateway.GetParticipantByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.ErrUpstream("get_participant", err)
	}
	return participant, nil
}
