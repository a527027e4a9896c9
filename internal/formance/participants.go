package formance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

const participantPrefix = "participants:"

func participantAccount(participantId string) string {
	return participantPrefix + participantId
}

// ---------- Participant CRUD ----------

func (s *Service) CreateParticipant(ctx context.Context, participantId, name, email string) (*models.Participant, error) {
	// Reject duplicates by email; the account address alone cannot enforce it.
	existing, err := s.GetParticipantByEmail(ctx, email)
	if err == nil && existing != nil {
		zap.L().Info("Participant with this email already exists in Formance",
			zap.String("existing_id", existing.Id),
			zap.String("email", email))
		return nil, fmt.Errorf("%w: %s", store.ErrParticipantExists, email)
	}

	addr := participantAccount(participantId)
	zap.L().Info("Creating participant in Formance", zap.String("address", addr), zap.String("email", email))

	_, err = s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:  s.ledger,
		Address: addr,
		RequestBody: map[string]string{
			"entity_type": "participant",
			"active":      "true",
			"name":        name,
			"email":       strings.ToLower(email),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create participant account: %w", err)
	}

	return s.GetParticipantById(ctx, participantId)
}

func (s *Service) GetParticipantById(ctx context.Context, participantId string) (*models.Participant, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: participantAccount(participantId),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrParticipantNotFound, participantId)
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	acct := resp.V2AccountResponse.Data
	if acct.Metadata["email"] == "" {
		return nil, fmt.Errorf("%w: %s", store.ErrParticipantNotFound, participantId)
	}

	return accountToParticipant(&acct), nil
}

func (s *Service) GetParticipantByEmail(ctx context.Context, email string) (*models.Participant, error) {
	resp, err := s.client.Ledger.V2.ListAccounts(ctx, operations.V2ListAccountsRequest{
		Ledger:   s.ledger,
		PageSize: ptrInt64(100),
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[email]": strings.ToLower(email),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search participant by email: %w", err)
	}

	for i := range resp.V2AccountsCursorResponse.Cursor.Data {
		acct := &resp.V2AccountsCursorResponse.Cursor.Data[i]
		if isParticipantAccount(acct.Address) {
			return accountToParticipant(acct), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrParticipantNotFound, email)
}

func (s *Service) GetParticipants(ctx context.Context) ([]models.Participant, error) {
	resp, err := s.client.Ledger.V2.ListAccounts(ctx, operations.V2ListAccountsRequest{
		Ledger:   s.ledger,
		PageSize: ptrInt64(100),
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[entity_type]": "participant",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	var participants []models.Participant
	for i := range resp.V2AccountsCursorResponse.Cursor.Data {
		acct := &resp.V2AccountsCursorResponse.Cursor.Data[i]
		if isParticipantAccount(acct.Address) {
			participants = append(participants, *accountToParticipant(acct))
		}
	}
	return participants, nil
}

// ---------- helpers ----------

// isParticipantAccount matches top-level participant accounts only (participants:{id}).
func isParticipantAccount(address string) bool {
	id, ok := strings.CutPrefix(address, participantPrefix)
	return ok && id != "" && !strings.Contains(id, ":")
}

func accountToParticipant(acct *shared.V2Account) *models.Participant {
	meta := acct.Metadata

	now := time.Now()
	if t := acct.FirstUsage; t != nil {
		now = *t
	}
	updated := now
	if t := acct.UpdatedAt; t != nil {
		updated = *t
	}

	return &models.Participant{
		Id:        strings.TrimPrefix(acct.Address, participantPrefix),
		Name:      meta["name"],
		Email:     meta["email"],
		CreatedAt: now,
		UpdatedAt: updated,
	}
}
