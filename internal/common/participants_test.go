package common

import (
	"context"
	"testing"

	"prime-conversion-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePlatformParticipant(t *testing.T) {
	ctx := context.Background()
	ledger := testutil.NewFakeLedger()

	require.NoError(t, EnsurePlatformParticipant(ctx, ledger, "platform"))
	require.NoError(t, EnsurePlatformParticipant(ctx, ledger, "platform"))

	participants, err := ledger.GetParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "platform", participants[0].Id)

	assert.Error(t, EnsurePlatformParticipant(ctx, ledger, ""))
}

func TestLookupParticipants(t *testing.T) {
	ctx := context.Background()
	ledger := testutil.NewFakeLedger()
	_, err := ledger.CreateParticipant(ctx, "p-1", "Alice", "alice@example.com")
	require.NoError(t, err)
	_, err = ledger.CreateParticipant(ctx, "p-2", "Bob", "bob@example.com")
	require.NoError(t, err)

	all, err := LookupParticipants(ctx, ledger, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := LookupParticipants(ctx, ledger, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "p-2", one[0].Id)

	_, err = LookupParticipants(ctx, ledger, "carol@example.com")
	assert.Error(t, err)
}
