package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
)

func TestAuditTrail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.AppendEntry(ctx, models.LedgerEntry{Time: base, Type: models.EntryCreate, Account: "a"}))
	require.NoError(t, s.AppendEntry(ctx, models.LedgerEntry{Time: base.Add(time.Second), Type: models.EntryDeposit, Account: "a", Info: "$5"}))
	require.NoError(t, s.AppendEntry(ctx, models.LedgerEntry{Time: base.Add(2 * time.Second), Type: models.EntryDeposit, Account: "b"}))

	got, err := s.EntriesByAccount(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.EntryCreate, got[0].Type)
	assert.Equal(t, "$5", got[1].Info)

	require.NoError(t, s.PurgeEntries(ctx))
	got, err = s.EntriesByAccount(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotTable(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, models.AccountRecord{ID: "a", Name: "Alice", Cash: 100, IsBanker: true}))
	require.NoError(t, s.UpsertAccount(ctx, models.AccountRecord{ID: "b", Name: "Bob"}))

	require.NoError(t, s.UpdateCash(ctx, "a", 250))
	require.NoError(t, s.UpdateProperties(ctx, "a", []string{"boardwalk"}))
	require.NoError(t, s.SetCredentials(ctx, "b", []byte("salt"), []byte("hash")))

	records, err := s.AllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(250), records[0].Cash)
	assert.Equal(t, []string{"boardwalk"}, records[0].Properties)
	assert.True(t, records[0].IsBanker)
	assert.Equal(t, []byte("salt"), records[1].Salt)
	assert.Equal(t, []byte("hash"), records[1].PasswordHash)

	// Upsert replaces an existing row wholesale.
	require.NoError(t, s.UpsertAccount(ctx, models.AccountRecord{ID: "a", Name: "Alice II", Cash: 1}))
	records, err = s.AllAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice II", records[0].Name)
	assert.Equal(t, int64(1), records[0].Cash)

	require.NoError(t, s.DeleteAccount(ctx, "a"))
	require.NoError(t, s.DeleteAccount(ctx, "a"), "deleting a missing row is not an error")
	records, err = s.AllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)

	require.NoError(t, s.PurgeAccounts(ctx))
	records, err = s.AllAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdatesRequireExistingRow(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.UpdateCash(ctx, "ghost", 1), interfaces.ErrNoRecord)
	assert.ErrorIs(t, s.UpdateProperties(ctx, "ghost", nil), interfaces.ErrNoRecord)
	assert.ErrorIs(t, s.SetCredentials(ctx, "ghost", nil, nil), interfaces.ErrNoRecord)
}
