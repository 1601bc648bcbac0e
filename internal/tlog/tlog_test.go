package tlog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
	"github.com/cardbank/ledger/internal/storage/memory"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestReadObservesEarlierWrites(t *testing.T) {
	tl := New(memory.NewStore(), quietLogger())
	defer tl.Close()

	for i := 0; i < 50; i++ {
		tl.LogDeposit("acc-1", int64(i+1))
	}

	// The read goes through the same queue, so it must see all 50 writes.
	entries, err := tl.EntriesByAccount("acc-1")
	require.NoError(t, err)
	assert.Len(t, entries, 50)
	for _, e := range entries {
		assert.Equal(t, models.EntryDeposit, e.Type)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tl := New(memory.NewStore(), quietLogger())
	defer tl.Close()

	tl.CreateAccount(models.AccountRecord{ID: "a", Name: "Alice", Cash: 1000, IsBanker: true})
	tl.CreateAccount(models.AccountRecord{ID: "b", Name: "Bob"})
	tl.UpdateCash("b", 250)
	tl.UpdateProperties("a", []string{"boardwalk"})
	tl.DeleteAccount("b")
	tl.CreateAccount(models.AccountRecord{ID: "c", Name: "Cleo", Cash: 5})

	records, err := tl.AllAccounts()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, int64(1000), records[0].Cash)
	assert.Equal(t, []string{"boardwalk"}, records[0].Properties)
	assert.True(t, records[0].IsBanker)
	assert.Equal(t, "c", records[1].ID)
}

func TestTransferWritesOneRowPerParticipant(t *testing.T) {
	tl := New(memory.NewStore(), quietLogger())
	defer tl.Close()

	tl.LogTransfer("payer", "payee", "payer paid payee $5")

	payerRows, err := tl.EntriesByAccount("payer")
	require.NoError(t, err)
	payeeRows, err := tl.EntriesByAccount("payee")
	require.NoError(t, err)
	require.Len(t, payerRows, 1)
	require.Len(t, payeeRows, 1)
	assert.Equal(t, payerRows[0].Info, payeeRows[0].Info)
	assert.Equal(t, models.EntryTransfer, payerRows[0].Type)
}

func TestCloseDrainsQueueAndAppendsServerStop(t *testing.T) {
	store := memory.NewStore()
	tl := New(store, quietLogger())

	tl.LogServerStarted()
	for i := 0; i < 20; i++ {
		tl.LogDeposit("acc-1", 1)
	}
	tl.Close()

	entries := store.Entries()
	require.Len(t, entries, 22, "everything queued before Close must be applied")
	assert.Equal(t, models.EntryServerStart, entries[0].Type)
	assert.Equal(t, models.EntryServerStop, entries[len(entries)-1].Type)

	// Close is idempotent and reads now fail fast.
	tl.Close()
	_, err := tl.EntriesByAccount("acc-1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNukeClearsBothTables(t *testing.T) {
	store := memory.NewStore()
	tl := New(store, quietLogger())
	defer tl.Close()

	tl.CreateAccount(models.AccountRecord{ID: "a", Name: "Alice", Cash: 10})
	tl.LogAccountCreated("a", 10)
	tl.Nuke()

	records, err := tl.AllAccounts()
	require.NoError(t, err)
	assert.Empty(t, records)
	entries, err := tl.EntriesByAccount("a")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// failingStore injects one error to exercise the worker's failure path.
type failingStore struct {
	*memory.Store
	failNext error
}

func (f *failingStore) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	return f.Store.AppendEntry(ctx, entry)
}

var _ interfaces.Store = (*failingStore)(nil)

func TestWriteFailureSurfacesInStatus(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), failNext: errors.New("disk on fire")}
	tl := New(store, quietLogger())
	defer tl.Close()

	tl.LogDeposit("acc-1", 1)
	tl.LogDeposit("acc-1", 2)

	// Sync with the worker so both writes have been attempted.
	entries, err := tl.EntriesByAccount("acc-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the failed write is lost, not retried")

	st := tl.Status()
	assert.Equal(t, uint64(1), st.WriteFailures)
	assert.Equal(t, "disk on fire", st.LastError)
}
