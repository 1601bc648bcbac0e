// Package tlog is the durability engine for the ledger: an append-only audit
// trail plus an account snapshot table, with every store operation
// serialized through a single background worker.
//
// Commands are placed on one bounded channel and consumed by exactly one
// goroutine, which owns the only handle to the store. Writes are
// fire-and-forget; reads carry a reply channel and block the caller until
// the worker answers. Because the worker drains the channel strictly in
// order, a read observes every write submitted before it.
package tlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
)

// queueDepth bounds the command channel. Mutators block on submission once
// the backlog reaches this size.
const queueDepth = 200

// ErrClosed is returned for reads submitted after Close.
var ErrClosed = errors.New("transaction log is closed")

type result struct {
	val any
	err error
}

// command is one unit of work for the worker: a write flag, the store
// operation with its parameters already bound, and a reply channel that is
// nil for writes.
type command struct {
	write bool
	apply func(ctx context.Context, s interfaces.Store) (any, error)
	reply chan result
}

// Status is a point-in-time health report for the log worker.
type Status struct {
	Queued        int    `json:"queued"`
	WriteFailures uint64 `json:"write_failures"`
	LastError     string `json:"last_error,omitempty"`
}

// TransactionLog serializes all durable operations through one worker.
type TransactionLog struct {
	store interfaces.Store
	cmds  chan command
	done  chan struct{}
	log   logrus.FieldLogger

	mu     sync.RWMutex
	closed bool

	statusMu      sync.Mutex
	writeFailures uint64
	lastErr       error
}

// New starts the worker goroutine and returns the log. The caller hands over
// ownership of store; it is closed when the log shuts down.
func New(store interfaces.Store, log logrus.FieldLogger) *TransactionLog {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &TransactionLog{
		store: store,
		cmds:  make(chan command, queueDepth),
		done:  make(chan struct{}),
		log:   log.WithField("component", "tlog"),
	}
	go t.run()
	return t
}

func (t *TransactionLog) run() {
	defer close(t.done)
	ctx := context.Background()
	for cmd := range t.cmds {
		val, err := cmd.apply(ctx, t.store)
		if cmd.write {
			if err != nil {
				t.recordFailure(err)
			}
			continue
		}
		cmd.reply <- result{val: val, err: err}
	}
	if err := t.store.Close(); err != nil {
		t.log.WithError(err).Error("closing store")
	}
}

func (t *TransactionLog) recordFailure(err error) {
	t.log.WithError(err).Error("durable write failed")
	t.statusMu.Lock()
	t.writeFailures++
	t.lastErr = err
	t.statusMu.Unlock()
}

// submitWrite enqueues a fire-and-forget command. Writes submitted after
// Close are dropped with a log line; there is nobody left to apply them.
func (t *TransactionLog) submitWrite(apply func(ctx context.Context, s interfaces.Store) (any, error)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.log.Warn("write submitted after shutdown, dropping")
		return
	}
	t.cmds <- command{write: true, apply: apply}
}

// submitRead enqueues a command and blocks until the worker replies.
func (t *TransactionLog) submitRead(apply func(ctx context.Context, s interfaces.Store) (any, error)) (any, error) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return nil, ErrClosed
	}
	reply := make(chan result, 1)
	t.cmds <- command{apply: apply, reply: reply}
	t.mu.RUnlock()
	res := <-reply
	return res.val, res.err
}

func (t *TransactionLog) appendEntry(entryType, account, info string) {
	entry := models.LedgerEntry{
		Time:    time.Now().UTC(),
		Type:    entryType,
		Account: account,
		Info:    info,
	}
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.AppendEntry(ctx, entry)
	})
}

// --- Audit events -----------------------------------------------------------

func (t *TransactionLog) LogAccountCreated(id string, cash int64) {
	t.appendEntry(models.EntryCreate, id, fmt.Sprintf("Started with $%d", cash))
}

func (t *TransactionLog) LogAccountDeleted(id string) {
	t.appendEntry(models.EntryDelete, id, "")
}

func (t *TransactionLog) LogDeposit(id string, amount int64) {
	t.appendEntry(models.EntryDeposit, id, fmt.Sprintf("$%d", amount))
}

func (t *TransactionLog) LogWithdraw(id string, amount int64) {
	t.appendEntry(models.EntryWithdraw, id, fmt.Sprintf("$%d", amount))
}

// LogTransfer appends one Transfer row per participant, both carrying the
// same info string.
func (t *TransactionLog) LogTransfer(payerID, payeeID, info string) {
	t.appendEntry(models.EntryTransfer, payerID, info)
	t.appendEntry(models.EntryTransfer, payeeID, info)
}

func (t *TransactionLog) LogServerStarted() {
	t.appendEntry(models.EntryServerStart, "", "Server has started")
}

func (t *TransactionLog) LogReloaded() {
	t.appendEntry(models.EntryReload, "", "Reloaded all accounts")
}

// --- Snapshot table ---------------------------------------------------------

func (t *TransactionLog) CreateAccount(rec models.AccountRecord) {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.UpsertAccount(ctx, rec)
	})
}

func (t *TransactionLog) UpdateCash(id string, cash int64) {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.UpdateCash(ctx, id, cash)
	})
}

func (t *TransactionLog) UpdateProperties(id string, properties []string) {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.UpdateProperties(ctx, id, properties)
	})
}

func (t *TransactionLog) SetCredentials(id string, salt, hash []byte) {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.SetCredentials(ctx, id, salt, hash)
	})
}

func (t *TransactionLog) DeleteAccount(id string) {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.DeleteAccount(ctx, id)
	})
}

// --- Blocking reads ---------------------------------------------------------

// EntriesByAccount returns the audit rows for one account ordered by
// timestamp ascending. It observes every write submitted before the call.
func (t *TransactionLog) EntriesByAccount(id string) ([]models.LedgerEntry, error) {
	val, err := t.submitRead(func(ctx context.Context, s interfaces.Store) (any, error) {
		return s.EntriesByAccount(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return val.([]models.LedgerEntry), nil
}

// AllAccounts returns the full snapshot table.
func (t *TransactionLog) AllAccounts() ([]models.AccountRecord, error) {
	val, err := t.submitRead(func(ctx context.Context, s interfaces.Store) (any, error) {
		return s.AllAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]models.AccountRecord), nil
}

// --- Lifecycle --------------------------------------------------------------

// Nuke irreversibly clears both tables. The Nuke Data marker is appended
// after the accounts purge and is itself removed by the final audit purge,
// leaving a completely empty store.
func (t *TransactionLog) Nuke() {
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.PurgeAccounts(ctx)
	})
	t.appendEntry(models.EntryNukeData, "", "Accounts and TLog were purged")
	t.submitWrite(func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.PurgeEntries(ctx)
	})
}

// Status reports queue depth and accumulated write failures.
func (t *TransactionLog) Status() Status {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	st := Status{
		Queued:        len(t.cmds),
		WriteFailures: t.writeFailures,
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}

// Close appends the Server Stop marker, stops accepting commands, waits for
// the worker to drain everything already queued, and closes the store. Safe
// to call more than once.
func (t *TransactionLog) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return
	}
	entry := models.LedgerEntry{
		Time: time.Now().UTC(),
		Type: models.EntryServerStop,
		Info: "Server has stopped",
	}
	t.cmds <- command{write: true, apply: func(ctx context.Context, s interfaces.Store) (any, error) {
		return nil, s.AppendEntry(ctx, entry)
	}}
	t.closed = true
	close(t.cmds)
	t.mu.Unlock()
	<-t.done
}
