// Package bank holds the in-memory account registry and its concurrency
// discipline: one mutex per account for single-account mutations, one
// registry-wide mutex for structural changes and transfers. No lock is ever
// held across a durability call.
package bank

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cardbank/ledger/internal/creds"
	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
	"github.com/cardbank/ledger/internal/models/events"
	"github.com/cardbank/ledger/internal/notify"
	"github.com/cardbank/ledger/internal/tlog"
)

// Manager is the directory of live accounts. It owns the registry lock,
// orchestrates create/delete/transfer, and drives the transaction log and
// the change broadcaster.
type Manager struct {
	mu       sync.RWMutex
	accounts map[string]*Account

	log     *tlog.TransactionLog
	changes *notify.Broadcaster
	logger  logrus.FieldLogger

	pubMu  sync.RWMutex
	events interfaces.EventPublisher
}

func NewManager(log *tlog.TransactionLog, changes *notify.Broadcaster, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		accounts: make(map[string]*Account),
		log:      log,
		changes:  changes,
		logger:   logger.WithField("component", "bank"),
	}
}

// SetEventPublisher attaches an external broker for account events. Passing
// nil disables publishing.
func (m *Manager) SetEventPublisher(p interfaces.EventPublisher) {
	m.pubMu.Lock()
	m.events = p
	m.pubMu.Unlock()
}

// Create registers a new account. The first account ever created becomes
// the banker; the designation is decided under the registry lock and never
// reassigned. A non-empty password gives the account a login identity.
// Returns ErrDuplicateID without mutating anything if the id is taken.
func (m *Manager) Create(id, name, password string, startingCash int64) (*Account, error) {
	acc := &Account{
		ID:      id,
		Name:    name,
		cash:    startingCash,
		log:     m.log,
		changes: m.changes,
	}
	if password != "" {
		salt, err := creds.NewSalt()
		if err != nil {
			return nil, err
		}
		acc.Username = id
		acc.salt = salt
		acc.hash = creds.Derive(password, salt)
	}

	m.mu.Lock()
	if _, exists := m.accounts[id]; exists {
		m.mu.Unlock()
		return nil, ErrDuplicateID
	}
	acc.isBanker = len(m.accounts) == 0
	m.accounts[id] = acc
	m.mu.Unlock()

	m.log.CreateAccount(acc.Snapshot())
	m.log.LogAccountCreated(id, startingCash)
	m.changes.Notify()
	m.publish(events.AccountEvent{
		Type:       models.EntryCreate,
		AccountID:  id,
		Amount:     decimal.NewFromInt(startingCash),
		OccurredAt: time.Now().UTC(),
	})
	m.logger.WithFields(logrus.Fields{"id": id, "banker": acc.isBanker}).Info("account created")
	return acc, nil
}

// Delete removes an account from the registry and the snapshot table.
// Returns ErrNotFound for an unknown id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	if _, exists := m.accounts[id]; !exists {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.accounts, id)
	m.mu.Unlock()

	m.log.DeleteAccount(id)
	m.log.LogAccountDeleted(id)
	m.changes.Notify()
	m.publish(events.AccountEvent{
		Type:       models.EntryDelete,
		AccountID:  id,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Exists reports whether an account id is registered.
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[id]
	return ok
}

// Query looks up an account by id.
func (m *Manager) Query(id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acc, nil
}

// Search returns accounts whose id or name contains term,
// case-insensitively. An empty term or the literal "all" matches
// everything.
func (m *Manager) Search(term string) map[string]*Account {
	term = strings.ToLower(term)
	all := term == "" || term == "all"

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Account)
	for id, acc := range m.accounts {
		if all ||
			strings.Contains(strings.ToLower(id), term) ||
			strings.Contains(strings.ToLower(acc.Name), term) {
			out[id] = acc
		}
	}
	return out
}

// NumAccounts returns the registry size.
func (m *Manager) NumAccounts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// Transfer moves amount from payer to payee, all or nothing. The whole
// read-check-mutate sequence runs under the registry write lock, which
// serializes it against other transfers and concurrent create/delete. The
// payer debit is conditional, so even a withdraw racing in from outside the
// registry lock cannot push the balance below the amount mid-transfer.
// Durability (both balance upserts plus one Transfer audit row per
// participant, sharing an info string) is submitted after the lock is
// released.
func (m *Manager) Transfer(payerID, payeeID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	payer, payerOK := m.accounts[payerID]
	payee, payeeOK := m.accounts[payeeID]
	if !payerOK || !payeeOK {
		m.mu.Unlock()
		return ErrNotFound
	}
	payerBalance, ok := payer.tryDebit(amount)
	if !ok {
		m.mu.Unlock()
		return ErrInsufficientFunds
	}
	payeeBalance := payee.credit(amount)
	m.mu.Unlock()

	ref := uuid.NewString()
	info := fmt.Sprintf("%s paid %s $%d [%s]", payer.Name, payee.Name, amount, ref)
	m.log.UpdateCash(payerID, payerBalance)
	m.log.UpdateCash(payeeID, payeeBalance)
	m.log.LogTransfer(payerID, payeeID, info)
	m.changes.Notify()
	m.publish(events.AccountEvent{
		Type:           models.EntryTransfer,
		AccountID:      payerID,
		CounterpartyID: payeeID,
		Amount:         decimal.NewFromInt(amount),
		Reference:      ref,
		OccurredAt:     time.Now().UTC(),
	})
	return nil
}

// LoadSaved rebuilds the registry wholesale from the durable snapshot
// table. Used at startup; any in-memory state is discarded.
func (m *Manager) LoadSaved() error {
	records, err := m.log.AllAccounts()
	if err != nil {
		return fmt.Errorf("load saved accounts: %w", err)
	}

	accounts := make(map[string]*Account, len(records))
	for _, rec := range records {
		accounts[rec.ID] = &Account{
			ID:         rec.ID,
			Name:       rec.Name,
			Username:   rec.Username,
			cash:       rec.Cash,
			properties: rec.Properties,
			salt:       rec.Salt,
			hash:       rec.PasswordHash,
			isBanker:   rec.IsBanker,
			log:        m.log,
			changes:    m.changes,
		}
	}

	m.mu.Lock()
	m.accounts = accounts
	m.mu.Unlock()

	m.log.LogReloaded()
	m.changes.Notify()
	m.logger.WithField("accounts", len(accounts)).Info("registry reloaded")
	return nil
}

// NukeAll irreversibly clears the registry and both durable tables.
func (m *Manager) NukeAll() {
	m.mu.Lock()
	m.accounts = make(map[string]*Account)
	m.mu.Unlock()

	m.log.Nuke()
	m.changes.Notify()
	m.publish(events.AccountEvent{
		Type:       models.EntryNukeData,
		OccurredAt: time.Now().UTC(),
	})
	m.logger.Warn("all account data nuked")
}

// publish sends an event to the external broker, if one is attached. It
// runs off the mutation path so a slow broker never blocks callers.
func (m *Manager) publish(evt events.AccountEvent) {
	m.pubMu.RLock()
	pub := m.events
	m.pubMu.RUnlock()
	if pub == nil {
		return
	}
	go func() {
		if err := pub.Publish(events.Topic, evt); err != nil {
			m.logger.WithError(err).WithField("type", evt.Type).Error("publish account event")
		}
	}()
}
