package bank

import (
	"sync"

	"github.com/cardbank/ledger/internal/creds"
	"github.com/cardbank/ledger/internal/models"
	"github.com/cardbank/ledger/internal/notify"
	"github.com/cardbank/ledger/internal/tlog"
)

// Account is a single bank account. The balance and credential fields are
// guarded by the account's own mutex; identity fields are immutable after
// creation. Accounts are created through Manager.Create, never directly.
type Account struct {
	ID       string
	Name     string
	Username string

	mu         sync.Mutex
	cash       int64
	properties []string
	salt       []byte
	hash       []byte
	isBanker   bool

	log     *tlog.TransactionLog
	changes *notify.Broadcaster
}

// Cash returns the current balance.
func (a *Account) Cash() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// IsBanker reports whether this is the bootstrap account.
func (a *Account) IsBanker() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isBanker
}

// Properties returns a copy of the owned asset identifiers. The ledger
// treats them as opaque.
func (a *Account) Properties() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.properties))
	copy(out, a.properties)
	return out
}

// Withdraw removes up to amount from the balance and returns how much
// actually came out. Requests beyond the balance are clamped, never
// rejected; non-positive requests withdraw nothing. The durable update and
// change signal happen after the account lock is released.
func (a *Account) Withdraw(amount int64) int64 {
	actual, remaining := a.debit(amount)
	a.log.UpdateCash(a.ID, remaining)
	a.log.LogWithdraw(a.ID, actual)
	a.changes.Notify()
	return actual
}

// Deposit adds amount to the balance and returns the amount deposited.
// Non-positive amounts are a no-op returning zero.
func (a *Account) Deposit(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	balance := a.credit(amount)
	a.log.UpdateCash(a.ID, balance)
	a.log.LogDeposit(a.ID, amount)
	a.changes.Notify()
	return amount
}

// debit clamps the withdrawal to the available balance.
func (a *Account) debit(amount int64) (actual, remaining int64) {
	if amount <= 0 {
		return 0, a.Cash()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	actual = amount
	if actual > a.cash {
		actual = a.cash
	}
	a.cash -= actual
	return actual, a.cash
}

// tryDebit removes exactly amount, or nothing if the balance cannot cover
// it. Used by transfers, which are all-or-nothing.
func (a *Account) tryDebit(amount int64) (remaining int64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cash < amount {
		return a.cash, false
	}
	a.cash -= amount
	return a.cash, true
}

func (a *Account) credit(amount int64) (balance int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash += amount
	return a.cash
}

// Authenticated reports whether password matches the account's stored
// credentials. Accounts without a login identity never authenticate.
func (a *Account) Authenticated(password string) bool {
	a.mu.Lock()
	salt, hash := a.salt, a.hash
	a.mu.Unlock()
	return creds.Verify(password, salt, hash)
}

// SetPassword rehashes the account credentials with a fresh salt and
// persists them.
func (a *Account) SetPassword(password string) error {
	salt, err := creds.NewSalt()
	if err != nil {
		return err
	}
	hash := creds.Derive(password, salt)
	a.mu.Lock()
	a.salt, a.hash = salt, hash
	a.mu.Unlock()
	a.log.SetCredentials(a.ID, salt, hash)
	a.changes.Notify()
	return nil
}

// SetProperties replaces the owned asset set and persists it.
func (a *Account) SetProperties(properties []string) {
	props := make([]string, len(properties))
	copy(props, properties)
	a.mu.Lock()
	a.properties = props
	a.mu.Unlock()
	a.log.UpdateProperties(a.ID, props)
	a.changes.Notify()
}

// TransactionHistory returns the account's audit rows ordered by timestamp
// ascending. This is a blocking read through the transaction log, so it
// reflects every mutation submitted before the call.
func (a *Account) TransactionHistory() ([]models.LedgerEntry, error) {
	return a.log.EntriesByAccount(a.ID)
}

// Snapshot captures the account as a durable record.
func (a *Account) Snapshot() models.AccountRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	props := make([]string, len(a.properties))
	copy(props, a.properties)
	return models.AccountRecord{
		ID:           a.ID,
		Name:         a.Name,
		Username:     a.Username,
		Salt:         a.salt,
		PasswordHash: a.hash,
		Cash:         a.cash,
		Properties:   props,
		IsBanker:     a.isBanker,
	}
}
