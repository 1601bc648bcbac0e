package models

import "time"

// Ledger event types. Every row in the audit table carries exactly one of
// these in its Type column.
const (
	EntryCreate      = "Create"
	EntryDelete      = "Delete"
	EntryDeposit     = "Deposit"
	EntryWithdraw    = "Withdraw"
	EntryTransfer    = "Transfer"
	EntryServerStart = "Server Start"
	EntryReload      = "Reload"
	EntryNukeData    = "Nuke Data"
	EntryServerStop  = "Server Stop"
)

// LedgerEntry is one immutable audit row describing a single
// account-affecting event. Account is empty for server-wide events
// (start, stop, reload, nuke).
type LedgerEntry struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Account string    `json:"account,omitempty"`
	Info    string    `json:"info,omitempty"`
}
