package bank

import "errors"

var (
	// ErrDuplicateID indicates a create with an id that is already registered.
	ErrDuplicateID = errors.New("account id already exists")
	// ErrNotFound indicates a query, delete or transfer referencing an
	// unknown account id.
	ErrNotFound = errors.New("account not found")
	// ErrInsufficientFunds indicates a transfer the payer cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates a transfer of a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)
