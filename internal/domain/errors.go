package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the resolver, the transfer engine and the
// history reader matches exactly one of them with errors.Is.
var (
	// ErrNotFound indicates that a sender, destination or queried account is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount indicates a non-positive or malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrRecipientMismatch indicates that the asserted recipient name differs from the destination owner name.
	ErrRecipientMismatch = errors.New("recipient name does not match the account")
	// ErrInsufficientFunds indicates that the source balance is lower than the amount at execution time.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConcurrencyConflict indicates lock or serialization contention that outlived the retry budget.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrStoreUnavailable indicates that the ledger store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	// ErrSenderNotFound indicates that no account is linked to the acting principal.
	ErrSenderNotFound = fmt.Errorf("sender account %w", ErrNotFound)
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	// ErrUserNotFound indicates that the user is not found.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrNegativeAmount indicates zero or negative amount.
	ErrNegativeAmount = fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	// ErrAmountPrecision indicates an amount with more fractional digits than the ledger stores.
	ErrAmountPrecision = fmt.Errorf("%w: too many decimal places", ErrInvalidAmount)
)

// ErrAccountOwnerMismatch indicates that the account does not belong to the principal.
var ErrAccountOwnerMismatch = errors.New("unauthorized owner")

// ErrIdempotencyKeyReused indicates that the sender already used the idempotency
// key for a transfer with a different destination, amount or recipient name.
var ErrIdempotencyKeyReused = errors.New("idempotency key already used for a different transfer")

// ErrTransferTimeout indicates that the ledger store did not finish the transfer in time.
// Nothing was applied.
var ErrTransferTimeout = fmt.Errorf("transfer timed out: %w", ErrStoreUnavailable)
