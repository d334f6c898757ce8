package domain

import "time"

// Transaction is an immutable ledger record of a single transfer.
type Transaction struct {
	ID             int64     `json:"id"`
	FromAccountID  int64     `json:"from_account_id"`
	ToAccountID    int64     `json:"to_account_id"`
	Amount         string    `json:"amount"` // always positive
	RecipientName  string    `json:"recipient_name"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateTransactionParams is the input data to append a transaction record.
type CreateTransactionParams struct {
	FromAccountID  int64
	ToAccountID    int64
	Amount         string
	RecipientName  string
	IdempotencyKey string
}

// TransferParams is the transfer request of the acting principal.
type TransferParams struct {
	ToAccountNumber string
	Amount          string
	RecipientName   string
	IdempotencyKey  string
}

// TransferTxParams is the input data for the atomic transfer unit.
//
// Accounts are referenced by id only. The recipient name is re-checked against
// the destination owner read under lock.
type TransferTxParams struct {
	FromAccountID  int64
	ToAccountID    int64
	Amount         string
	RecipientName  string
	IdempotencyKey string
}

// TransferTxResult is the result of the atomic transfer unit.
type TransferTxResult struct {
	Transaction Transaction `json:"transaction"`
	FromAccount Account     `json:"from_account"`
	ToAccount   Account     `json:"to_account"`
	FromEntry   Entry       `json:"from_entry"`
	ToEntry     Entry       `json:"to_entry"`
	// Replayed is true when the idempotency key matched an already committed transfer.
	Replayed bool `json:"-"`
}

// TransactionRecord is the materialized view of a transaction returned to callers.
type TransactionRecord struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	FromAccountName   string `json:"from_account_name"`
	ToAccountName     string `json:"to_account_name"`
	Amount            string `json:"amount"`
	TransactionDate   string `json:"transaction_date"`
}

// TransactionDetails is a transaction joined with both counterparties.
type TransactionDetails struct {
	Transaction
	FromAccountNumber string
	FromAccountName   string
	ToAccountNumber   string
	ToAccountName     string
}

// FormatTransactionDate renders t as ISO-8601 in UTC.
func FormatTransactionDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Record materializes the transfer result with names as of the transfer.
func (r TransferTxResult) Record() TransactionRecord {
	return TransactionRecord{
		FromAccountNumber: r.FromAccount.Number,
		ToAccountNumber:   r.ToAccount.Number,
		FromAccountName:   r.FromAccount.OwnerName,
		ToAccountName:     r.ToAccount.OwnerName,
		Amount:            r.Transaction.Amount,
		TransactionDate:   FormatTransactionDate(r.Transaction.CreatedAt),
	}
}

// Record materializes the transaction with the counterparties it was joined with.
func (d TransactionDetails) Record() TransactionRecord {
	return TransactionRecord{
		FromAccountNumber: d.FromAccountNumber,
		ToAccountNumber:   d.ToAccountNumber,
		FromAccountName:   d.FromAccountName,
		ToAccountName:     d.ToAccountName,
		Amount:            d.Amount,
		TransactionDate:   FormatTransactionDate(d.CreatedAt),
	}
}
