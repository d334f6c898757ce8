package domain

import "time"

// Entry holds balance change data for an account.
type Entry struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	TransactionID int64     `json:"transaction_id"`
	Amount        string    `json:"amount"` // negative for the debit side
	CreatedAt     time.Time `json:"created_at"`
}
