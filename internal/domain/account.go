// Package domain provides defenitions of all entities.
package domain

import "time"

// Account holds the balance of a customer.
//
// OwnerName is joined from the customer directory at read time.
type Account struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	Owner     string    `json:"owner"`
	OwnerName string    `json:"owner_name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicAccount is the part of an account visible to other customers.
type PublicAccount struct {
	Number    string `json:"number"`
	OwnerName string `json:"owner_name"`
}

// Public strips balance and ownership data from the account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		Number:    a.Number,
		OwnerName: a.OwnerName,
	}
}
