// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"

	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const selectColumns = `
SELECT
	a.id, a.number, a.owner, u.full_name, a.balance, a.created_at
FROM accounts a
JOIN users u ON u.username = a.owner
`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Number,
		&a.Owner,
		&a.OwnerName,
		&a.Balance,
		&a.CreatedAt,
	)

	return a, err
}

// mapErr converts driver errors into domain errors. notFound is returned for sql.ErrNoRows.
func mapErr(err, notFound error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case dbpkg.IsRetryable(err):
		return err
	case dbpkg.IsUnavailable(err):
		return domain.ErrStoreUnavailable
	case dbpkg.IsConstraint(err, "accounts_balance_check"):
		return domain.ErrInsufficientFunds
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), dbpkg.IsQueryCanceled(err):
		return err
	}

	return errorspkg.ErrInternal
}

const createQuery = `
WITH a AS (
	INSERT INTO accounts (number, owner, balance)
	VALUES ($1, $2, $3)
	RETURNING id, number, owner, balance, created_at
)
SELECT a.id, a.number, a.owner, u.full_name, a.balance, a.created_at
FROM a
JOIN users u ON u.username = a.owner
`

// Create creates the account and then returns it.
//
// Accounts are provisioned outside the transfer service; Create is used to seed them.
func (r *RepoPGS) Create(ctx context.Context, number, owner, balance string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, createQuery, number, owner, balance))
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %v, %v, %v)", number, owner, balance)

		if pqErr, ok := dbpkg.PQError(err); ok {
			switch pqErr.Constraint {
			case "accounts_owner_fkey":
				return a, domain.ErrUserNotFound
			case "accounts_balance_check":
				return a, domain.ErrInvalidAmount
			}
		}

		return a, mapErr(err, errorspkg.ErrInternal)
	}

	return a, nil
}

const getQuery = selectColumns + `
WHERE a.id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		l.Info().Err(err).Int64("account_id", id).Send()
		return a, mapErr(err, domain.ErrAccountNotFound)
	}

	return a, nil
}

const getByNumberQuery = selectColumns + `
WHERE a.number = $1
`

// GetByNumber returns the account with the given public account number.
func (r *RepoPGS) GetByNumber(ctx context.Context, number string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getByNumberQuery, number))
	if err != nil {
		l.Info().Err(err).Str("account_number", number).Send()
		return a, mapErr(err, domain.ErrAccountNotFound)
	}

	return a, nil
}

const getByOwnerQuery = selectColumns + `
WHERE a.owner = $1
`

// GetByOwner returns the account owned by the given username.
func (r *RepoPGS) GetByOwner(ctx context.Context, owner string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getByOwnerQuery, owner))
	if err != nil {
		l.Info().Err(err).Str("owner", owner).Send()
		return a, mapErr(err, domain.ErrSenderNotFound)
	}

	return a, nil
}

const getForUpdateQuery = selectColumns + `
WHERE a.id = $1
FOR UPDATE OF a
`

// GetForUpdate returns the account with the given id and locks its row until
// the surrounding transaction ends. It must run inside a transaction.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getForUpdateQuery, id))
	if err != nil {
		l.Info().Err(err).Int64("account_id", id).Send()
		return a, mapErr(err, domain.ErrAccountNotFound)
	}

	return a, nil
}

const addBalanceQuery = `
WITH a AS (
	UPDATE accounts
	SET balance = balance + $1
	WHERE id = $2 AND balance + $1 >= 0
	RETURNING id, number, owner, balance, created_at
)
SELECT a.id, a.number, a.owner, u.full_name, a.balance, a.created_at
FROM a
JOIN users u ON u.username = a.owner
`

// AddBalance changes the account's balance by amount and returns the changed account.
//
// The write is conditional: it never takes the balance below zero and reports
// ErrInsufficientFunds instead. A missing account is reported the same way, so
// callers lock the row with GetForUpdate first.
func (r *RepoPGS) AddBalance(ctx context.Context, amount string, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, addBalanceQuery, amount, id))
	if err != nil {
		l.Info().Err(err).Int64("account_id", id).Str("amount", amount).Send()
		return a, mapErr(err, domain.ErrInsufficientFunds)
	}

	return a, nil
}
