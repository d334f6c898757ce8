// Package entryrepo manages repository layer of entries.
package entryrepo

import (
	"context"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const createQuery = `
INSERT INTO
    entries (account_id, transaction_id, amount)
VALUES
    ($1, $2, $3)
RETURNING id, account_id, transaction_id, amount, created_at
`

// Create appends the entry and then returns it.
func (r *RepoPGS) Create(ctx context.Context, accountID, transactionID int64, amount string) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, accountID, transactionID, amount)

	var e domain.Entry

	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.TransactionID,
		&e.Amount,
		&e.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		switch {
		case dbpkg.IsConstraint(err, "entries_account_id_fkey"):
			return e, domain.ErrAccountNotFound
		case dbpkg.IsConstraint(err, "entries_transaction_id_fkey"):
			return e, domain.ErrTransactionNotFound
		case dbpkg.IsRetryable(err):
			return e, err
		case dbpkg.IsUnavailable(err):
			return e, domain.ErrStoreUnavailable
		case dbpkg.IsQueryCanceled(err):
			return e, err
		}

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const listByTransactionQuery = `
SELECT id, account_id, transaction_id, amount, created_at FROM entries
WHERE transaction_id = $1
ORDER BY id
`

// ListByTransaction returns the entries appended by the given transaction.
func (r *RepoPGS) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByTransactionQuery, transactionID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Entry{}

	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.TransactionID,
			&e.Amount,
			&e.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const sumByAccountQuery = `
SELECT COALESCE(SUM(amount), 0) FROM entries
WHERE account_id = $1
`

// SumByAccount returns the net amount of all entries of the account.
func (r *RepoPGS) SumByAccount(ctx context.Context, accountID int64) (string, error) {
	l := zerolog.Ctx(ctx)

	var sum string
	if err := r.db.QueryRowContext(ctx, sumByAccountQuery, accountID).Scan(&sum); err != nil {
		l.Error().Err(err).Send()
		return "", errorspkg.ErrInternal
	}

	return sum, nil
}
