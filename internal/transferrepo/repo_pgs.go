// Package transferrepo manages the ledger store: balances and the append-only transaction log.
package transferrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// DefaultMaxRetries is the number of times a conflicting transfer is re-run before ErrConcurrencyConflict.
const DefaultMaxRetries = 3

// errDuplicateKey reports that a concurrent transfer committed the same idempotency key first.
// The transfer is re-run so that it replays the committed one.
var errDuplicateKey = errors.New("duplicate idempotency key")

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	db         dbpkg.SQLInterface
	conn       *sql.DB
	maxRetries int
}

// Option configures RepoPGS.
type Option func(*RepoPGS)

// WithMaxRetries sets how many times a transfer is re-run after a lock or serialization conflict.
func WithMaxRetries(n int) Option {
	return func(r *RepoPGS) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// NewTxRepoPGS returns transfer RepoPGS bound to an existing transaction or connection.
//
// Transfer is unavailable on it.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db:         db,
		maxRetries: DefaultMaxRetries,
	}
}

// NewRepoPGS returns transfer RepoPGS wiht connection to start transactions.
func NewRepoPGS(db *sql.DB, opts ...Option) *RepoPGS {
	r := &RepoPGS{
		db:         db,
		conn:       db,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func mapErr(err, notFound error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case dbpkg.IsRetryable(err):
		return err
	case dbpkg.IsUnavailable(err):
		return domain.ErrStoreUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), dbpkg.IsQueryCanceled(err):
		return err
	}

	return errorspkg.ErrInternal
}

const transactionColumns = `id, from_account_id, to_account_id, amount, recipient_name, COALESCE(idempotency_key, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.Amount,
		&t.RecipientName,
		&t.IdempotencyKey,
		&t.CreatedAt,
	)

	return t, err
}

const createQuery = `
INSERT INTO
    transactions (from_account_id, to_account_id, amount, recipient_name, idempotency_key)
VALUES
    ($1, $2, $3, $4, NULLIF($5, ''))
RETURNING ` + transactionColumns

// Create appends the transaction record and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.Amount,
		arg.RecipientName,
		arg.IdempotencyKey,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := dbpkg.PQError(err); ok {
			switch pqErr.Constraint {
			case "transactions_from_account_id_fkey":
				return t, domain.ErrSenderNotFound
			case "transactions_to_account_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transactions_amount_check":
				return t, domain.ErrNegativeAmount
			case "transactions_idempotency_key":
				return t, errDuplicateKey
			}
		}

		return t, mapErr(err, errorspkg.ErrInternal)
	}

	return t, nil
}

const getQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		l.Info().Err(err).Int64("transaction_id", id).Send()
		return t, mapErr(err, domain.ErrTransactionNotFound)
	}

	return t, nil
}

const getByIdempotencyKeyQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE from_account_id = $1 AND idempotency_key = $2
`

// GetByIdempotencyKey returns the transaction the account sent with the given key.
func (r *RepoPGS) GetByIdempotencyKey(ctx context.Context, fromAccountID int64, key string) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getByIdempotencyKeyQuery, fromAccountID, key))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			l.Error().Err(err).Send()
		}

		return t, mapErr(err, domain.ErrTransactionNotFound)
	}

	return t, nil
}

const listByAccountQuery = `
SELECT
	t.id, t.from_account_id, t.to_account_id, t.amount, t.recipient_name,
	COALESCE(t.idempotency_key, ''), t.created_at,
	fa.number, fu.full_name, ta.number, tu.full_name
FROM transactions t
JOIN accounts fa ON fa.id = t.from_account_id
JOIN users fu ON fu.username = fa.owner
JOIN accounts ta ON ta.id = t.to_account_id
JOIN users tu ON tu.username = ta.owner
WHERE t.from_account_id = $1 OR t.to_account_id = $1
ORDER BY t.created_at, t.id
`

// ListByAccount returns every transaction the account sent or received, oldest first,
// joined with the counterparties as they are now.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int64) ([]domain.TransactionDetails, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByAccountQuery, accountID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, mapErr(err, errorspkg.ErrInternal)
	}
	defer rows.Close()

	items := []domain.TransactionDetails{}

	for rows.Next() {
		var d domain.TransactionDetails
		if err := rows.Scan(
			&d.ID,
			&d.FromAccountID,
			&d.ToAccountID,
			&d.Amount,
			&d.RecipientName,
			&d.IdempotencyKey,
			&d.CreatedAt,
			&d.FromAccountNumber,
			&d.FromAccountName,
			&d.ToAccountNumber,
			&d.ToAccountName,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, d)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, mapErr(err, errorspkg.ErrInternal)
	}

	return items, nil
}
