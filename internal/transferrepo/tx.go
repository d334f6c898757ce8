package transferrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-transfer/internal/accountrepo"
	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/entryrepo"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// txRepos holds the repositories bound to one database transaction.
type txRepos struct {
	transfers *RepoPGS
	accounts  *accountrepo.RepoPGS
	entries   *entryrepo.RepoPGS
}

// execTx runs fn inside a read committed transaction and commits it if fn succeeds.
//
// Lock and serialization conflicts re-run fn from scratch, up to maxRetries
// times, before ErrConcurrencyConflict is returned. Nothing fn wrote is visible
// unless the commit succeeds.
func (r *RepoPGS) execTx(ctx context.Context, fn func(q *txRepos) error) error {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		l.Error().Msg("execTx called on a transaction bound repository")
		return errorspkg.ErrInternal
	}

	return retryConflicts(ctx, r.maxRetries, func() error {
		return r.runTx(ctx, fn)
	})
}

func (r *RepoPGS) runTx(ctx context.Context, fn func(q *txRepos) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		l.Error().Err(err).Msg("cannot begin transaction")
		return mapErr(err, errorspkg.ErrInternal)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Msg("rollback failed")
		}
	}()

	q := &txRepos{
		transfers: NewTxRepoPGS(tx),
		accounts:  accountrepo.NewRepoPGS(tx),
		entries:   entryrepo.NewRepoPGS(tx),
	}

	if err := fn(q); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("commit failed")
		return mapErr(err, errorspkg.ErrInternal)
	}

	return nil
}

// Transfer performs a money transfer between two accounts as one atomic unit.
//
// Both account rows are locked in ascending id order, so transfers moving money
// in opposite directions between the same pair cannot deadlock. The recipient
// name and the sender balance are checked against the locked rows. The
// transaction record, both entries and both balance updates commit together or
// not at all.
//
// A non-empty IdempotencyKey that the sender already used returns the committed
// transfer with Replayed set, without any mutation. If the committed transfer
// went elsewhere or moved a different amount, ErrIdempotencyKeyReused is returned.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error) {
	var result domain.TransferTxResult

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil || !amount.IsPositive() {
		return result, domain.ErrNegativeAmount
	}

	err = r.execTx(ctx, func(q *txRepos) error {
		result = domain.TransferTxResult{}

		fromAccount, toAccount, err := lockAccounts(ctx, q.accounts, arg.FromAccountID, arg.ToAccountID)
		if err != nil {
			return err
		}

		if arg.IdempotencyKey != "" {
			t, err := q.transfers.GetByIdempotencyKey(ctx, arg.FromAccountID, arg.IdempotencyKey)
			switch {
			case err == nil:
				if !sameTransfer(t, arg, amount) {
					zerolog.Ctx(ctx).Info().Int64("transaction_id", t.ID).Str("idempotency_key", t.IdempotencyKey).
						Msg("idempotency key reused with different transfer details")
					return domain.ErrIdempotencyKeyReused
				}

				return replay(ctx, q.accounts, t, &result)
			case !errors.Is(err, domain.ErrTransactionNotFound):
				return err
			}
		}

		if toAccount.OwnerName != arg.RecipientName {
			return domain.ErrRecipientMismatch
		}

		balance, err := decimal.NewFromString(fromAccount.Balance)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("balance", fromAccount.Balance).Send()
			return errorspkg.ErrInternal
		}

		if balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		result.Transaction, err = q.transfers.Create(ctx, domain.CreateTransactionParams{
			FromAccountID:  arg.FromAccountID,
			ToAccountID:    arg.ToAccountID,
			Amount:         amount.String(),
			RecipientName:  arg.RecipientName,
			IdempotencyKey: arg.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result.FromEntry, err = q.entries.Create(ctx, arg.FromAccountID, result.Transaction.ID, amount.Neg().String())
		if err != nil {
			return err
		}

		result.ToEntry, err = q.entries.Create(ctx, arg.ToAccountID, result.Transaction.ID, amount.String())
		if err != nil {
			return err
		}

		// To avoid deadlocks execute statements in consistent id order
		if arg.FromAccountID <= arg.ToAccountID {
			argAddBalance := addBalanceParams{
				account1ID: arg.FromAccountID,
				amount1:    amount.Neg().String(),
				account2ID: arg.ToAccountID,
				amount2:    amount.String(),
			}

			result.FromAccount, result.ToAccount, err = addBalances(ctx, q.accounts, argAddBalance)
		} else {
			argAddBalance := addBalanceParams{
				account1ID: arg.ToAccountID,
				amount1:    amount.String(),
				account2ID: arg.FromAccountID,
				amount2:    amount.Neg().String(),
			}

			result.ToAccount, result.FromAccount, err = addBalances(ctx, q.accounts, argAddBalance)
		}

		return err
	})

	if err != nil {
		return domain.TransferTxResult{}, err
	}

	return result, nil
}

// lockAccounts locks both rows in ascending id order and returns them as (from, to).
func lockAccounts(ctx context.Context, r *accountrepo.RepoPGS, fromID, toID int64) (domain.Account, domain.Account, error) {
	if fromID == toID {
		a, err := r.GetForUpdate(ctx, fromID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			err = domain.ErrSenderNotFound
		}

		return a, a, err
	}

	firstID, secondID := fromID, toID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := r.GetForUpdate(ctx, firstID)
	if err != nil {
		return domain.Account{}, domain.Account{}, lockErr(err, firstID == fromID)
	}

	second, err := r.GetForUpdate(ctx, secondID)
	if err != nil {
		return domain.Account{}, domain.Account{}, lockErr(err, secondID == fromID)
	}

	if firstID == fromID {
		return first, second, nil
	}

	return second, first, nil
}

func lockErr(err error, isSender bool) error {
	if isSender && errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrSenderNotFound
	}

	return err
}

// sameTransfer reports whether the committed transaction t was made for the same request as arg.
func sameTransfer(t domain.Transaction, arg domain.TransferTxParams, amount decimal.Decimal) bool {
	committed, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return false
	}

	return t.ToAccountID == arg.ToAccountID &&
		t.RecipientName == arg.RecipientName &&
		committed.Equal(amount)
}

func replay(ctx context.Context, r *accountrepo.RepoPGS, t domain.Transaction, result *domain.TransferTxResult) error {
	zerolog.Ctx(ctx).Info().Int64("transaction_id", t.ID).Str("idempotency_key", t.IdempotencyKey).
		Msg("replaying committed transfer")

	fromAccount, err := r.Get(ctx, t.FromAccountID)
	if err != nil {
		return err
	}

	toAccount, err := r.Get(ctx, t.ToAccountID)
	if err != nil {
		return err
	}

	*result = domain.TransferTxResult{
		Transaction: t,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Replayed:    true,
	}

	return nil
}

type addBalanceParams struct {
	account1ID int64
	amount1    string
	account2ID int64
	amount2    string
}

func addBalances(ctx context.Context, r *accountrepo.RepoPGS, arg addBalanceParams) (domain.Account, domain.Account, error) {
	account1, err := r.AddBalance(ctx, arg.amount1, arg.account1ID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	account2, err := r.AddBalance(ctx, arg.amount2, arg.account2ID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	return account1, account2, nil
}
