// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/pet-transfer/internal/accountdelivery"
	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/telemetry"
	"github.com/go-petr/pet-transfer/pkg/moneypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds one transfer against the ledger store.
const DefaultTimeout = 5 * time.Second

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Transfer(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.TransactionDetails, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo           Repo
	accountService accountdelivery.Service
	timeout        time.Duration
}

// Option configures Service.
type Option func(*Service)

// WithTimeout sets how long a transfer may take before it is rolled back.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New return transfer service struct to manage transfer bussines logic.
func New(tr Repo, as accountdelivery.Service, opts ...Option) *Service {
	s := &Service{
		repo:           tr,
		accountService: as,
		timeout:        DefaultTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func validAmount(ctx context.Context, amount string) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	d, ok := moneypkg.ParseAmount(amount)
	if !ok {
		l.Info().Str("amount", amount).Msg("unparseable amount")
		return d, domain.ErrInvalidAmount
	}

	if !moneypkg.IsPositive(d) {
		return d, domain.ErrNegativeAmount
	}

	if !moneypkg.FitsScale(d) {
		return d, domain.ErrAmountPrecision
	}

	return d, nil
}

// validRequest checks everything that can be checked before the ledger store is locked.
//
// The amount goes first because it needs no lookup. The recipient name is
// checked again against the locked destination row.
func (s *Service) validRequest(ctx context.Context, principal string, arg domain.TransferParams) (domain.TransferTxParams, error) {
	l := zerolog.Ctx(ctx)

	var txArg domain.TransferTxParams

	amount, err := validAmount(ctx, arg.Amount)
	if err != nil {
		return txArg, err
	}

	fromAccount, err := s.accountService.ResolveSender(ctx, principal)
	if err != nil {
		l.Info().Err(err).Str("principal", principal).Send()
		return txArg, err
	}

	toAccount, err := s.accountService.ResolveByNumber(ctx, arg.ToAccountNumber)
	if err != nil {
		l.Info().Err(err).Str("to_account_number", arg.ToAccountNumber).Send()
		return txArg, err
	}

	if toAccount.OwnerName != arg.RecipientName {
		l.Info().Int64("to_account_id", toAccount.ID).Msg("recipient name mismatch")
		return txArg, domain.ErrRecipientMismatch
	}

	txArg = domain.TransferTxParams{
		FromAccountID:  fromAccount.ID,
		ToAccountID:    toAccount.ID,
		Amount:         amount.String(),
		RecipientName:  arg.RecipientName,
		IdempotencyKey: arg.IdempotencyKey,
	}

	return txArg, nil
}

// Transfer moves arg.Amount from the principal's account to the account
// arg.ToAccountNumber and returns the record of the committed transaction.
//
// Checks run in this order and the first failure wins: amount, sender,
// destination, recipient name, balance. The names in the record are the
// owner names read when the transfer was committed.
func (s *Service) Transfer(ctx context.Context, principal string, arg domain.TransferParams) (domain.TransactionRecord, error) {
	result, err := s.transfer(ctx, principal, arg)

	outcome := telemetry.Outcome(err)
	if err == nil && result.Replayed {
		outcome = telemetry.OutcomeReplayed
	}

	telemetry.TransfersTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		return domain.TransactionRecord{}, err
	}

	return result.Record(), nil
}

func (s *Service) transfer(ctx context.Context, principal string, arg domain.TransferParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	txArg, err := s.validRequest(ctx, principal, arg)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.repo.Transfer(tctx, txArg)
	telemetry.TransferProcessingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// Only our own deadline is a timeout. A cancelled caller context is returned as is.
		// The driver reports a deadline hit mid-statement as a cancelled query, so
		// the timeout context decides, not the error.
		timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
		if timedOut && ctx.Err() == nil {
			l.Warn().Err(err).Dur("timeout", s.timeout).Msg("transfer timed out")
			return result, domain.ErrTransferTimeout
		}

		return result, err
	}

	l.Info().
		Int64("transaction_id", result.Transaction.ID).
		Int64("from_account_id", txArg.FromAccountID).
		Int64("to_account_id", txArg.ToAccountID).
		Str("amount", txArg.Amount).
		Bool("replayed", result.Replayed).
		Msg("transfer committed")

	return result, nil
}

// History returns every transaction the account sent or received, oldest first.
//
// Counterparty names are the current ones, not the ones at transfer time.
func (s *Service) History(ctx context.Context, accountID int64) ([]domain.TransactionRecord, error) {
	account, err := s.accountService.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return s.history(ctx, account)
}

// HistoryFor is History restricted to accounts owned by the principal.
func (s *Service) HistoryFor(ctx context.Context, principal string, accountID int64) ([]domain.TransactionRecord, error) {
	account, err := s.accountService.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.Owner != principal {
		zerolog.Ctx(ctx).Warn().Int64("account_id", accountID).Str("principal", principal).
			Msg("history requested by non-owner")
		return nil, domain.ErrAccountOwnerMismatch
	}

	return s.history(ctx, account)
}

func (s *Service) history(ctx context.Context, account domain.Account) ([]domain.TransactionRecord, error) {
	items, err := s.repo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	records := make([]domain.TransactionRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.Record())
	}

	return records, nil
}
