// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Get(ctx context.Context, id int64) (domain.Account, error)
	GetByNumber(ctx context.Context, number string) (domain.Account, error)
	GetByOwner(ctx context.Context, owner string) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// ResolveSender returns the account owned by the acting principal.
func (s *Service) ResolveSender(ctx context.Context, principal string) (domain.Account, error) {
	if principal == "" {
		zerolog.Ctx(ctx).Info().Msg("empty principal")
		return domain.Account{}, domain.ErrSenderNotFound
	}

	return s.repo.GetByOwner(ctx, principal)
}

// ResolveByNumber returns the account with the given public account number.
func (s *Service) ResolveByNumber(ctx context.Context, number string) (domain.Account, error) {
	if number == "" {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.repo.GetByNumber(ctx, number)
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}
