// Package userrepo manages read access to the customer directory.
package userrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO users (
    username,
    hashed_password,
    full_name,
    email
) VALUES (
    $1, $2, $3, $4
) RETURNING username, hashed_password, full_name, email, password_changed_at, created_at
`

// Create creates the user and then returns it.
//
// Customers are provisioned by the directory owner; Create is used to seed them.
func (r *RepoPGS) Create(ctx context.Context, arg domain.User) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Username,
		arg.HashedPassword,
		arg.FullName,
		arg.Email,
	)

	var u domain.User

	err := row.Scan(
		&u.Username,
		&u.HashedPassword,
		&u.FullName,
		&u.Email,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const getQuery = `
SELECT 
	username, 
	hashed_password, 
	full_name, 
	email, 
	password_changed_at, 
	created_at 
FROM users
WHERE username = $1
`

// Get returns the user with the given username.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, username)

	var u domain.User

	err := row.Scan(
		&u.Username,
		&u.HashedPassword,
		&u.FullName,
		&u.Email,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)

	if err != nil {
		l.Info().Err(err).Send()

		switch {
		case errors.Is(err, sql.ErrNoRows):
			return u, domain.ErrUserNotFound
		case dbpkg.IsUnavailable(err):
			return u, domain.ErrStoreUnavailable
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const renameQuery = `
UPDATE users
SET full_name = $2
WHERE username = $1
`

// Rename changes the recorded full name of the user.
//
// Directory maintenance lives outside this service; Rename exists for tests
// that check which name a transaction record reflects.
func (r *RepoPGS) Rename(ctx context.Context, username, fullName string) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, renameQuery, username, fullName)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
