// Package helpers seeds customers and accounts for integration tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/go-petr/pet-transfer/internal/accountrepo"
	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/userrepo"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
	"github.com/go-petr/pet-transfer/pkg/passpkg"
	"github.com/go-petr/pet-transfer/pkg/randompkg"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "secret123"

// SeedUser creates random User.
func SeedUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	return SeedUserWithName(t, db, randompkg.FullName())
}

// SeedUserWithName creates a random User with the given full name.
func SeedUserWithName(t *testing.T, db dbpkg.SQLInterface, fullName string) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(DefaultPassword)
	if err != nil {
		t.Fatalf("passpkg.Hash(%v) returned error: %v", DefaultPassword, err)
	}

	user := domain.User{
		Username:       randompkg.Owner() + randompkg.String(4),
		HashedPassword: hashedPassword,
		FullName:       fullName,
		Email:          randompkg.Email(),
	}

	userRepo := userrepo.NewRepoPGS(db)

	created, err := userRepo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("userRepo.Create(context.Background(), %+v) returned error: %v", user, err)
	}

	return created
}

// SeedAccount creates an Account with the given balance for the user.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, user domain.User, balance string) domain.Account {
	t.Helper()

	accountRepo := accountrepo.NewRepoPGS(db)
	number := randompkg.AccountNumber()

	account, err := accountRepo.Create(context.Background(), number, user.Username, balance)
	if err != nil {
		stmt := `accountRepo.Create(context.Background(), %v, %v, %v) returned error: %v`
		t.Fatalf(stmt, number, user.Username, balance, err)
	}

	return account
}

// SeedAccountWith1000Balance creates a user and an Account with 1000 on balance.
func SeedAccountWith1000Balance(t *testing.T, db dbpkg.SQLInterface) domain.Account {
	t.Helper()

	return SeedAccount(t, db, SeedUser(t, db), "1000")
}

// RandomAccount returns an account that is not stored anywhere.
func RandomAccount(owner string) domain.Account {
	return domain.Account{
		ID:        randompkg.IntBetween(1, 1000),
		Number:    randompkg.AccountNumber(),
		Owner:     owner,
		OwnerName: randompkg.FullName(),
		Balance:   randompkg.MoneyAmountBetween(1000, 10_000),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}
