//go:build integration

package accountrepo_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-petr/pet-transfer/internal/accountrepo"
	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/integrationtest"
	"github.com/go-petr/pet-transfer/internal/integrationtest/helpers"
	"github.com/go-petr/pet-transfer/pkg/configpkg"
	"github.com/go-petr/pet-transfer/pkg/randompkg"

	_ "github.com/lib/pq"
)

var (
	dbDriver string
	dbSource string
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load(integrationtest.ConfigPath)
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	os.Exit(m.Run())
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		owner   func(t *testing.T, tx *sql.Tx) domain.User
		balance string
		wantErr error
	}{
		{
			name:    "OK",
			owner:   func(t *testing.T, tx *sql.Tx) domain.User { return helpers.SeedUser(t, tx) },
			balance: "1000",
		},
		{
			name:    "OwnerNotFound",
			owner:   func(t *testing.T, tx *sql.Tx) domain.User { return domain.User{Username: "non-existent"} },
			balance: "1000",
			wantErr: domain.ErrUserNotFound,
		},
		{
			name:    "NegativeBalance",
			owner:   func(t *testing.T, tx *sql.Tx) domain.User { return helpers.SeedUser(t, tx) },
			balance: "-1",
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			owner := tc.owner(t, tx)
			number := randompkg.AccountNumber()

			got, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), number, owner.Username, tc.balance)
			if err != nil {
				if err == tc.wantErr {
					return
				}
				t.Fatalf("Create(ctx, %v, %v, %v) returned error: %v", number, owner.Username, tc.balance, err)
			}

			want := domain.Account{
				Number:    number,
				Owner:     owner.Username,
				OwnerName: owner.FullName,
				Balance:   tc.balance,
				CreatedAt: time.Now(),
			}

			ignoreID := cmpopts.IgnoreFields(domain.Account{}, "ID")
			compareCreatedAt := cmpopts.EquateApproxTime(time.Second)
			if diff := cmp.Diff(want, got, ignoreID, compareCreatedAt); diff != "" {
				t.Errorf("Create() returned unexpected difference (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(tx)
	want := helpers.SeedAccountWith1000Balance(t, tx)
	ctx := context.Background()

	testCases := []struct {
		name    string
		lookup  func() (domain.Account, error)
		wantErr error
	}{
		{
			name:   "Get",
			lookup: func() (domain.Account, error) { return repo.Get(ctx, want.ID) },
		},
		{
			name:   "GetByNumber",
			lookup: func() (domain.Account, error) { return repo.GetByNumber(ctx, want.Number) },
		},
		{
			name:   "GetByOwner",
			lookup: func() (domain.Account, error) { return repo.GetByOwner(ctx, want.Owner) },
		},
		{
			name:   "GetForUpdate",
			lookup: func() (domain.Account, error) { return repo.GetForUpdate(ctx, want.ID) },
		},
		{
			name:    "GetNotFound",
			lookup:  func() (domain.Account, error) { return repo.Get(ctx, -1) },
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "GetByNumberNotFound",
			lookup:  func() (domain.Account, error) { return repo.GetByNumber(ctx, "0") },
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "GetByOwnerNotFound",
			lookup:  func() (domain.Account, error) { return repo.GetByOwner(ctx, "non-existent") },
			wantErr: domain.ErrSenderNotFound,
		},
	}

	// Subtests share one transaction and therefore run sequentially.
	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.lookup()
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Fatalf("got error %v, want %v", err, tc.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("returned error: %v", err)
			}

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("returned unexpected difference (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddBalance(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(tx)
	account := helpers.SeedAccountWith1000Balance(t, tx)
	ctx := context.Background()

	got, err := repo.AddBalance(ctx, "-250.5", account.ID)
	if err != nil {
		t.Fatalf("AddBalance(ctx, -250.5, %v) returned error: %v", account.ID, err)
	}

	if got.Balance != "749.5" {
		t.Errorf("got.Balance = %v, want 749.5", got.Balance)
	}

	if got.OwnerName != account.OwnerName {
		t.Errorf("got.OwnerName = %v, want %v", got.OwnerName, account.OwnerName)
	}

	// The conditional write refuses to overdraw.
	_, err = repo.AddBalance(ctx, "-749.6", account.ID)
	if err != domain.ErrInsufficientFunds {
		t.Fatalf("AddBalance(ctx, -749.6, %v) returned error %v, want %v", account.ID, err, domain.ErrInsufficientFunds)
	}

	got, err = repo.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("Get(ctx, %v) returned error: %v", account.ID, err)
	}

	if got.Balance != "749.5" {
		t.Errorf("after refused write got.Balance = %v, want 749.5", got.Balance)
	}

	got, err = repo.AddBalance(ctx, "-749.5", account.ID)
	if err != nil {
		t.Fatalf("AddBalance(ctx, -749.5, %v) returned error: %v", account.ID, err)
	}

	if got.Balance != "0.0" {
		t.Errorf("got.Balance = %v, want 0.0", got.Balance)
	}
}
