package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/usecase"
	"github.com/iho/walletledger/tests/testutil"
)

func TestConcurrentMutations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	fx := newLedgerFixture(t, testDB, "admin@ledger.test")

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		_, err := fx.ledger.Credit(ctx, usecase.ChangeInput{
			Holder: "alice", Currency: "USD", Amount: decimal.NewFromInt(100), Description: "top up",
		})
		if err != nil {
			t.Fatalf("seed credit failed: %v", err)
		}

		numDebits := 30

		var (
			wg            sync.WaitGroup
			successCount  atomic.Int32
			rejectedCount atomic.Int32
			errorCount    atomic.Int32
		)

		wg.Add(numDebits)

		for range numDebits {
			go func() {
				defer wg.Done()

				res, err := fx.ledger.Debit(ctx, usecase.ChangeInput{
					Holder: "alice", Currency: "USD", Amount: decimal.NewFromInt(10), Description: "spend",
				})
				switch {
				case err != nil:
					errorCount.Add(1)
				case res.Rejected():
					rejectedCount.Add(1)
				default:
					successCount.Add(1)
				}
			}()
		}

		wg.Wait()

		if errorCount.Load() != 0 {
			t.Fatalf("expected no errors, got %d", errorCount.Load())
		}
		if successCount.Load() != 10 {
			t.Errorf("expected 10 successful debits, got %d", successCount.Load())
		}
		if rejectedCount.Load() != 20 {
			t.Errorf("expected 20 rejected debits, got %d", rejectedCount.Load())
		}

		bal, err := fx.ledger.GetBalance(ctx, "alice", "USD")
		if err != nil {
			t.Fatalf("get balance: %v", err)
		}
		if !bal.Amount.Equal(decimal.Zero) {
			t.Errorf("expected balance 0, got %s", bal.Amount)
		}

		rec, err := fx.reconciliation.ReconcileHolder(ctx, "alice")
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if !rec.IsReconciled {
			t.Errorf("expected log to reconcile with balance: %+v", rec.Currencies)
		}
	})

	t.Run("concurrent credits to a new holder create one account", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		numCredits := 50

		var (
			wg         sync.WaitGroup
			errorCount atomic.Int32
		)

		wg.Add(numCredits)

		for range numCredits {
			go func() {
				defer wg.Done()

				_, err := fx.ledger.Credit(ctx, usecase.ChangeInput{
					Holder: "bob", Currency: "EUR", Amount: decimal.NewFromInt(2),
				})
				if err != nil {
					errorCount.Add(1)
				}
			}()
		}

		wg.Wait()

		if errorCount.Load() != 0 {
			t.Fatalf("expected no errors, got %d", errorCount.Load())
		}

		bal, err := fx.ledger.GetBalance(ctx, "bob", "EUR")
		if err != nil {
			t.Fatalf("get balance: %v", err)
		}
		if !bal.Amount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected balance 100, got %s", bal.Amount)
		}

		var accounts int
		if err := testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE holder = 'bob'`).Scan(&accounts); err != nil {
			t.Fatalf("count accounts: %v", err)
		}
		if accounts != 1 {
			t.Errorf("expected 1 account row, got %d", accounts)
		}
	})

	t.Run("fees from many holders reach the admin", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		holders := []string{"h1", "h2", "h3", "h4", "h5"}

		var wg sync.WaitGroup
		wg.Add(len(holders))

		for _, h := range holders {
			go func() {
				defer wg.Done()

				_, err := fx.ledger.Credit(ctx, usecase.ChangeInput{
					Holder: h, Currency: "USD", Amount: decimal.NewFromInt(10), Fee: decimal.NewFromInt(1),
					Description: "deposit",
				})
				if err != nil {
					t.Errorf("credit %s: %v", h, err)
				}
			}()
		}

		wg.Wait()

		admin, err := fx.ledger.GetBalance(ctx, "admin@ledger.test", "USD")
		if err != nil {
			t.Fatalf("get admin balance: %v", err)
		}
		if !admin.Amount.Equal(decimal.NewFromInt(5)) {
			t.Errorf("expected admin balance 5, got %s", admin.Amount)
		}
	})
}
