/*
ledger_test.go - Shared test fixtures and audit-trail tests

CORE DESIGN UNDER TEST:
- Every mutating operation appends exactly one audit entry in the same
  transaction; if the entry cannot be written, the mutation rolls back
- Audit entries capture the actor's role at write time
*/
package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
	"github.com/verzalex4-ai/sistema-ventas/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return ledger.New(store), store
}

// seedOperator inserts a user directly, bypassing the audit trail the way
// first-run bootstrap does.
func seedOperator(t *testing.T, store *sqlite.Store, username string, role ledger.Role) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		id, err = tx.InsertUser(ctx, ledger.User{
			Username:     username,
			PasswordHash: "not-a-real-hash",
			Role:         role,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, core *ledger.Ledger, actorID int64, code string, cost, price string, stock int64) int64 {
	t.Helper()

	id, err := core.CreateProduct(context.Background(), actorID, ledger.ProductInput{
		Code:  code,
		Name:  "Product " + code,
		Cost:  dec(cost),
		Price: dec(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return id
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// timeRangeAround returns a [from, to] pair enclosing the present, wide
// enough that rows written during the test always fall inside it.
func timeRangeAround(t *testing.T) [2]time.Time {
	t.Helper()
	now := time.Now().UTC()
	return [2]time.Time{now.Add(-time.Hour), now.Add(time.Hour)}
}

// =============================================================================
// AUDIT TRAIL TESTS
// =============================================================================

func TestAudit_EveryMutationLeavesOneEntry(t *testing.T) {
	// GIVEN: A cashier performing a product creation and a cash sale
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()

	seedProduct(t, core, cashier, "A1", "4.00", "10.00", 20)

	_, err := core.RegisterSale(ctx, cashier, ledger.SaleInput{
		Total:       dec("20.00"),
		PaymentKind: ledger.PaymentCash,
		Lines: map[string]ledger.SaleLine{
			"A1": {Quantity: 2, UnitPrice: dec("10.00")},
		},
	})
	require.NoError(t, err)

	// WHEN: Reading the recent audit trail
	entries, err := core.RecentAudit(ctx, 10)
	require.NoError(t, err)

	// THEN: One entry per mutation, newest first, role captured at write time
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.ActionSaleRegistered, entries[0].Action)
	assert.Equal(t, ledger.ActionProductCreated, entries[1].Action)
	for _, e := range entries {
		assert.Equal(t, cashier, e.UserID)
		assert.Equal(t, ledger.RoleCashier, e.ActorRole)
		assert.Equal(t, "cajero", e.Username)
		assert.False(t, e.At.IsZero())
	}
}

func TestAudit_UnknownActor_AbortsWholeMutation(t *testing.T) {
	// GIVEN: A valid product owned by a real cashier
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	seedProduct(t, core, cashier, "A1", "4.00", "10.00", 20)

	// WHEN: A sale is registered under an actor ID that does not exist
	_, err := core.RegisterSale(ctx, 9999, ledger.SaleInput{
		Total:       dec("10.00"),
		PaymentKind: ledger.PaymentCash,
		Lines: map[string]ledger.SaleLine{
			"A1": {Quantity: 1, UnitPrice: dec("10.00")},
		},
	})

	// THEN: The operation fails and nothing was written, stock included
	require.Error(t, err)
	p, err := core.ProductByCode(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.Stock)

	entries, err := core.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1) // only the product creation
	assert.Equal(t, ledger.ActionProductCreated, entries[0].Action)
}

func TestAudit_UnknownActor_FailsAtTheAuditAppend(t *testing.T) {
	// GIVEN: An empty catalog. Products carry no user reference, so the
	// audit append is the only statement that can reject the actor.
	core, _ := newTestLedger(t)
	ctx := context.Background()

	// WHEN: Creating a product under an actor ID that does not exist
	_, err := core.CreateProduct(ctx, 9999, ledger.ProductInput{
		Code: "A1", Name: "Product A1",
		Cost: dec("4.00"), Price: dec("10.00"), Stock: 20,
	})

	// THEN: The audit failure rolls the product insert back with it
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = core.ProductByCode(ctx, "A1")
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)

	entries, err := core.RecentAudit(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAudit_RecentRespectsLimit(t *testing.T) {
	// GIVEN: Three product creations
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)

	seedProduct(t, core, admin, "A1", "1.00", "2.00", 1)
	seedProduct(t, core, admin, "A2", "1.00", "2.00", 1)
	seedProduct(t, core, admin, "A3", "1.00", "2.00", 1)

	// WHEN: Asking for the two most recent entries
	entries, err := core.RecentAudit(context.Background(), 2)
	require.NoError(t, err)

	// THEN: Only the newest two come back
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Detail, "A3")
	assert.Contains(t, entries[1].Detail, "A2")
}
