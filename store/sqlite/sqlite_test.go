/*
sqlite_test.go - Store-level tests

CORE DESIGN UNDER TEST:
- Reopening a database file is safe: migrations are idempotent
- Files created by older builds gain the late-added columns on open
- WithTx rolls every write back when the callback errors
- UNIQUE violations surface as the typed conflict errors
- A value mangled outside the app reads back as zero, not a failed query
*/
package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
	"github.com/verzalex4-ai/sistema-ventas/store/sqlite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func insertProduct(t *testing.T, store *sqlite.Store, code string) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		id, err = tx.InsertProduct(ctx, ledger.Product{
			Code:   code,
			Name:   "Product " + code,
			Cost:   dec("1.00"),
			Price:  dec("2.00"),
			Stock:  5,
			Active: true,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

// =============================================================================
// MIGRATION
// =============================================================================

func TestNew_ReopenSameFile_KeepsData(t *testing.T) {
	// GIVEN: A file-backed store with one product
	path := filepath.Join(t.TempDir(), "ventas.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	id := insertProduct(t, store, "A1")
	require.NoError(t, store.Close())

	// WHEN: Opening the same file again
	store, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// THEN: Migrations ran again without harm and the row survived
	p, err := store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "A1", p.Code)
	assert.True(t, p.Active)
}

func TestNew_LegacyFile_GainsLateColumns(t *testing.T) {
	// GIVEN: A database file from a build that predates the active and
	// actor_role columns
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cost TEXT NOT NULL,
			price TEXT NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			supplier_id INTEGER,
			category_id INTEGER
		);
		INSERT INTO products (code, name, cost, price, stock)
		VALUES ('OLD1', 'Legacy product', '1.00', '2.00', 3);

		CREATE TABLE suppliers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			contact TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			action TEXT NOT NULL,
			detail TEXT NOT NULL
		);`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	// WHEN: Opening it through the store
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// THEN: The legacy row reads back as active
	p, err := store.GetProductByCode(context.Background(), "OLD1")
	require.NoError(t, err)
	assert.Equal(t, "Legacy product", p.Name)
	assert.True(t, p.Active, "grafted column must default to active")
	assert.Equal(t, int64(3), p.Stock)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_ErrorRollsBackEveryWrite(t *testing.T) {
	// GIVEN: An empty store
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	// WHEN: A transaction writes a product and then fails
	boom := errors.New("boom")
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertProduct(ctx, ledger.Product{
			Code: "A1", Name: "Product A1",
			Cost: dec("1.00"), Price: dec("2.00"), Active: true,
		}); err != nil {
			return err
		}
		return boom
	})

	// THEN: The error comes back unchanged and the write is gone
	assert.ErrorIs(t, err, boom)
	_, err = store.GetProductByCode(ctx, "A1")
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		id, err := tx.InsertProduct(ctx, ledger.Product{
			Code: "A1", Name: "Product A1",
			Cost: dec("1.00"), Price: dec("2.00"), Stock: 5, Active: true,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, id, -2); err != nil {
			return err
		}
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(3), p.Stock)
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// CONSTRAINT MAPPING
// =============================================================================

func TestConstraints_MapToTypedErrors(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	insertProduct(t, store, "A1")

	// Duplicate product code
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.InsertProduct(ctx, ledger.Product{
			Code: "A1", Name: "Other",
			Cost: dec("1.00"), Price: dec("2.00"), Active: true,
		})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateCode)

	// Duplicate username
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertUser(ctx, ledger.User{
			Username: "admin", PasswordHash: "h", Role: ledger.RoleAdmin,
		}); err != nil {
			return err
		}
		_, err := tx.InsertUser(ctx, ledger.User{
			Username: "admin", PasswordHash: "h", Role: ledger.RoleAdmin,
		})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateUsername)

	// Duplicate debtor name falls into the generic name bucket
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertDebtor(ctx, ledger.Debtor{Name: "Maria", Balance: dec("0")}); err != nil {
			return err
		}
		_, err := tx.InsertDebtor(ctx, ledger.Debtor{Name: "Maria", Balance: dec("0")})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateName)
}

func TestCheckConstraint_NegativePending_Blocked(t *testing.T) {
	// GIVEN: A settled cash sale
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	var userID, saleID int64
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		userID, err = tx.InsertUser(ctx, ledger.User{
			Username: "cajero", PasswordHash: "h", Role: ledger.RoleCashier,
		})
		if err != nil {
			return err
		}
		saleID, err = tx.InsertSale(ctx, ledger.Sale{
			UserID:      userID,
			Total:       dec("10.00"),
			PaymentKind: ledger.PaymentCash,
			Pending:     dec("0"),
		})
		return err
	})
	require.NoError(t, err)

	// WHEN: Driving pending below zero
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.AdjustSalePending(ctx, saleID, dec("-1.00"))
	})

	// THEN: The check constraint rejects it as a constraint error
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConstraint)
}

func TestCorruptedStoredAmount_ReadsAsZero(t *testing.T) {
	// GIVEN: A product whose price column was mangled outside the app
	path := filepath.Join(t.TempDir(), "ventas.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	id := insertProduct(t, store, "A1")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec("UPDATE products SET price = 'garbage' WHERE id = ?", id)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	// WHEN: Reading the product back
	p, err := store.GetProduct(context.Background(), id)

	// THEN: The query still succeeds and the unreadable amount scans as zero
	require.NoError(t, err)
	assert.True(t, p.Price.IsZero())
	assert.Equal(t, "A1", p.Code)
}
