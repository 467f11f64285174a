/*
Package sqlite is the embedded store behind the ledger.

PURPOSE:
  Implements ledger.Store against a single SQLite file. This is the only
  production store; the whole system state of one shop lives in one file
  next to the executable.

INTERFACES IMPLEMENTED:
  ledger.Store:   scoped transactions via WithTx
  ledger.Queries: every read, usable outside a transaction
  ledger.Tx:      every write primitive, reachable only inside WithTx

SCHEMA NOTES:
  - Money columns are TEXT holding decimal strings. CHECK constraints on
    them go through CAST(col AS REAL); a bare comparison on a TEXT column
    compares lexically and would wave negative amounts through.
  - Timestamps are TEXT RFC3339 in UTC, so lexical range comparison is
    also chronological.
  - audit_log has no UPDATE or DELETE statement anywhere in this package.
  - products.stock carries no >= 0 CHECK. The sale path decrements without
    re-checking sufficiency; whether to block the sale is the caller's
    decision, not the store's.

CONSTRAINT MAPPING:
  UNIQUE violations surface as the ledger's conflict sentinels
  (ErrDuplicateCode, ErrDuplicateName, ErrDuplicateUsername). CHECK and
  foreign-key violations surface wrapped in ErrConstraint; the enclosing
  transaction rolls back whole.

MIGRATION:
  migrate() runs CREATE TABLE IF NOT EXISTS for everything, then checks
  for columns that were added after the first schema shipped and ALTERs
  them in when missing. Older database files keep working in place.

WAL MODE:
  The file is opened with WAL and foreign keys on. Reads run without
  locking; a mutex serializes WithTx so there is one writer at a time.

USAGE:
  store, err := sqlite.New("./ventas.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  core := ledger.New(store)

SEE ALSO:
  - ledger/store.go: the contracts this package implements
  - ledger/ledger.go: the orchestrator driving WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// Store implements ledger.Store on a SQLite file.
type Store struct {
	db *sql.DB
	mu sync.Mutex
	queries
}

// New opens (and if needed creates) the database at dbPath.
// Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, queries: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'cashier', 'auditor')),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		contact TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost TEXT NOT NULL CHECK (CAST(cost AS REAL) >= 0),
		price TEXT NOT NULL CHECK (CAST(price AS REAL) >= 0),
		stock INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		supplier_id INTEGER REFERENCES suppliers(id) ON DELETE SET NULL,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_code ON products(code);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);

	CREATE TABLE IF NOT EXISTS debtors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0)
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL,
		total TEXT NOT NULL CHECK (CAST(total AS REAL) >= 0),
		payment_kind TEXT NOT NULL CHECK (payment_kind IN ('cash', 'credit')),
		debtor_id INTEGER REFERENCES debtors(id) ON DELETE SET NULL,
		pending TEXT NOT NULL DEFAULT '0'
			CHECK (CAST(pending AS REAL) >= 0 AND CAST(pending AS REAL) <= CAST(total AS REAL))
	);

	CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);
	CREATE INDEX IF NOT EXISTS idx_sales_debtor ON sales(debtor_id);

	CREATE TABLE IF NOT EXISTS sale_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL CHECK (CAST(unit_price AS REAL) >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id);

	CREATE TABLE IF NOT EXISTS debtor_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debtor_id INTEGER NOT NULL REFERENCES debtors(id) ON DELETE CASCADE,
		sale_id INTEGER REFERENCES sales(id) ON DELETE SET NULL,
		paid_at TEXT NOT NULL,
		amount TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_debtor_payments_sale ON debtor_payments(sale_id);

	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		supplier_id INTEGER NOT NULL REFERENCES suppliers(id),
		received_at TEXT NOT NULL,
		total_cost TEXT NOT NULL CHECK (CAST(total_cost AS REAL) >= 0)
	);

	CREATE TABLE IF NOT EXISTS purchase_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		purchase_id INTEGER NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_cost TEXT NOT NULL CHECK (CAST(unit_cost AS REAL) >= 0)
	);

	CREATE TABLE IF NOT EXISTS returns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL REFERENCES sales(id),
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL,
		total TEXT NOT NULL CHECK (CAST(total AS REAL) >= 0),
		kind TEXT NOT NULL CHECK (kind IN ('full', 'partial')),
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_returns_sale ON returns(sale_id);

	CREATE TABLE IF NOT EXISTS return_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		return_id INTEGER NOT NULL REFERENCES returns(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL CHECK (CAST(unit_price AS REAL) >= 0)
	);

	CREATE TABLE IF NOT EXISTS cash_closings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		closed_at TEXT NOT NULL,
		total_sales TEXT NOT NULL,
		cash_total TEXT NOT NULL,
		counted TEXT NOT NULL,
		variance TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_cash_closings_user ON cash_closings(user_id, closed_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_role TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Columns added after the first schema shipped. Database files created
	// by older builds get them grafted in on open.
	upgrades := []struct {
		table, column, ddl string
	}{
		{"products", "active", "ALTER TABLE products ADD COLUMN active INTEGER NOT NULL DEFAULT 1"},
		{"suppliers", "active", "ALTER TABLE suppliers ADD COLUMN active INTEGER NOT NULL DEFAULT 1"},
		{"audit_log", "actor_role", "ALTER TABLE audit_log ADD COLUMN actor_role TEXT NOT NULL DEFAULT ''"},
	}
	for _, up := range upgrades {
		ok, err := s.hasColumn(up.table, up.column)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.db.Exec(up.ddl); err != nil {
				return fmt.Errorf("failed to add %s.%s: %w", up.table, up.column, err)
			}
		}
	}

	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// WithTx runs fn inside one database transaction. Commit happens only when
// fn returns nil; any error rolls back every write fn made.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries{db: sqlTx}}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the in-transaction view: the same queries bound to the
// sql.Tx, so reads see uncommitted writes, plus every write primitive.
type txStore struct {
	queries
}

// =============================================================================
// HELPERS
// =============================================================================

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime and parseDec read back values this package wrote itself. A
// failure means the file was edited outside the application; the bad
// value is logged and read as zero rather than failing the whole query.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Printf("sqlite: unreadable timestamp %q: %v", s, err)
	}
	return t
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Printf("sqlite: unreadable amount %q: %v", s, err)
		return decimal.Zero
	}
	return d
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// requireRow turns a zero-row UPDATE or DELETE into the given not-found
// sentinel.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// mapConstraintErr translates SQLite constraint failures into the ledger's
// error taxonomy. go-sqlite3 only exposes them through the message text.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: products.code"):
		return ledger.ErrDuplicateCode
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return ledger.ErrDuplicateUsername
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ledger.ErrDuplicateName
	case strings.Contains(msg, "constraint failed"):
		return fmt.Errorf("%w: %s", ledger.ErrConstraint, msg)
	}
	return err
}
