/*
ledger.go - The Ledger orchestrator

PURPOSE:
  Ledger is the single entry point the UI layer calls. Each compound
  operation (sale, return, payment, purchase, closing) runs as one
  Store.WithTx scope: explicit business-rule checks first, then the row
  mutations, then the audit append - all of it commits or none of it does.

AUDIT POST-CONDITION:
  Every mutating operation ends with exactly one audit() call inside the
  same transaction. If the audit row cannot be written (unknown actor,
  storage failure), the whole mutation aborts. This is a contract, not a
  coincidence of statement ordering.

SEE ALSO:
  - sales.go, returns.go, debtors.go, purchases.go, closings.go: operations
  - reports.go: read-only pass-throughs
  - reconcile.go: stored-balance drift diagnostics
*/
package ledger

import (
	"context"
	"time"
)

// Ledger executes the transactional operations of the point of sale.
type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the read-only surface for callers that only query.
func (l *Ledger) Store() Queries { return l.store }

// audit captures the actor's role at write time and appends the entry
// through the operation's own transaction.
func (l *Ledger) audit(ctx context.Context, tx Tx, actorID int64, action Action, detail string) error {
	actor, err := tx.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	return tx.AppendAudit(ctx, AuditEntry{
		UserID:    actorID,
		At:        l.now(),
		Action:    action,
		ActorRole: actor.Role,
		Detail:    detail,
	})
}

// RecentAudit returns the most recent entries, newest first, joined with
// each actor's current display name. The stored role column is returned
// as written, so role changes do not rewrite history.
func (l *Ledger) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	return l.store.RecentAudit(ctx, limit)
}
