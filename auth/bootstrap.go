package auth

import (
	"context"
	"log"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// Bootstrap seeds default operator accounts when the users table is
// empty, writing through the store directly because no actor exists yet
// to attribute an audit entry to. The defaults are meant to be changed
// on first login.
func Bootstrap(ctx context.Context, store ledger.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	defaults := []struct {
		username, password string
		role               ledger.Role
	}{
		{"admin", "admin123", ledger.RoleAdmin},
		{"cajero", "cajero123", ledger.RoleCashier},
	}

	return store.WithTx(ctx, func(tx ledger.Tx) error {
		for _, d := range defaults {
			hash, err := HashPassword(d.password)
			if err != nil {
				return err
			}
			if _, err := tx.InsertUser(ctx, ledger.User{
				Username:     d.username,
				PasswordHash: hash,
				Role:         d.role,
			}); err != nil {
				return err
			}
			log.Printf("seeded default %s account %q; change its password", d.role, d.username)
		}
		return nil
	})
}
