package ledger

import (
	"context"
	"fmt"
)

// CreateUser registers an operator account. The password hash is
// produced by the caller; the ledger never sees plaintext credentials.
func (l *Ledger) CreateUser(ctx context.Context, actorID int64, username, passwordHash string, role Role) (int64, error) {
	if username == "" || passwordHash == "" {
		return 0, rejectf(ErrInvalidLine, "username and password are required")
	}
	if !role.Valid() {
		return 0, rejectf(ErrInvalidRole, "unknown role %q", role)
	}
	var id int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.InsertUser(ctx, User{
			Username:     username,
			PasswordHash: passwordHash,
			Role:         role,
		})
		if err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionUserCreated,
			fmt.Sprintf("user %q created with role %s", username, role))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) ChangePassword(ctx context.Context, actorID, userID int64, passwordHash string) error {
	if passwordHash == "" {
		return rejectf(ErrInvalidLine, "password is required")
	}
	return l.store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionPasswordChanged,
			fmt.Sprintf("password changed for user %q", user.Username))
	})
}

// SetUserActive flips an account on or off. Deactivation locks the
// account out on the next request without destroying its history.
func (l *Ledger) SetUserActive(ctx context.Context, actorID, userID int64, active bool) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.SetUserActive(ctx, userID, active); err != nil {
			return err
		}
		state := "deactivated"
		if active {
			state = "reactivated"
		}
		return l.audit(ctx, tx, actorID, ActionUserDeactivated,
			fmt.Sprintf("user %q %s", user.Username, state))
	})
}

func (l *Ledger) DeleteUser(ctx context.Context, actorID, userID int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionUserDeleted,
			fmt.Sprintf("user %q deleted", user.Username))
	})
}

func (l *Ledger) User(ctx context.Context, id int64) (*User, error) {
	return l.store.GetUser(ctx, id)
}

func (l *Ledger) UserByUsername(ctx context.Context, username string) (*User, error) {
	return l.store.GetUserByUsername(ctx, username)
}

func (l *Ledger) ListUsers(ctx context.Context) ([]User, error) {
	return l.store.ListUsers(ctx)
}
