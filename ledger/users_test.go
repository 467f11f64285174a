/*
users_test.go - Operator account management tests
*/
package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

func TestCreateUser_AuditsUnderTheCreatingAdmin(t *testing.T) {
	// GIVEN: An admin
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)
	ctx := context.Background()

	// WHEN: Creating a cashier account
	id, err := core.CreateUser(ctx, admin, "cajero2", "hash", ledger.RoleCashier)
	require.NoError(t, err)

	// THEN: The account exists and the entry names the admin as actor
	u, err := core.User(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cajero2", u.Username)
	assert.Equal(t, ledger.RoleCashier, u.Role)
	assert.True(t, u.Active)

	entries, err := core.RecentAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.ActionUserCreated, entries[0].Action)
	assert.Equal(t, admin, entries[0].UserID)
}

func TestCreateUser_UnknownRole_Rejected(t *testing.T) {
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)

	_, err := core.CreateUser(context.Background(), admin, "x", "hash", ledger.Role("owner"))

	assert.ErrorIs(t, err, ledger.ErrInvalidRole)
}

func TestCreateUser_DuplicateUsername_Conflicts(t *testing.T) {
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)
	ctx := context.Background()

	_, err := core.CreateUser(ctx, admin, "cajero", "hash", ledger.RoleCashier)
	require.NoError(t, err)

	_, err = core.CreateUser(ctx, admin, "cajero", "hash", ledger.RoleCashier)

	assert.ErrorIs(t, err, ledger.ErrDuplicateUsername)
}

func TestChangePassword_ReplacesTheHash(t *testing.T) {
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)
	ctx := context.Background()

	id, err := core.CreateUser(ctx, admin, "cajero", "old-hash", ledger.RoleCashier)
	require.NoError(t, err)

	require.NoError(t, core.ChangePassword(ctx, admin, id, "new-hash"))

	u, err := core.User(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", u.PasswordHash)
}

func TestDeleteUser_RemovesTheAccount(t *testing.T) {
	core, store := newTestLedger(t)
	admin := seedOperator(t, store, "admin", ledger.RoleAdmin)
	ctx := context.Background()

	id, err := core.CreateUser(ctx, admin, "temporal", "hash", ledger.RoleCashier)
	require.NoError(t, err)

	require.NoError(t, core.DeleteUser(ctx, admin, id))

	_, err = core.User(ctx, id)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}
