/*
auth_test.go - Credential, session token, and middleware tests

CORE DESIGN UNDER TEST:
- Unknown username and wrong password fail identically
- Tokens resolve to the live user row, so deactivation locks an account
  out immediately, not at token expiry
- Admin-only routes reject every other role
*/
package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzalex4-ai/sistema-ventas/auth"
	"github.com/verzalex4-ai/sistema-ventas/ledger"
	"github.com/verzalex4-ai/sistema-ventas/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestManager(t *testing.T) (*auth.Manager, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return auth.NewManager(store, "test-secret", time.Hour), store
}

func seedUser(t *testing.T, store *sqlite.Store, username, password string, role ledger.Role) int64 {
	t.Helper()
	ctx := context.Background()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	var id int64
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		id, err = tx.InsertUser(ctx, ledger.User{
			Username:     username,
			PasswordHash: hash,
			Role:         role,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func deactivate(t *testing.T, store *sqlite.Store, id int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.SetUserActive(ctx, id, false)
	}))
}

// =============================================================================
// PASSWORDS
// =============================================================================

func TestPassword_HashAndVerify(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, auth.VerifyPassword(hash, "s3cret"))
	assert.False(t, auth.VerifyPassword(hash, "wrong"))
}

// =============================================================================
// LOGIN
// =============================================================================

func TestLogin_IssuesResolvableToken(t *testing.T) {
	// GIVEN: An active cashier account
	m, store := newTestManager(t)
	id := seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)
	ctx := context.Background()

	// WHEN: Logging in
	session, err := m.Login(ctx, "cajero", "cajero123")
	require.NoError(t, err)

	// THEN: The session names the operator and its token resolves back
	assert.Equal(t, id, session.UserID)
	assert.Equal(t, "cajero", session.Username)
	assert.Equal(t, ledger.RoleCashier, session.Role)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	actor, err := m.ParseToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, ledger.RoleCashier, actor.Role)
}

func TestLogin_UnknownUserAndWrongPassword_FailTheSame(t *testing.T) {
	m, store := newTestManager(t)
	seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)
	ctx := context.Background()

	_, errUnknown := m.Login(ctx, "nobody", "whatever")
	_, errWrong := m.Login(ctx, "cajero", "not-the-password")

	assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, auth.ErrInvalidCredentials)
}

func TestLogin_InactiveAccount_Rejected(t *testing.T) {
	m, store := newTestManager(t)
	id := seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)
	deactivate(t, store, id)

	_, err := m.Login(context.Background(), "cajero", "cajero123")

	assert.ErrorIs(t, err, auth.ErrInactiveAccount)
}

// =============================================================================
// TOKEN RESOLUTION
// =============================================================================

func TestParseToken_GarbageToken_Rejected(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.ParseToken(context.Background(), "not-a-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_WrongSecret_Rejected(t *testing.T) {
	// GIVEN: A token minted by a manager with a different secret
	m, store := newTestManager(t)
	seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)

	other := auth.NewManager(store, "other-secret", time.Hour)
	session, err := other.Login(context.Background(), "cajero", "cajero123")
	require.NoError(t, err)

	// WHEN/THEN: The first manager refuses it
	_, err = m.ParseToken(context.Background(), session.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_DeactivationTakesEffectImmediately(t *testing.T) {
	// GIVEN: A valid session
	m, store := newTestManager(t)
	id := seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)
	ctx := context.Background()

	session, err := m.Login(ctx, "cajero", "cajero123")
	require.NoError(t, err)

	// WHEN: The account is deactivated after the token was issued
	deactivate(t, store, id)

	// THEN: The unexpired token no longer resolves
	_, err = m.ParseToken(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrInactiveAccount)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestMiddleware_AttachesActor(t *testing.T) {
	m, store := newTestManager(t)
	id := seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)

	session, err := m.Login(context.Background(), "cajero", "cajero123")
	require.NoError(t, err)

	var seen *auth.Actor
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, id, seen.ID)
	assert.Equal(t, "cajero", seen.Username)
}

func TestMiddleware_MissingOrMalformedHeader_Unauthorized(t *testing.T) {
	m, _ := newTestManager(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAdmin_BlocksCashier(t *testing.T) {
	m, store := newTestManager(t)
	seedUser(t, store, "cajero", "cajero123", ledger.RoleCashier)
	seedUser(t, store, "admin", "admin123", ledger.RoleAdmin)

	handler := m.Middleware(auth.RequireAdmin(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {})))

	cashierSession, err := m.Login(context.Background(), "cajero", "cajero123")
	require.NoError(t, err)
	adminSession, err := m.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+cashierSession.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminSession.Token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// FIRST-RUN BOOTSTRAP
// =============================================================================

func TestBootstrap_SeedsDefaultsOnceOnly(t *testing.T) {
	// GIVEN: An empty store
	_, store := newTestManager(t)
	ctx := context.Background()

	// WHEN: Bootstrapping twice
	require.NoError(t, auth.Bootstrap(ctx, store))
	require.NoError(t, auth.Bootstrap(ctx, store))

	// THEN: Exactly the two default accounts exist with working passwords
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	m := auth.NewManager(store, "test-secret", time.Hour)
	_, err = m.Login(ctx, "admin", "admin123")
	assert.NoError(t, err)
	_, err = m.Login(ctx, "cajero", "cajero123")
	assert.NoError(t, err)
}
