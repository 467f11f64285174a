/*
Package auth handles operator accounts and sessions.

PURPOSE:
  Login against the users table with bcrypt credentials, JWT session
  tokens, and the HTTP middleware that resolves a token back to an actor
  for handlers to pass into the ledger as actorID.

TOKEN SHAPE:
  HS256, subject = user id, a "role" claim, configurable TTL. The
  middleware re-reads the user row on every request, so deactivating an
  account takes effect immediately instead of at token expiry.

SEE ALSO:
  - ledger/users.go: account lifecycle with audit entries
  - api/server.go: where the middleware is mounted
*/
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Actor is the authenticated operator attached to a request context.
type Actor struct {
	ID       int64
	Username string
	Role     ledger.Role
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Manager issues and validates session tokens against the users table.
type Manager struct {
	users  ledger.Queries
	secret []byte
	ttl    time.Duration
}

func NewManager(users ledger.Queries, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{users: users, secret: []byte(secret), ttl: ttl}
}

// Session is what a successful login returns.
type Session struct {
	Token     string      `json:"token"`
	Role      ledger.Role `json:"role"`
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login verifies the credentials and issues a session token. The error is
// the same for an unknown username and a wrong password.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := m.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(m.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "sistema-ventas",
		},
		Role: string(user.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		Role:      user.Role,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates a token and resolves its subject back to the live
// user row, so deactivation and role edits apply immediately.
func (m *Manager) ParseToken(ctx context.Context, tokenStr string) (*Actor, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenStr, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := m.users.GetUser(ctx, id)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.Active {
		return nil, ErrInactiveAccount
	}
	return &Actor{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the operator the middleware attached.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey).(*Actor)
	return actor, ok
}

// Middleware rejects requests without a valid bearer token and attaches
// the resolved actor to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}

		actor, err := m.ParseToken(r.Context(), parts[1])
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrInactiveAccount) {
				status = http.StatusForbidden
			}
			http.Error(w, err.Error(), status)
			return
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), actorKey, actor)))
	})
}

// RequireAdmin guards admin-only routes. It assumes Middleware already ran.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || actor.Role != ledger.RoleAdmin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
