// Package auth supplies the verified principal for every request and
// enforces role-based access on route subtrees.
package auth

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleCardOwner = "CARD-OWNER"
	RoleAdmin     = "ADMIN"
	RoleNonOwner  = "NON-OWNER"
)

// Principal is the authenticated caller's identity.
type Principal struct {
	Username string
	Roles    []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a credential record in the user store.
type User struct {
	Username     string
	PasswordHash []byte
	Roles        []string
}

// Basic authenticates requests with HTTP basic auth against an in-memory
// user store.
type Basic struct {
	users map[string]User
}

func NewBasic(users []User) *Basic {
	m := make(map[string]User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &Basic{users: m}
}

// Authenticate rejects requests without valid credentials with 401 and
// injects the principal into the request context otherwise.
func (b *Basic) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}
		user, found := b.users[username]
		if !found {
			unauthorized(w)
			return
		}
		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
			unauthorized(w)
			return
		}
		p := Principal{Username: user.Username, Roles: user.Roles}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole rejects authenticated requests whose principal lacks the
// role with 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if !p.HasRole(role) {
				http.Error(w, "Access Denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="cashcards"`)
	w.WriteHeader(http.StatusUnauthorized)
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// MustHash hashes a plaintext password for user store seeding. It panics
// on failure, which only happens with an invalid cost.
func MustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}

// FixtureUsers returns the development user store.
func FixtureUsers() []User {
	return []User{
		{Username: "sarah1", PasswordHash: MustHash("abc123"), Roles: []string{RoleCardOwner, RoleAdmin}},
		{Username: "kumar2", PasswordHash: MustHash("xyz789"), Roles: []string{RoleCardOwner}},
		{Username: "hank-owns-no-cards", PasswordHash: MustHash("qrs456"), Roles: []string{RoleNonOwner}},
	}
}
