/*
auth.go - Login and bearer-token middleware

PURPOSE:
  The identity collaborator. Verifies credentials at login, issues a signed
  JWT carrying the worker and organization ids, and resolves the ScopeKey
  for every authenticated request. The punch engine itself never sees a
  credential; it only receives the resulting ScopeKey.

TOKEN SHAPE:
  HS256, claims: sub (worker id), org (organization id), exp.

SEE ALSO:
  - handlers.go: Reads the ScopeKey this middleware installs
  - punch/store.go: The Directory interface backing lookups
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/punch-engine/punch"
)

// Auth verifies credentials and issues/validates bearer tokens.
type Auth struct {
	Directory punch.Directory
	Secret    []byte
	TokenTTL  time.Duration
}

// NewAuth creates an Auth with an eight-hour token lifetime.
func NewAuth(directory punch.Directory, secret []byte) *Auth {
	return &Auth{Directory: directory, Secret: secret, TokenTTL: 8 * time.Hour}
}

// =============================================================================
// LOGIN
// =============================================================================

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token and the worker's display context.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        LoginUserDTO `json:"user"`
}

// LoginUserDTO is the authenticated worker's profile.
type LoginUserDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	OrgID    string `json:"org_id"`
	Timezone string `json:"timezone"`
}

// Login verifies email+password and returns a signed token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	worker, err := a.Directory.FindWorkerByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and bad password.
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(worker.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := a.issueToken(worker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		User: LoginUserDTO{
			ID:       worker.ID,
			Name:     worker.Name,
			Email:    worker.Email,
			OrgID:    worker.OrgID,
			Timezone: worker.OrgTimezone,
		},
	})
}

func (a *Auth) issueToken(worker punch.Worker) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": worker.ID,
		"org": worker.OrgID,
		"iat": now.Unix(),
		"exp": now.Add(a.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type scopeCtxKey struct{}

// Middleware validates the bearer token and installs the ScopeKey into the
// request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := a.scopeFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		ctx := context.WithValue(r.Context(), scopeCtxKey{}, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) scopeFromRequest(r *http.Request) (punch.ScopeKey, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return punch.ScopeKey{}, errors.New("missing bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.Secret, nil
	})
	if err != nil || !token.Valid {
		return punch.ScopeKey{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return punch.ScopeKey{}, errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	org, _ := claims["org"].(string)

	scope := punch.ScopeKey{OrgID: org, WorkerID: sub}
	if scope.IsZero() {
		return punch.ScopeKey{}, errors.New("incomplete scope claims")
	}
	return scope, nil
}

// ScopeFromContext returns the authenticated ScopeKey installed by
// Middleware.
func ScopeFromContext(ctx context.Context) (punch.ScopeKey, bool) {
	scope, ok := ctx.Value(scopeCtxKey{}).(punch.ScopeKey)
	return scope, ok
}
