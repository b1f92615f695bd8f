// Package auth resolves the requester identity from a bearer JWT.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Identity struct {
	UserID string
	Roles  []string
}

func (id Identity) Anonymous() bool { return id.UserID == "" }

func (id Identity) HasRole(role string) bool { return slices.Contains(id.Roles, role) }

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the anonymous identity when none was set.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

type Authenticator struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
	leeway  time.Duration
	log     *zap.Logger
}

// NewHMAC verifies HS256 tokens signed with secret.
func NewHMAC(secret, issuer string, log *zap.Logger) *Authenticator {
	key := []byte(secret)
	return &Authenticator{
		keyfunc: func(*jwt.Token) (any, error) { return key, nil },
		methods: []string{"HS256"},
		issuer:  issuer,
		leeway:  30 * time.Second,
		log:     log.Named("auth"),
	}
}

// NewJWKS verifies RS256/ES256 tokens against a remote key set.
func NewJWKS(ctx context.Context, url, issuer string, log *zap.Logger) (*Authenticator, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("jwks %s: %w", url, err)
	}
	return &Authenticator{
		keyfunc: k.Keyfunc,
		methods: []string{"RS256", "ES256"},
		issuer:  issuer,
		leeway:  30 * time.Second,
		log:     log.Named("auth"),
	}, nil
}

var errMalformed = errors.New("expected Authorization: Bearer <token>")

func (a *Authenticator) Parse(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(a.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, a.keyfunc, opts...); err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Roles: claims.Roles}, nil
}

// Middleware attaches the identity of a bearer token. Requests without an
// Authorization header pass through as anonymous; bad tokens get 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tok == "" {
			unauthorized(w, errMalformed.Error())
			return
		}
		id, err := a.Parse(tok)
		if err != nil {
			a.log.Debug("token rejected", zap.Error(err))
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole lets through only identities holding role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			switch {
			case id.Anonymous():
				unauthorized(w, "authentication required")
			case !id.HasRole(role):
				writeError(w, http.StatusForbidden, "forbidden", "missing role "+role)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	writeError(w, http.StatusUnauthorized, "unauthorized", msg)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}
