package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/chris/donation-broker/pkg/handlers/respond"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/golang-jwt/jwt"
)

// Headers set by a trusted gateway in front of the service.
const (
	HeaderCallerID   = "X-Caller-Id"
	HeaderCallerRole = "X-Caller-Role"
	HeaderCallerTier = "X-Caller-Tier"
)

// ErrNoCredentials is returned when a request carries no identity at all.
var ErrNoCredentials = errors.New("no credentials supplied")

type callerKey struct{}

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by the Identity middleware.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(models.Caller)
	return c, ok
}

// RequireCaller returns the request's caller or writes a 401.
func RequireCaller(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	c, ok := CallerFrom(r.Context())
	if !ok {
		respond.Unauthenticated(w, "no caller on request")
	}
	return c, ok
}

// IdentityProvider resolves who is making a request. It never grants
// anything; authorization happens in the broker.
type IdentityProvider interface {
	Identify(r *http.Request) (models.Caller, error)
}

func buildCaller(id, role, tier string) (models.Caller, error) {
	if strings.TrimSpace(id) == "" {
		return models.Caller{}, ErrNoCredentials
	}
	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return models.Caller{}, err
	}
	c := models.Caller{Id: id, Role: parsedRole}
	if parsedRole == models.RoleNGO {
		n, err := strconv.Atoi(tier)
		if err != nil {
			return models.Caller{}, fmt.Errorf("invalid tier %q", tier)
		}
		c.Tier = n
	}
	return c, nil
}

// HeaderIdentity trusts identity headers injected by an upstream gateway.
type HeaderIdentity struct{}

func (HeaderIdentity) Identify(r *http.Request) (models.Caller, error) {
	return buildCaller(r.Header.Get(HeaderCallerID), r.Header.Get(HeaderCallerRole), r.Header.Get(HeaderCallerTier))
}

// CallerClaims are the JWT claims carrying a caller. Subject is the caller id.
type CallerClaims struct {
	Role string `json:"role"`
	Tier int    `json:"tier,omitempty"`
	jwt.StandardClaims
}

// JWTIdentity reads an HS256 bearer token.
type JWTIdentity struct {
	Secret []byte
}

func (j JWTIdentity) Identify(r *http.Request) (models.Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return models.Caller{}, ErrNoCredentials
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header {
		return models.Caller{}, errors.New("authorization header must use the Bearer scheme")
	}

	var claims CallerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid token: %w", err)
	}
	return buildCaller(claims.Subject, claims.Role, strconv.Itoa(claims.Tier))
}

// SignToken issues a token for c. Used by tooling and tests.
func (j JWTIdentity) SignToken(c models.Caller, claims jwt.StandardClaims) (string, error) {
	claims.Subject = c.Id
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CallerClaims{Role: string(c.Role), Tier: c.Tier, StandardClaims: claims})
	return token.SignedString(j.Secret)
}

// Identity resolves the caller for every request except the public paths
// and rejects requests it cannot identify.
func Identity(provider IdentityProvider, public ...string) func(next http.Handler) http.Handler {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := provider.Identify(r)
			if err != nil {
				respond.Unauthenticated(w, err.Error())
				return
			}
			noteCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		}
		return http.HandlerFunc(fn)
	}
}
