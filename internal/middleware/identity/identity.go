package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	UserHeader  = "X-User-ID"
	BadgeHeader = "X-Badge-ID"
)

var (
	ErrMissing = errors.New("missing identity")
	ErrInvalid = errors.New("invalid identity")
)

// Identity is the caller as asserted by the upstream gateway. BadgeID is the
// caller's default currency and may be zero.
type Identity struct {
	UserID  int64
	BadgeID int64
}

// Claims is the JWT payload issued by the gateway.
type Claims struct {
	UserID  int64 `json:"user_id"`
	BadgeID int64 `json:"badge_id"`
	jwt.RegisteredClaims
}

type contextKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// NewToken signs an HS256 token for userID, valid for ttl.
func NewToken(secret string, userID, badgeID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		BadgeID: badgeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns the identity it carries.
func ParseToken(secret, tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return Identity{}, fmt.Errorf("%w: token carries no user", ErrInvalid)
	}
	return Identity{UserID: claims.UserID, BadgeID: claims.BadgeID}, nil
}

// Resolve extracts the caller identity. With a secret the request must carry
// a bearer token; without one the gateway headers are trusted.
func Resolve(r *http.Request, secret string) (Identity, error) {
	if secret != "" {
		scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return Identity{}, ErrMissing
		}
		return ParseToken(secret, strings.TrimSpace(tok))
	}

	raw := strings.TrimSpace(r.Header.Get(UserHeader))
	if raw == "" {
		return Identity{}, ErrMissing
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: bad %s", ErrInvalid, UserHeader)
	}
	id := Identity{UserID: userID}
	if raw := strings.TrimSpace(r.Header.Get(BadgeHeader)); raw != "" {
		badgeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || badgeID < 0 {
			return Identity{}, fmt.Errorf("%w: bad %s", ErrInvalid, BadgeHeader)
		}
		id.BadgeID = badgeID
	}
	return id, nil
}

// Middleware rejects requests without a valid identity through onError and
// stores the identity in the request context otherwise.
func Middleware(secret string, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Resolve(r, secret)
			if err != nil {
				if onError != nil {
					onError(w, r, err)
				} else {
					http.Error(w, err.Error(), http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}
