package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/golang-jwt/jwt/v4"
)

type accessClaims struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(user *domain.User) (string, error) {
	now := t.now()
	claims := accessClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies the signature and expiry of a token and returns the
// caller it was issued to.
func (t *Tokens) Authenticate(token string) (domain.Principal, error) {
	var claims accessClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return domain.Principal{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return domain.Principal{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.UserID <= 0 {
		return domain.Principal{}, fmt.Errorf("%w: token has no user", domain.ErrUnauthorized)
	}
	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.Principal{UserID: claims.UserID, Role: role}, nil
}

// AdminKey guards administrative operations with a shared API key.
type AdminKey struct {
	key []byte
}

func NewAdminKey(key string) AdminKey {
	return AdminKey{key: []byte(key)}
}

func (a AdminKey) Authorize(presented string) error {
	if len(a.key) == 0 || subtle.ConstantTimeCompare(a.key, []byte(presented)) != 1 {
		return fmt.Errorf("%w: invalid API key", domain.ErrUnauthorized)
	}
	return nil
}
