// Package override implements the supervisor authorization step used when a
// settlement does not reach the minimum deposit. A verified PIN yields a
// short-lived token bound to one sale; submission accepts that token to
// bypass the deposit check only.
package override

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotConfigured is returned when no supervisor PIN hash is set.
	ErrNotConfigured = errors.New("override: supervisor PIN is not configured")
	// ErrPINMismatch is returned when the PIN does not match the stored hash.
	ErrPINMismatch = errors.New("override: PIN mismatch")
	// ErrTokenInvalid is returned for malformed, expired or mis-scoped tokens.
	ErrTokenInvalid = errors.New("override: invalid authorization token")
)

// Claims are the JWT claims of an override token.
type Claims struct {
	SaleID int64 `json:"sale_id"`
	jwt.RegisteredClaims
}

// Manager verifies supervisor PINs and issues sale-scoped override tokens.
type Manager struct {
	pinHash []byte
	secret  []byte
	ttl     time.Duration
}

// NewManager creates an override manager. pinHash is a bcrypt hash of the
// supervisor PIN; an empty hash disables overrides entirely.
func NewManager(pinHash, secret string, ttl time.Duration) *Manager {
	return &Manager{
		pinHash: []byte(pinHash),
		secret:  []byte(secret),
		ttl:     ttl,
	}
}

// VerifyPIN checks the supervisor PIN against the configured hash.
func (m *Manager) VerifyPIN(pin string) error {
	if len(m.pinHash) == 0 {
		return ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(m.pinHash, []byte(pin)); err != nil {
		return ErrPINMismatch
	}
	return nil
}

// IssueToken creates a token authorizing a below-minimum settlement of the
// given sale.
func (m *Manager) IssueToken(saleID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		SaleID: saleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "pos-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken checks the token signature, expiry and sale scope.
func (m *Manager) ValidateToken(tokenString string, saleID int64) error {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return ErrTokenInvalid
	}
	if claims.SaleID != saleID {
		return ErrTokenInvalid
	}
	return nil
}
