package override

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewManager(string(hash), "secret", ttl)
}

func TestManager_VerifyPIN(t *testing.T) {
	m := newTestManager(t, time.Minute)

	assert.NoError(t, m.VerifyPIN("1234"))
	assert.ErrorIs(t, m.VerifyPIN("0000"), ErrPINMismatch)
	assert.ErrorIs(t, m.VerifyPIN(""), ErrPINMismatch)
}

func TestManager_VerifyPIN_NotConfigured(t *testing.T) {
	m := NewManager("", "secret", time.Minute)
	assert.ErrorIs(t, m.VerifyPIN("1234"), ErrNotConfigured)
}

func TestManager_TokenRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, err := m.IssueToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, m.ValidateToken(token, 42))
}

func TestManager_ValidateToken_WrongSale(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, err := m.IssueToken(42)
	require.NoError(t, err)

	// A token never authorizes a different sale.
	assert.ErrorIs(t, m.ValidateToken(token, 43), ErrTokenInvalid)
}

func TestManager_ValidateToken_Expired(t *testing.T) {
	m := newTestManager(t, -time.Second)

	token, err := m.IssueToken(42)
	require.NoError(t, err)

	assert.ErrorIs(t, m.ValidateToken(token, 42), ErrTokenInvalid)
}

func TestManager_ValidateToken_WrongSecret(t *testing.T) {
	m := newTestManager(t, time.Minute)
	other := NewManager("", "another-secret", time.Minute)

	token, err := m.IssueToken(42)
	require.NoError(t, err)

	assert.ErrorIs(t, other.ValidateToken(token, 42), ErrTokenInvalid)
	assert.ErrorIs(t, m.ValidateToken("not-a-token", 42), ErrTokenInvalid)
}
