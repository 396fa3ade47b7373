package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orbitdrive/internal/domain"
)

func newTestManager(ttl time.Duration) *TokenManager {
	return NewTokenManager(&Config{JWTSecret: "test-secret", TokenTTL: ttl})
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	tm := newTestManager(time.Hour)
	user := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	token, err := tm.Issue(user)
	require.NoError(t, err)

	principal, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.True(t, principal.IsAdmin())
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	tm := newTestManager(time.Hour)
	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}

	token, err := tm.Issue(user)
	require.NoError(t, err)

	_, err = tm.Verify(token + "garbage")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	other := NewTokenManager(&Config{JWTSecret: "different-secret", TokenTTL: time.Hour})
	_, err = other.Verify(token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = tm.Verify("not a token at all")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tm := newTestManager(-time.Minute)
	user := &domain.User{ID: uuid.New(), Role: domain.RoleUser}

	token, err := tm.Issue(user)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	tm := newTestManager(time.Hour)
	user := &domain.User{ID: uuid.New(), Role: domain.Role("superuser")}

	token, err := tm.Issue(user)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}
