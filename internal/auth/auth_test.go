package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService([]byte("session-secret"), time.Hour)

	token, err := svc.GenerateToken(42, "alice@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, 3600, svc.TTLSeconds())
}

func TestJWTService_RejectsExpiredAndForged(t *testing.T) {
	expired := NewJWTService([]byte("session-secret"), -time.Minute)
	token, err := expired.GenerateToken(1, "a@example.com")
	require.NoError(t, err)

	_, err = expired.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	good := NewJWTService([]byte("session-secret"), time.Hour)
	other := NewJWTService([]byte("another-secret"), time.Hour)
	token, err = other.GenerateToken(1, "a@example.com")
	require.NoError(t, err)

	_, err = good.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = good.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInviteTokens_RoundTrip(t *testing.T) {
	tokens := NewInviteTokens([]byte("invite-secret"), 7*24*time.Hour)

	token, expiresAt, err := tokens.Issue(7, "member", 3)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.WorkspaceID)
	assert.Equal(t, "member", claims.Role)
	assert.Equal(t, uint64(3), claims.InvitedBy)
	assert.NotEmpty(t, claims.ID)
}

func TestInviteTokens_Expiry(t *testing.T) {
	issuedAt := time.Now()
	clock := issuedAt
	tokens := NewInviteTokens([]byte("invite-secret"), time.Second).
		WithClock(func() time.Time { return clock })

	token, _, err := tokens.Issue(1, "member", 1)
	require.NoError(t, err)

	clock = issuedAt.Add(2 * time.Second)
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	secret := []byte("shared-secret")
	sessions := NewJWTService(secret, time.Hour)
	invites := NewInviteTokens(secret, time.Hour)

	sessionToken, err := sessions.GenerateToken(1, "a@example.com")
	require.NoError(t, err)
	_, err = invites.Parse(sessionToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	inviteToken, _, err := invites.Issue(1, "member", 1)
	require.NoError(t, err)
	_, err = sessions.ValidateToken(inviteToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", hash)

	assert.True(t, CheckPassword(hash, "supersecret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
