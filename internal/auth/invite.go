package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const inviteAudience = "workspace-invite"

// InviteClaims binds a workspace and the role granted on acceptance.
type InviteClaims struct {
	jwt.RegisteredClaims
	WorkspaceID uint64 `json:"wid"`
	Role        string `json:"role"`
	InvitedBy   uint64 `json:"inv"`
}

// InviteTokens signs stateless, time-limited workspace invitations. Invite
// tokens use their own secret and audience so a session token can never be
// presented as an invite and vice versa.
type InviteTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewInviteTokens creates an invite token signer.
func NewInviteTokens(secret []byte, ttl time.Duration) *InviteTokens {
	return &InviteTokens{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (t *InviteTokens) WithClock(now func() time.Time) *InviteTokens {
	t.now = now
	return t
}

// Issue signs a token for workspaceID granting role.
func (t *InviteTokens) Issue(workspaceID uint64, role string, invitedBy uint64) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := &InviteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{inviteAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		WorkspaceID: workspaceID,
		Role:        role,
		InvitedBy:   invitedBy,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign invite token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, audience and expiry and returns the claims.
func (t *InviteTokens) Parse(token string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	if err := parse(token, claims, t.secret, inviteAudience, t.now); err != nil {
		return nil, err
	}
	if claims.WorkspaceID == 0 || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
