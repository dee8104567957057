package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const inviteCodeGroup = 4

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateInviteCode returns a random standing invite code such as
// "K7QM-2XRD-PW4A-J9TB". It carries 80 bits of entropy.
func GenerateInviteCode() (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := inviteEncoding.EncodeToString(raw)
	groups := make([]string, 0, len(encoded)/inviteCodeGroup)
	for i := 0; i < len(encoded); i += inviteCodeGroup {
		groups = append(groups, encoded[i:i+inviteCodeGroup])
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeInviteCode canonicalizes a code typed by a user: surrounding
// whitespace is dropped and letters are upper-cased.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
