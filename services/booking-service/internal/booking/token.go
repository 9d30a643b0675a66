package booking

import (
	"crypto/rand"
	"encoding/base64"
)

// NewPublicToken returns an opaque, URL-safe, unguessable token that keys
// all anonymous self-service access to one appointment. Tokens are
// generated once at booking time and never rotated or expired.
func NewPublicToken() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
