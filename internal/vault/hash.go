// Package vault provides the keyed-hash primitives used for stored
// credentials and bearer tokens.
package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Keyed computes HMAC-SHA256 digests over a fixed server secret. Password
// hashes and access tokens are both derived this way; the practice server
// deliberately does not implement a standard token scheme.
type Keyed struct {
	secret []byte
}

// New creates a keyed hasher over the given server secret.
func New(secret string) *Keyed {
	return &Keyed{secret: []byte(secret)}
}

// Hash returns the hex-encoded HMAC-SHA256 digest of s.
func (k *Keyed) Hash(s string) string {
	mac := hmac.New(sha256.New, k.secret)
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil))
}
