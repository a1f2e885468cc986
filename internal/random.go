package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const nonceRawSize = 48

// NewNonce returns 48 bytes of crypto/rand output, base64url encoded without
// padding. An error means the entropy source failed and is not recoverable.
func NewNonce() (string, error) {
	var raw [nonceRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ChallengeDigest computes hex(HMAC-SHA256(key=secret, message=challenge)).
func ChallengeDigest(secret, challenge string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestEqual reports whether two hex digests match. The comparison is
// constant-time over the decoded bytes; malformed hex never matches.
func DigestEqual(expected, provided string) bool {
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
