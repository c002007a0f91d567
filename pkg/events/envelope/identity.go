package envelope

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the lowercase hex SHA-256 of raw, 64 characters long.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ResolveEventID returns the producer-assigned id when present, otherwise the
// fingerprint of the raw message. Byte-identical redeliveries therefore always
// resolve to the same id.
func ResolveEventID(env *Envelope, raw []byte) string {
	if env != nil && !isBlank(env.EventID) {
		return env.EventID
	}
	return Fingerprint(raw)
}
