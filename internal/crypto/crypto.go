package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex SHA-256 of parts joined by NUL bytes, so
// ("ab", "c") and ("a", "bc") never collide. It is unkeyed: the value only
// stands in for arbitrary-length keys in a unique index and must stay the
// same across deployments and secret rotations.
func Digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
