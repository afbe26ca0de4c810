package identity

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short, stable digest of a credential that is safe to
// put in logs and audit events.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:6])
}
