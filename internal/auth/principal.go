package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// PrincipalID derives a stable, loggable identifier for an operator
// token. Raw tokens never appear in logs; the ID is a truncated
// SHA-256 with a "t_" prefix and stays constant across restarts, so
// audit entries for the same credential correlate.
func PrincipalID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "t_" + hex.EncodeToString(sum[:])[:16]
}
