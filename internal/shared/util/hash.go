package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// OwnerPrefix returns the object-key prefix for a journal owner. Owner names
// are hashed so they never show up in bucket listings, and are compared
// case-insensitively after trimming.
func OwnerPrefix(owner string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(owner))))
	return hex.EncodeToString(sum[:16])
}
