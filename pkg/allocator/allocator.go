// Package allocator derives physical database names for pooled-mode
// datasources inside a shared multi-tenant cluster.
package allocator

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	ownerPrefixLen = 8
	suffixByteLen  = 8 // 16 hex characters
)

// Allocate derives a globally unique physical database name from an
// owner-derived prefix, the sanitized logical name, and a random
// low-collision suffix. The suffix makes accidental cross-tenant collisions
// practically impossible without a uniqueness round-trip to the backing
// store. Once assigned to a record the value is immutable: tenant data is
// stored under this name and renaming would orphan it.
func Allocate(ownerHint, logicalName string) string {
	prefix := sanitize(ownerHint)
	if at := strings.IndexByte(ownerHint, '@'); at > 0 {
		prefix = sanitize(ownerHint[:at])
	}
	if len(prefix) > ownerPrefixLen {
		prefix = prefix[:ownerPrefixLen]
	}

	name := sanitize(logicalName)

	suffix := make([]byte, suffixByteLen)
	// rand.Read on the crypto source never fails in practice; a short read
	// would only shorten the suffix, never reuse one.
	_, _ = rand.Read(suffix)

	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, hex.EncodeToString(suffix))
	return strings.Join(parts, "_")
}

// sanitize lowercases and strips everything but letters and digits, in
// particular dashes and underscores, so the separator structure of the
// generated name stays unambiguous.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
