package license

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// keyAlphabet excludes ambiguous characters (0/O, 1/I/L) so keys survive
// being read aloud or retyped.
const keyAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	keyGroups    = 4
	keyGroupSize = 4
)

// GenerateKey produces a license key of the form PREFIX-XXXX-XXXX-XXXX-XXXX
// from a cryptographically secure source.
func GenerateKey(prefix string) (string, error) {
	raw := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i, c := range raw {
		if i%keyGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(keyAlphabet[int(c)%len(keyAlphabet)])
	}
	return b.String(), nil
}

// NormalizeKey canonicalizes a user-supplied key for lookup: trimmed and
// upper-cased. Dashes are significant and preserved.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
