package license

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/empireos/entitlement-api/internal/ierr"
)

// keyAlphabet excludes the visually ambiguous characters I, O, 0 and 1 so
// keys survive being read over the phone or typed from a printout.
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keyGroups    = 3
	keyGroupSize = 4
)

// GenerateKey produces a license key of the form PREFIX-XXXX-XXXX-XXXX from a
// three-letter uppercase prefix. Each draw is independent; uniqueness against
// already-issued keys is the caller's responsibility (re-draw on collision).
func GenerateKey(prefix string) (string, error) {
	if len(prefix) != 3 || strings.ContainsFunc(prefix, func(r rune) bool { return r < 'A' || r > 'Z' }) {
		return "", fmt.Errorf("%w: key prefix must be 3 uppercase letters, got %q", ierr.ErrValidation, prefix)
	}

	raw := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes for license key: %w", err)
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
