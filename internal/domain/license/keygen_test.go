package license

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empireos/entitlement-api/internal/ierr"
)

var keyPattern = regexp.MustCompile(`^ENT-[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`)

func TestGenerateKeyFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		key, err := GenerateKey("ENT")
		require.NoError(t, err)
		require.Regexp(t, keyPattern, key)
		require.False(t, strings.ContainsAny(key[4:], "IO01"), "key %s contains an ambiguous character", key)
	}
}

func TestGenerateKeyUsesPrefix(t *testing.T) {
	key, err := GenerateKey("MFG")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "MFG-"))
}

func TestGenerateKeyRejectsBadPrefix(t *testing.T) {
	for _, prefix := range []string{"", "EN", "ENTX", "ent", "E1T", "E-T"} {
		_, err := GenerateKey(prefix)
		require.Error(t, err, "prefix %q", prefix)
		require.True(t, errors.Is(err, ierr.ErrValidation), "prefix %q", prefix)
	}
}

func TestGenerateKeyDraws(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, err := GenerateKey("PRO")
		require.NoError(t, err)
		seen[key] = struct{}{}
	}
	// 32^12 combinations; 100 draws colliding would mean a broken generator.
	require.Len(t, seen, 100)
}
