package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Legacy scheme names accepted by LegacyCheckFor.
const (
	LegacySchemeNone     = "none"
	LegacySchemeSHA256   = "sha256"
	LegacySchemeArgon2id = "argon2id"
)

// LegacyCheckFor returns the LegacyCheck registered under scheme. The empty
// string and "none" yield a nil check.
func LegacyCheckFor(scheme string) (LegacyCheck, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", LegacySchemeNone:
		return nil, nil
	case LegacySchemeSHA256:
		return LegacySHA256, nil
	case LegacySchemeArgon2id:
		return LegacyArgon2id, nil
	default:
		return nil, fmt.Errorf("unknown legacy password scheme: %q", scheme)
	}
}

// LegacySHA256 matches unsalted hex-encoded SHA-256 digests.
func LegacySHA256(secret, stored string) bool {
	expected, err := hex.DecodeString(strings.TrimSpace(stored))
	if err != nil || len(expected) != sha256.Size {
		return false
	}
	sum := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(sum[:], expected) == 1
}

// LegacyArgon2id matches encodings of the form
// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH.
func LegacyArgon2id(secret, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	actual := argon2.IDKey([]byte(secret), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}
