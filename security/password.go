// Package security holds the credential and token primitives used by the
// authentication flow: bcrypt password hashing with a legacy migration path,
// and HMAC-signed access tokens.
//
// Both Verifier and TokenService are immutable once constructed and safe for
// concurrent use.
package security

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// LegacyCheck reports whether secret matches a stored value encoded under a
// scheme that is being phased out.
type LegacyCheck func(secret, stored string) bool

// VerificationOutcome is the result of Verify.
type VerificationOutcome struct {
	Valid        bool
	ShouldRehash bool
}

// Verifier hashes and verifies passwords with bcrypt.
type Verifier struct {
	cost int
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithCost sets the bcrypt work factor. Out of range values are ignored.
func WithCost(cost int) VerifierOption {
	return func(v *Verifier) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			v.cost = cost
		}
	}
}

// NewVerifier creates a Verifier using DefaultBcryptCost unless overridden.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{cost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Cost returns the configured work factor.
func (v *Verifier) Cost() int {
	return v.cost
}

// Hash encodes secret under the current scheme. It only fails for input
// bcrypt refuses, such as secrets longer than 72 bytes.
func (v *Verifier) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks secret against stored. Internal errors count as a mismatch
// and are never returned. A match through legacy always asks for a rehash.
func (v *Verifier) Verify(secret, stored string, legacy LegacyCheck) VerificationOutcome {
	if v.compare(secret, stored) {
		return VerificationOutcome{Valid: true, ShouldRehash: v.NeedsRehash(stored)}
	}

	if legacy != nil && safeLegacyCheck(legacy, secret, stored) {
		return VerificationOutcome{Valid: true, ShouldRehash: true}
	}

	return VerificationOutcome{}
}

// NeedsRehash reports whether stored was produced with a weaker work factor
// than the one currently configured.
func (v *Verifier) NeedsRehash(stored string) bool {
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return true
	}
	return cost < v.cost
}

func (v *Verifier) compare(secret, stored string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
}

func safeLegacyCheck(check LegacyCheck, secret, stored string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return check(secret, stored)
}
