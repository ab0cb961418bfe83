// Package auth selects and runs the strategy that turns a presented credential
// into a user identity.
//
// Every strategy satisfies Backend. A nil user with a nil error means the
// credential did not identify anyone; callers must not learn why.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/upb/patient-service/models"
)

var (
	// ErrNotSupported is returned by strategies that are declared but not implemented.
	ErrNotSupported = errors.New("authentication backend not supported")

	// ErrUnknownBackend is returned when no strategy is registered for a Kind.
	ErrUnknownBackend = errors.New("unknown authentication backend")
)

// Kind names an authentication strategy.
type Kind string

const (
	KindDatabase  Kind = "database"
	KindFederated Kind = "federated"
)

// ParseKind maps a configuration value to a Kind. Empty selects KindDatabase.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindDatabase:
		return KindDatabase, nil
	case KindFederated:
		return KindFederated, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Credential is what a caller presents at login.
type Credential struct {
	Email    string
	Password string
}

// Backend authenticates a credential.
type Backend interface {
	Authenticate(ctx context.Context, cred Credential) (*models.User, error)
}

// Selector dispatches to the configured Backend.
type Selector struct {
	defaultKind Kind
	backends    map[Kind]Backend
}

// NewSelector creates a Selector. The default kind must have a backend.
func NewSelector(defaultKind Kind, backends map[Kind]Backend) (*Selector, error) {
	registered := make(map[Kind]Backend, len(backends))
	for kind, backend := range backends {
		if backend != nil {
			registered[kind] = backend
		}
	}
	if _, ok := registered[defaultKind]; !ok {
		return nil, fmt.Errorf("%w: no backend registered for default %q", ErrUnknownBackend, defaultKind)
	}
	return &Selector{
		defaultKind: defaultKind,
		backends:    registered,
	}, nil
}

// DefaultKind returns the kind used by Authenticate.
func (s *Selector) DefaultKind() Kind {
	return s.defaultKind
}

// Authenticate runs the default backend.
func (s *Selector) Authenticate(ctx context.Context, cred Credential) (*models.User, error) {
	return s.AuthenticateWith(ctx, s.defaultKind, cred)
}

// AuthenticateWith runs the backend registered for kind.
func (s *Selector) AuthenticateWith(ctx context.Context, kind Kind, cred Credential) (*models.User, error) {
	backend, ok := s.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	return backend.Authenticate(ctx, cred)
}
