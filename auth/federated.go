package auth

import (
	"context"

	"github.com/upb/patient-service/models"
)

// FederatedBackend is the extension point for identities asserted by an
// external identity provider. It is registered so configuration can name it,
// but it rejects every call.
type FederatedBackend struct{}

// NewFederatedBackend creates a FederatedBackend.
func NewFederatedBackend() *FederatedBackend {
	return &FederatedBackend{}
}

// Authenticate always fails with ErrNotSupported.
func (b *FederatedBackend) Authenticate(ctx context.Context, cred Credential) (*models.User, error) {
	return nil, ErrNotSupported
}
