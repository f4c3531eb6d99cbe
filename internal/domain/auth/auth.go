// Package auth defines the minimal identity contract the storefront needs
// from the external authentication service: who is making the request, so an
// order can be attached to them. Token issuance, storage, and role mechanics
// stay with the remote collaborator.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when the presented credential is missing,
// expired, or rejected by the auth service.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity describes an authenticated caller.
type Identity struct {
	CustomerID string
	Role       string
}

// Verifier resolves a bearer token to an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
