// Package auth implements identity verification against the remote
// authentication service.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	domainauth "github.com/myshop/storefront/internal/domain/auth"
)

var _ domainauth.Verifier = (*RemoteVerifier)(nil)

// RemoteVerifier resolves bearer tokens by asking the auth service who they
// belong to. The auth service owns token issuance and expiry; this client
// only consumes its answer.
type RemoteVerifier struct {
	baseURL string
	client  *http.Client
}

// NewRemoteVerifier creates a verifier for the auth service at baseURL.
func NewRemoteVerifier(baseURL string) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Verify asks the auth service for the identity behind the token. It returns
// auth.ErrUnauthenticated when the service rejects the token.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*domainauth.Identity, error) {
	if token == "" {
		return nil, domainauth.ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build auth request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call auth service")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domainauth.ErrUnauthenticated
	default:
		return nil, errors.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var body struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode auth response")
	}
	if body.UserID == "" {
		return nil, domainauth.ErrUnauthenticated
	}

	return &domainauth.Identity{
		CustomerID: body.UserID,
		Role:       body.Role,
	}, nil
}
