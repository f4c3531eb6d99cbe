package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/myshop/storefront/internal/domain/auth"
)

// authenticated wraps next with bearer-token verification. The verified
// identity and the raw token are stored in the request context; the token is
// forwarded to collaborator services on outbound calls.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			zctx.From(r.Context()).Error("identity verification failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "auth service unavailable")
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		ctx = auth.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

// customerID returns the authenticated customer's ID. Routes wrapped by
// authenticated always have one.
func customerID(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.CustomerID
	}
	return ""
}
