package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jobboard/apiserver/internal/auth"
)

// Sessions verifies session cookies for API routes and revokes them on
// logout.
type Sessions struct {
	tokens  *auth.TokenService
	revoker auth.Revoker
	logger  *slog.Logger
}

// NewSessions constructs Sessions. A nil revoker disables revocation.
func NewSessions(tokens *auth.TokenService, revoker auth.Revoker, logger *slog.Logger) *Sessions {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	return &Sessions{tokens: tokens, revoker: revoker, logger: logger}
}

// Require rejects requests without a valid, unrevoked session and puts the
// verified identity into the request context.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		identity, ok := s.tokens.Authenticate(token)
		if !ok {
			s.logRejected(r, token, "invalid token")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		revoked, err := s.revoker.IsRevoked(r.Context(), identity.TokenID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "revocation lookup failed",
				"user_id", identity.UserID,
				"error", err,
			)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if revoked {
			s.logRejected(r, token, "revoked")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// End revokes the session carried by r, if it is still valid. It never fails
// the caller; the cookie is cleared regardless.
func (s *Sessions) End(ctx context.Context, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return
	}
	identity, ok := s.tokens.Authenticate(token)
	if !ok {
		return
	}
	if err := s.revoker.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke session",
			"user_id", identity.UserID,
			"error", err,
		)
	}
}

func (s *Sessions) logRejected(r *http.Request, token, reason string) {
	attrs := []any{"path", r.URL.Path, "reason", reason}
	if claimed, ok := s.tokens.Inspect(token); ok {
		attrs = append(attrs, "claimed_user_id", claimed.UserID)
	}
	s.logger.WarnContext(r.Context(), "session rejected", attrs...)
}
