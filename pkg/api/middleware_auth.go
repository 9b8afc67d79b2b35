package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

type contextKey string

const principalContextKey contextKey = "principal"

// principal is what the clearance middleware resolved for one request.
// With auth disabled every caller is an unauthenticated principal at
// full clearance.
type principal struct {
	Clearance     audit.SecurityLevel
	OperatorID    string
	Username      string
	Authenticated bool
}

// clearanceMiddleware resolves the caller's security level from a
// Bearer token or an X-API-Key header and stores it on the context.
// A presented-but-invalid credential is a 401; no credential degrades
// to public rather than failing, so reads stay open.
func (s *Server) clearanceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jwtManager == nil {
			ctx := context.WithValue(r.Context(), principalContextKey,
				principal{Clearance: audit.LevelClassified})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Auth endpoints manage their own credentials
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := s.jwtManager.ValidateToken(r.Context(), token)
			if err != nil {
				s.logger.Debug("token rejected", logging.Error(err))
				s.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal{
				Clearance:     claims.Clearance,
				OperatorID:    claims.OperatorID,
				Username:      claims.Username,
				Authenticated: true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if keyString := r.Header.Get("X-API-Key"); keyString != "" {
			key, err := s.apiKeys.ValidateKey(keyString)
			if err != nil {
				s.logger.Debug("api key rejected", logging.Error(err))
				s.respondError(w, http.StatusUnauthorized, "Invalid or expired API key")
				return
			}
			s.apiKeys.UpdateLastUsed(key.ID)
			ctx := context.WithValue(r.Context(), principalContextKey, principal{
				Clearance:     key.Clearance(),
				OperatorID:    key.OperatorID,
				Authenticated: true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey,
			principal{Clearance: audit.LevelPublic})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalFrom reads the resolved principal; context misses mean the
// most restrictive view.
func principalFrom(ctx context.Context) principal {
	if p, ok := ctx.Value(principalContextKey).(principal); ok {
		return p
	}
	return principal{Clearance: audit.LevelPublic}
}

// authorize gates a mutation on the caller's clearance. Anonymous
// callers get a 401 so clients know to present credentials; cleared-low
// callers get a 403.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, level audit.SecurityLevel) bool {
	p := principalFrom(r.Context())
	if p.Clearance >= level {
		return true
	}
	if !p.Authenticated {
		s.respondError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	s.respondError(w, http.StatusForbidden, "Insufficient clearance")
	return false
}
