package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dunamismax/blastflow/internal/auth"
	"github.com/dunamismax/blastflow/internal/domain"
	"go.uber.org/zap"
)

type userKey struct{}

func userFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(domain.User)
	return u, ok
}

// requireUser authenticates the request with HTTP basic auth.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w, r)
			return
		}

		user, err := s.auth.Authenticate(r.Context(), username, password)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				s.logger.Error("authenticate user", zap.String("username", username), zap.Error(err))
				writeError(w, r, http.StatusInternalServerError, "authentication failed")
				return
			}
			unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="blastflow"`)
	writeError(w, r, http.StatusUnauthorized, "authentication required")
}
