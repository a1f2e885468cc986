package middleware

import (
	"net/http"
	"slices"

	"github.com/MrEthical07/authgate"
)

// RequireService rejects requests whose session is not a service identity.
// It must be mounted after [Authenticate].
func RequireService(opts ...Option) func(http.Handler) http.Handler {
	return require(opts, func(s *authgate.UserSession) bool { return s.IsService })
}

// RequireKind rejects requests authenticated by any strategy other than kinds.
func RequireKind(kinds []authgate.StrategyKind, opts ...Option) func(http.Handler) http.Handler {
	return require(opts, func(s *authgate.UserSession) bool { return slices.Contains(kinds, s.Kind) })
}

func require(opts []Option, allow func(*authgate.UserSession) bool) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				o.failure(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !allow(sess) {
				o.failure(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
