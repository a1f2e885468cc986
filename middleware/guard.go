package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/session"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// DefaultSessionCookie is the cookie that carries the session ID.
const DefaultSessionCookie = "authgate_session"

type sessionContextKey struct{}

// SessionFromContext returns the session attached by [Authenticate].
func SessionFromContext(ctx context.Context) (*authgate.UserSession, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*authgate.UserSession)
	return s, ok && s != nil
}

// ErrorWriter renders a rejected request. message is always generic.
type ErrorWriter func(w http.ResponseWriter, status int, message string)

func plainError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

type options struct {
	cookie  string
	store   session.Store
	failure ErrorWriter
}

func buildOptions(opts []Option) options {
	o := options{cookie: DefaultSessionCookie, failure: plainError}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the middleware in this package.
type Option func(*options)

// WithSessionCookie changes the cookie name read for the session ID.
func WithSessionCookie(name string) Option {
	return func(o *options) {
		if name != "" {
			o.cookie = name
		}
	}
}

// WithSessionStore resolves the session cookie through store. Without a store
// sessions are never consulted.
func WithSessionStore(store session.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithErrorWriter replaces the plain-text rejection body.
func WithErrorWriter(fn ErrorWriter) Option {
	return func(o *options) {
		if fn != nil {
			o.failure = fn
		}
	}
}

// Authenticate runs the gateway's strategy dispatcher for every request and
// attaches the resulting session to the request context.
func Authenticate(gw *authgate.Gateway, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gw == nil {
				o.failure(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := authgate.WithClientIP(r.Context(), clientIP(r))
			if id := chimw.GetReqID(r.Context()); id != "" {
				ctx = authgate.WithRequestID(ctx, id)
			}

			creds := authgate.Credentials{
				Authorization: r.Header.Get("Authorization"),
				LoadSession: func(ctx context.Context) (string, bool, error) {
					return lookupSession(ctx, r, o)
				},
			}

			sess, err := gw.Authenticate(ctx, creds)
			if err != nil {
				writeFailure(w, o.failure, err)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lookupSession(ctx context.Context, r *http.Request, o options) (string, bool, error) {
	if o.store == nil {
		return "", false, nil
	}
	cookie, err := r.Cookie(o.cookie)
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}
	key, err := o.store.Get(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return key, true, nil
}

func writeFailure(w http.ResponseWriter, write ErrorWriter, err error) {
	switch authgate.StatusFor(err) {
	case http.StatusBadRequest:
		write(w, http.StatusBadRequest, "bad request")
	case http.StatusUnauthorized:
		write(w, http.StatusUnauthorized, "unauthorized")
	default:
		write(w, http.StatusInternalServerError, "internal error")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
