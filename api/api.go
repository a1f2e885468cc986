package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/oidclogin"
	"github.com/MrEthical07/authgate/session"
)

// API exposes the gateway's HTTP endpoints.
type API struct {
	gw         *authgate.Gateway
	sessions   session.Store
	sessionTTL time.Duration
	oidc       *oidclogin.Completer
	logger     *slog.Logger
}

// Option configures the API instance.
type Option func(*API)

// WithSessionStore lets protected routes authenticate with a session cookie.
func WithSessionStore(store session.Store) Option {
	return func(a *API) {
		a.sessions = store
	}
}

// WithOIDC enables POST /authn/oidc/session, which exchanges a verified ID
// token for a session cookie. It requires a session store.
func WithOIDC(c *oidclogin.Completer, sessionTTL time.Duration) Option {
	return func(a *API) {
		a.oidc = c
		a.sessionTTL = sessionTTL
	}
}

// WithLogger sets the logger for unexpected handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// New creates a new API instance.
func New(gw *authgate.Gateway, opts ...Option) *API {
	a := &API{gw: gw}
	for _, opt := range opts {
		opt(a)
	}
	if a.sessionTTL <= 0 {
		a.sessionTTL = 8 * time.Hour
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", a.Healthz)
	r.Get("/authn/service/challenge", a.CreateChallenge)
	r.Get("/authn/service/token", a.CreateToken)

	authOpts := []middleware.Option{middleware.WithErrorWriter(writeError)}
	if a.sessions != nil {
		authOpts = append(authOpts, middleware.WithSessionStore(a.sessions))
	}
	authenticated := r.With(middleware.Authenticate(a.gw, authOpts...))
	authenticated.Get("/authn/whoami", a.WhoAmI)
	authenticated.With(middleware.RequireService(authOpts...)).Get("/authn/service/whoami", a.WhoAmI)

	if a.oidc != nil && a.sessions != nil {
		r.Post("/authn/oidc/session", a.CreateOIDCSession)
	}
	if a.sessions != nil {
		r.Post("/authn/anonymous/session", a.CreateAnonymousSession)
		r.Post("/authn/logout", a.Logout)
	}

	if a.gw.Metrics().Enabled() {
		r.Handle("/metrics", prometheus.New(a.gw).Handler())
	}

	return r
}
