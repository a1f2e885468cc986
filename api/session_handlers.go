package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/oidclogin"
	"github.com/MrEthical07/authgate/session"
)

// CreateOIDCSession handles POST /authn/oidc/session. The id_token form value
// is verified, normalized and stored; the response sets the session cookie.
func (a *API) CreateOIDCSession(w http.ResponseWriter, r *http.Request) {
	raw := r.PostFormValue("id_token")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "id_token is required")
		return
	}

	key, sess, err := a.oidc.CompleteAndSerialize(r.Context(), raw)
	if err != nil {
		if errors.Is(err, oidclogin.ErrInvalidIDToken) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		a.mapError(w, r, http.StatusInternalServerError, err)
		return
	}

	a.startSession(w, r, key, sess)
}

// CreateAnonymousSession handles POST /authn/anonymous/session for visitors
// who continue without logging in.
func (a *API) CreateAnonymousSession(w http.ResponseWriter, r *http.Request) {
	sess := oidclogin.Anonymous()
	key, err := a.gw.SerializeSession(sess)
	if err != nil {
		a.mapError(w, r, http.StatusInternalServerError, err)
		return
	}
	a.startSession(w, r, key, sess)
}

// startSession stores key under a fresh session ID and sets the cookie.
func (a *API) startSession(w http.ResponseWriter, r *http.Request, key string, sess *authgate.UserSession) {
	sid := session.NewSessionID()
	if err := a.sessions.Put(r.Context(), sid, key, a.sessionTTL); err != nil {
		a.mapError(w, r, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.DefaultSessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(a.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sess)
}

// Logout handles POST /authn/logout by deleting the stored session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.DefaultSessionCookie); err == nil && c.Value != "" {
		if err := a.sessions.Delete(r.Context(), c.Value); err != nil {
			a.mapError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.DefaultSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
