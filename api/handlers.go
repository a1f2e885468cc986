package api

import (
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
)

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateChallenge handles GET /authn/service/challenge?serviceName=X.
func (a *API) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("serviceName")
	if name == "" {
		writeError(w, http.StatusBadRequest, "serviceName is required")
		return
	}

	challenge, err := a.gw.CreateChallenge(requestContext(r), name)
	if err != nil {
		a.mapError(w, r, challengeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ChallengeResponse{Challenge: challenge})
}

// CreateToken handles GET /authn/service/token?serviceName=X with an
// "Authorization: ApiKey <hex>" header answering the outstanding challenge.
func (a *API) CreateToken(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("serviceName")
	if name == "" {
		writeError(w, http.StatusBadRequest, "serviceName is required")
		return
	}
	hash, err := authgate.ParseAPIKeyHeader(r.Header.Get("Authorization"))
	if err != nil {
		a.mapError(w, r, http.StatusBadRequest, err)
		return
	}

	tok, err := a.gw.CreateToken(requestContext(r), name, hash)
	if err != nil {
		a.mapError(w, r, tokenStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// WhoAmI returns the normalized session of the authenticated caller.
func (a *API) WhoAmI(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
