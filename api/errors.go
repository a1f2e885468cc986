package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authgate"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError writes err under status. Authentication failures always carry the
// same body and infrastructure failures never expose their cause.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, status int, err error) {
	switch status {
	case http.StatusBadRequest:
		writeError(w, status, err.Error())
	case http.StatusNotFound:
		writeError(w, status, "not found")
	case http.StatusUnauthorized:
		writeError(w, status, "unauthorized")
	case http.StatusTooManyRequests:
		writeError(w, status, "too many requests")
	default:
		a.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func challengeStatus(err error) int {
	if errors.Is(err, authgate.ErrServiceNotFound) {
		return http.StatusNotFound
	}
	return authgate.StatusFor(err)
}

func tokenStatus(err error) int {
	if errors.Is(err, authgate.ErrInvalidChallengeHash) || errors.Is(err, authgate.ErrChallengeNotFound) {
		return http.StatusBadRequest
	}
	return authgate.StatusFor(err)
}
