package authgate

import (
	"errors"
	"net/http"
)

var (
	// ErrServiceNotFound reports a service name absent from the configured accounts.
	ErrServiceNotFound = errors.New("service not found")
	// ErrInvalidSecret reports a basic credential whose secret does not match.
	ErrInvalidSecret = errors.New("invalid secret")
	// ErrInvalidChallengeHash reports a challenge answer that does not match. The
	// challenge is consumed regardless.
	ErrInvalidChallengeHash = errors.New("invalid challenge hash")
	// ErrChallengeNotFound covers never-issued, already-consumed and expired
	// challenges alike.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrTokenExpired reports a correctly signed bearer token past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature reports any other bearer token verification failure.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrClientNotFound reports a validly signed client-credentials token whose
	// client is not in the allow-list.
	ErrClientNotFound = errors.New("client not found")
	// ErrMechanismDisabled reports use of an authentication mechanism that is switched off.
	ErrMechanismDisabled = errors.New("authentication mechanism disabled")
	// ErrMissingCredentialHeader reports a required Authorization header that is absent.
	ErrMissingCredentialHeader = errors.New("missing credential header")
	// ErrMalformedCredentialHeader reports an Authorization header with the wrong shape.
	ErrMalformedCredentialHeader = errors.New("malformed credential header")
	// ErrKeyResolution reports a failure to obtain the verification key from the remote key set.
	ErrKeyResolution = errors.New("signing key resolution failed")
	// ErrNotAuthenticated reports a request carrying neither credentials nor a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingParameter reports a missing required request parameter.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrChallengeRateLimited reports challenge issuance over the configured budget.
	ErrChallengeRateLimited = errors.New("challenge issuance rate limited")
	// ErrChallengeStoreUnavailable wraps challenge cache backend failures.
	ErrChallengeStoreUnavailable = errors.New("challenge store unavailable")
	// ErrSessionStoreUnavailable wraps failures of the session lookup backend.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionUnrecognized reports a session that no registered codec accepts.
	ErrSessionUnrecognized = errors.New("session not recognized")
	// ErrGatewayNotReady reports use of a nil or closed gateway.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)

// StatusFor maps a gateway error to the HTTP status the transport should send.
// Unknown errors map to 500.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingParameter),
		errors.Is(err, ErrMissingCredentialHeader),
		errors.Is(err, ErrMalformedCredentialHeader):
		return http.StatusBadRequest
	case errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrInvalidSecret),
		errors.Is(err, ErrInvalidChallengeHash),
		errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrMechanismDisabled),
		errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrSessionUnrecognized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrChallengeRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsAuthFailure reports whether err is an authentication decision rather than
// an infrastructure fault.
func IsAuthFailure(err error) bool {
	return StatusFor(err) == http.StatusUnauthorized
}
