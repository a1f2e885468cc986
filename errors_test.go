package authgate

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrMissingParameter, http.StatusBadRequest},
		{ErrMissingCredentialHeader, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrMalformedCredentialHeader), http.StatusBadRequest},
		{ErrServiceNotFound, http.StatusUnauthorized},
		{ErrInvalidSecret, http.StatusUnauthorized},
		{ErrInvalidChallengeHash, http.StatusUnauthorized},
		{ErrChallengeNotFound, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{fmt.Errorf("%w: bad", ErrInvalidSignature), http.StatusUnauthorized},
		{ErrClientNotFound, http.StatusUnauthorized},
		{ErrMechanismDisabled, http.StatusUnauthorized},
		{ErrNotAuthenticated, http.StatusUnauthorized},
		{ErrSessionUnrecognized, http.StatusUnauthorized},
		{ErrChallengeRateLimited, http.StatusTooManyRequests},
		{ErrKeyResolution, http.StatusInternalServerError},
		{ErrChallengeStoreUnavailable, http.StatusInternalServerError},
		{ErrSessionStoreUnavailable, http.StatusInternalServerError},
		{ErrGatewayNotReady, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsAuthFailure(t *testing.T) {
	if !IsAuthFailure(ErrInvalidSignature) {
		t.Fatal("invalid signature is an auth failure")
	}
	if IsAuthFailure(ErrKeyResolution) {
		t.Fatal("key resolution is an infrastructure fault")
	}
}
