package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventChallengeIssued      = "challenge_issued"
	auditEventTokenIssued          = "token_issued"
	auditEventTokenRejected        = "token_rejected"
	auditEventBearerVerified       = "bearer_verified"
	auditEventBasicVerified        = "basic_verified"
	auditEventAuthenticationFailed = "authentication_failed"
)

// AuditErrorCode is the stable, non-sensitive reason recorded on failed events.
type AuditErrorCode string

const (
	auditErrServiceNotFound   AuditErrorCode = "service_not_found"
	auditErrInvalidSecret     AuditErrorCode = "invalid_secret"
	auditErrInvalidHash       AuditErrorCode = "invalid_challenge_hash"
	auditErrChallengeNotFound AuditErrorCode = "challenge_not_found"
	auditErrTokenExpired      AuditErrorCode = "token_expired"
	auditErrInvalidSignature  AuditErrorCode = "invalid_signature"
	auditErrClientNotFound    AuditErrorCode = "client_not_found"
	auditErrDisabled          AuditErrorCode = "mechanism_disabled"
	auditErrMalformed         AuditErrorCode = "malformed_credentials"
	auditErrNotAuthenticated  AuditErrorCode = "not_authenticated"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

type auditSubject struct {
	strategy    StrategyKind
	serviceName string
	clientID    string
}

func (g *Gateway) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject auditSubject,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Strategy:    subject.strategy,
		ServiceName: subject.serviceName,
		ClientID:    subject.clientID,
		IP:          clientIPFromContext(ctx),
		RequestID:   requestIDFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	g.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrServiceNotFound):
		return auditErrServiceNotFound
	case errors.Is(err, ErrInvalidSecret):
		return auditErrInvalidSecret
	case errors.Is(err, ErrInvalidChallengeHash):
		return auditErrInvalidHash
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrChallengeNotFound
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrClientNotFound):
		return auditErrClientNotFound
	case errors.Is(err, ErrMechanismDisabled):
		return auditErrDisabled
	case errors.Is(err, ErrMalformedCredentialHeader),
		errors.Is(err, ErrMissingCredentialHeader):
		return auditErrMalformed
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrSessionUnrecognized):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrChallengeRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrKeyResolution),
		errors.Is(err, ErrChallengeStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
