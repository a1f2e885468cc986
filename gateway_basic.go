package authgate

import (
	"context"
	"crypto/subtle"
)

// VerifyBasic checks a service name and shared secret against the account
// table. The table is read on every call, and the resulting session is
// stateless, so the decision is never reused across requests.
//
// Errors: ErrMechanismDisabled, ErrServiceNotFound, ErrInvalidSecret.
func (g *Gateway) VerifyBasic(ctx context.Context, serviceName, secret string) (*UserSession, error) {
	if g == nil {
		return nil, ErrGatewayNotReady
	}
	subject := auditSubject{strategy: KindBasicAPIKey, serviceName: serviceName}

	if !g.config.Mechanisms.BasicAPIKey {
		return nil, g.basicFailed(ctx, subject, ErrMechanismDisabled)
	}

	acct, ok := g.config.lookupAccount(serviceName)
	if !ok {
		return nil, g.basicFailed(ctx, subject, ErrServiceNotFound)
	}
	if subtle.ConstantTimeCompare([]byte(acct.APIKey), []byte(secret)) != 1 {
		return nil, g.basicFailed(ctx, subject, ErrInvalidSecret)
	}

	g.metricInc(MetricBasicSuccess)
	g.emitAudit(ctx, auditEventBasicVerified, true, subject, nil, nil)
	return newServiceSession(KindBasicAPIKey, acct.Name), nil
}

func (g *Gateway) basicFailed(ctx context.Context, subject auditSubject, err error) error {
	g.metricInc(MetricBasicFailure)
	g.logger.DebugContext(ctx, "basic credentials rejected", "service", subject.serviceName, "reason", err.Error())
	g.emitAudit(ctx, auditEventBasicVerified, false, subject, err, nil)
	return err
}
