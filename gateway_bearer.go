package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/keyset"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// VerifyBearer verifies a bearer token. The unverified header alg routes HS*
// tokens to the self-issued verifier and RS*/PS* tokens to the
// client-credentials verifier; any other alg is rejected.
func (g *Gateway) VerifyBearer(ctx context.Context, token string) (*UserSession, error) {
	if g == nil {
		return nil, ErrGatewayNotReady
	}

	header, err := jwt.PeekHeader(token)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		g.bearerFailed(ctx, metricIDCount, auditSubject{}, err)
		return nil, err
	}

	switch header.Family {
	case jwt.FamilySymmetric:
		return g.verifySymmetric(ctx, token)
	case jwt.FamilyAsymmetric:
		return g.verifyAsymmetric(ctx, token)
	default:
		err := fmt.Errorf("%w: unsupported alg %q", ErrInvalidSignature, header.Alg)
		g.bearerFailed(ctx, metricIDCount, auditSubject{}, err)
		return nil, err
	}
}

func (g *Gateway) verifySymmetric(ctx context.Context, token string) (*UserSession, error) {
	subject := auditSubject{strategy: KindBearerAPIKey}

	if !g.config.Mechanisms.Challenge || g.tokens == nil {
		g.bearerFailed(ctx, MetricBearerAPIKeyFailure, subject, ErrMechanismDisabled)
		return nil, ErrMechanismDisabled
	}

	claims, err := g.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			err = ErrTokenExpired
		} else {
			err = fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		g.bearerFailed(ctx, MetricBearerAPIKeyFailure, subject, err)
		return nil, err
	}

	subject.serviceName = claims.ServiceName
	if _, ok := g.config.lookupAccount(claims.ServiceName); !ok {
		g.bearerFailed(ctx, MetricBearerAPIKeyFailure, subject, ErrServiceNotFound)
		return nil, ErrServiceNotFound
	}

	sess := newServiceSession(KindBearerAPIKey, claims.ServiceName)
	g.metricInc(MetricBearerAPIKeySuccess)
	g.emitAudit(ctx, auditEventBearerVerified, true, subject, nil, nil)
	return sess, nil
}

func (g *Gateway) verifyAsymmetric(ctx context.Context, token string) (*UserSession, error) {
	subject := auditSubject{strategy: KindBearerClientCredentials}

	if !g.config.Mechanisms.ClientCredentials || g.keys == nil {
		g.bearerFailed(ctx, MetricClientCredentialsFailure, subject, ErrMechanismDisabled)
		return nil, ErrMechanismDisabled
	}

	options := []gjwt.ParserOption{
		gjwt.WithValidMethods(jwt.AsymmetricAlgs()),
		gjwt.WithExpirationRequired(),
	}
	if g.config.ClientCredentials.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(g.config.ClientCredentials.Leeway))
	}
	parser := gjwt.NewParser(options...)

	parsed, err := parser.Parse(token, func(t *gjwt.Token) (any, error) {
		return g.keys.Resolve(ctx, t)
	})
	if err != nil {
		err = classifyAsymmetricError(err)
		if errors.Is(err, ErrKeyResolution) {
			g.metricInc(MetricKeyResolutionFailure)
			g.logger.WarnContext(ctx, "signing key resolution failed", "error", err)
		}
		g.bearerFailed(ctx, MetricClientCredentialsFailure, subject, err)
		return nil, err
	}

	claims, ok := parsed.Claims.(gjwt.MapClaims)
	if !ok {
		err := fmt.Errorf("%w: unexpected claims type", ErrInvalidSignature)
		g.bearerFailed(ctx, MetricClientCredentialsFailure, subject, err)
		return nil, err
	}

	clientID := g.clientIDFromClaims(claims)
	subject.clientID = clientID
	if clientID == "" || !g.config.clientAllowed(clientID) {
		g.bearerFailed(ctx, MetricClientCredentialsFailure, subject, ErrClientNotFound)
		return nil, ErrClientNotFound
	}

	sess := newClientSession(clientID)
	g.metricInc(MetricClientCredentialsSuccess)
	g.emitAudit(ctx, auditEventBearerVerified, true, subject, nil, nil)
	return sess, nil
}

func (g *Gateway) clientIDFromClaims(claims gjwt.MapClaims) string {
	for _, name := range g.config.ClientCredentials.ClientIDClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// classifyAsymmetricError maps parser failures onto gateway errors. The parser
// checks the signature before claims, so an expired error implies a valid
// signature.
func classifyAsymmetricError(err error) error {
	switch {
	case errors.Is(err, keyset.ErrFetch), errors.Is(err, keyset.ErrKeyNotFound):
		return fmt.Errorf("%w: %v", ErrKeyResolution, err)
	case errors.Is(err, gjwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}

// bearerFailed records a rejected bearer token. Passing metricIDCount skips
// the strategy counter when the strategy is not known yet.
func (g *Gateway) bearerFailed(ctx context.Context, metric MetricID, subject auditSubject, err error) {
	g.metricInc(metric)
	g.logger.DebugContext(ctx, "bearer token rejected", "strategy", string(subject.strategy), "reason", err.Error())
	g.emitAudit(ctx, auditEventBearerVerified, false, subject, err, nil)
}
