package authgate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Authenticate picks the verification path for one request, in strict order:
//
//  1. a bearer mechanism is enabled and an Authorization header is present:
//     the header must be "Bearer <token>" and is verified by VerifyBearer;
//  2. basic is enabled and an Authorization header is present: the header
//     must be "Basic base64(name:secret)" and is verified by VerifyBasic;
//  3. the request carries an established session: it is restored through the
//     session codec chain;
//  4. otherwise ErrNotAuthenticated.
//
// When a header path is taken its result is final; the session is ignored.
func (g *Gateway) Authenticate(ctx context.Context, creds Credentials) (*UserSession, error) {
	if g == nil {
		return nil, ErrGatewayNotReady
	}
	start := time.Now()
	defer func() {
		g.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}()

	mech := g.config.Mechanisms
	header := strings.TrimSpace(creds.Authorization)

	switch {
	case header != "" && mech.BearerEnabled():
		token, err := credentialParam(header, "Bearer")
		if err != nil {
			return nil, g.authenticationFailed(ctx, "bearer", err)
		}
		return g.VerifyBearer(ctx, token)

	case header != "" && mech.BasicAPIKey:
		param, err := credentialParam(header, "Basic")
		if err != nil {
			return nil, g.authenticationFailed(ctx, "basic", err)
		}
		name, secret, err := decodeBasic(param)
		if err != nil {
			return nil, g.authenticationFailed(ctx, "basic", err)
		}
		return g.VerifyBasic(ctx, name, secret)

	case creds.HasSession || creds.LoadSession != nil:
		return g.restoreSession(ctx, creds)

	default:
		return nil, g.authenticationFailed(ctx, "none", ErrNotAuthenticated)
	}
}

func (g *Gateway) restoreSession(ctx context.Context, creds Credentials) (*UserSession, error) {
	key, ok := creds.SessionKey, creds.HasSession
	if !ok {
		var err error
		key, ok, err = creds.LoadSession(ctx)
		if err != nil {
			g.logger.WarnContext(ctx, "session lookup failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
		}
		if !ok {
			return nil, g.authenticationFailed(ctx, "none", ErrNotAuthenticated)
		}
	}

	sess, err := g.DeserializeSession(key)
	if err != nil {
		return nil, g.authenticationFailed(ctx, "session", err)
	}
	if sess == nil {
		return nil, g.authenticationFailed(ctx, "session", ErrNotAuthenticated)
	}
	g.metricInc(MetricSessionPassThrough)
	return sess, nil
}

func (g *Gateway) authenticationFailed(ctx context.Context, path string, err error) error {
	if IsAuthFailure(err) {
		g.metricInc(MetricNotAuthenticated)
	} else {
		g.metricInc(MetricMalformedCredentials)
	}
	g.logger.DebugContext(ctx, "request not authenticated", "path", path, "reason", err.Error())
	g.emitAudit(ctx, auditEventAuthenticationFailed, false, auditSubject{}, err, func() map[string]string {
		return map[string]string{"path": path}
	})
	return err
}

// credentialParam extracts the parameter of an Authorization header with the
// given scheme. A different scheme is an authentication failure; the right
// scheme with a bad shape is a malformed header.
func credentialParam(header, scheme string) (string, error) {
	got, param, found := strings.Cut(header, " ")
	if !strings.EqualFold(got, scheme) {
		return "", fmt.Errorf("%w: expected %s scheme", ErrNotAuthenticated, scheme)
	}
	param = strings.TrimSpace(param)
	if !found || param == "" || strings.ContainsAny(param, " \t") {
		return "", fmt.Errorf("%w: %s header must have exactly one parameter", ErrMalformedCredentialHeader, scheme)
	}
	return param, nil
}

func decodeBasic(param string) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(param)
	if err != nil {
		return "", "", fmt.Errorf("%w: basic credentials are not base64", ErrMalformedCredentialHeader)
	}
	name, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", fmt.Errorf("%w: basic credentials must be name:secret", ErrMalformedCredentialHeader)
	}
	return name, secret, nil
}

// ParseAPIKeyHeader extracts the challenge answer from "ApiKey <hex>". The
// header must have exactly two space-separated fields and the scheme is
// matched case-insensitively.
func ParseAPIKeyHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentialHeader
	}
	fields := strings.Split(header, " ")
	if len(fields) != 2 || !strings.EqualFold(fields[0], "apikey") || fields[1] == "" {
		return "", ErrMalformedCredentialHeader
	}
	return fields[1], nil
}
