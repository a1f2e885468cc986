package authgate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authgate/session"
)

// Outcome tags a codec result.
type Outcome uint8

const (
	// OutcomeNotMine means the codec does not handle the input; the chain moves on.
	OutcomeNotMine Outcome = iota
	// OutcomeMatched means the codec handled the input; the chain stops.
	OutcomeMatched
)

// SerializeResult is a codec's answer to Serialize.
type SerializeResult struct {
	Outcome Outcome
	Key     string
	Err     error
}

// Matched claims a session and carries its storage key.
func Matched(key string) SerializeResult {
	return SerializeResult{Outcome: OutcomeMatched, Key: key}
}

// NotMine passes a session to the next codec.
func NotMine() SerializeResult {
	return SerializeResult{Outcome: OutcomeNotMine}
}

// DeserializeResult is a codec's answer to Deserialize. A matched result with
// a nil Session means the key is a stateless sentinel: the request must
// present its credentials again.
type DeserializeResult struct {
	Outcome Outcome
	Session *UserSession
	Err     error
}

// Restored claims a key and carries the reconstructed session.
func Restored(s *UserSession) DeserializeResult {
	return DeserializeResult{Outcome: OutcomeMatched, Session: s}
}

// Skip passes a key to the next codec.
func Skip() DeserializeResult {
	return DeserializeResult{Outcome: OutcomeNotMine}
}

// SessionCodec converts the sessions of one strategy family to storage keys
// and back. Codecs are consulted in registration order; the first match wins.
type SessionCodec interface {
	Name() string
	Serialize(s *UserSession) SerializeResult
	Deserialize(key string) DeserializeResult
}

func defaultSessionCodecs() []SessionCodec {
	return []SessionCodec{anonymousCodec{}, oidcCodec{}, statelessCodec{}}
}

// SerializeSession turns s into a storage key using the first codec that
// claims it.
func (g *Gateway) SerializeSession(s *UserSession) (string, error) {
	if g == nil {
		return "", ErrGatewayNotReady
	}
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionUnrecognized, err)
	}
	for _, codec := range g.codecs {
		res := codec.Serialize(s)
		if res.Outcome != OutcomeMatched {
			continue
		}
		if res.Err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSessionUnrecognized, codec.Name(), res.Err)
		}
		return res.Key, nil
	}
	return "", ErrSessionUnrecognized
}

// DeserializeSession reconstructs a session from key. A nil session with a
// nil error means the key belongs to a stateless strategy.
func (g *Gateway) DeserializeSession(key string) (*UserSession, error) {
	if g == nil {
		return nil, ErrGatewayNotReady
	}
	for _, codec := range g.codecs {
		res := codec.Deserialize(key)
		if res.Outcome != OutcomeMatched {
			continue
		}
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSessionUnrecognized, codec.Name(), res.Err)
		}
		if res.Session != nil {
			if err := res.Session.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrSessionUnrecognized, codec.Name(), err)
			}
		}
		return res.Session, nil
	}
	return nil, ErrSessionUnrecognized
}

/*
====================================
BUILT-IN CODECS
====================================
*/

const (
	anonymousKey    = "anonymous"
	oidcKeyPrefix   = "oidc:"
	statelessPrefix = "stateless:"
)

type anonymousCodec struct{}

func (anonymousCodec) Name() string { return "anonymous" }

func (anonymousCodec) Serialize(s *UserSession) SerializeResult {
	if s.Kind != KindAnonymous {
		return NotMine()
	}
	return Matched(anonymousKey)
}

func (anonymousCodec) Deserialize(key string) DeserializeResult {
	if key != anonymousKey {
		return Skip()
	}
	return Restored(&UserSession{Kind: KindAnonymous})
}

// oidcCodec embeds the human identity in the key using the session package's
// binary identity format.
type oidcCodec struct{}

func (oidcCodec) Name() string { return "oidc" }

func (oidcCodec) Serialize(s *UserSession) SerializeResult {
	if s.Kind != KindOIDC {
		return NotMine()
	}
	encoded, err := session.EncodeKey(&session.Identity{
		Subject:     s.Subject,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		Role:        s.Role,
	})
	if err != nil {
		return SerializeResult{Outcome: OutcomeMatched, Err: err}
	}
	return Matched(oidcKeyPrefix + encoded)
}

func (oidcCodec) Deserialize(key string) DeserializeResult {
	encoded, ok := strings.CutPrefix(key, oidcKeyPrefix)
	if !ok {
		return Skip()
	}
	id, err := session.DecodeKey(encoded)
	if err != nil {
		return DeserializeResult{Outcome: OutcomeMatched, Err: err}
	}
	return Restored(&UserSession{
		Kind:        KindOIDC,
		Subject:     id.Subject,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        id.Role,
	})
}

// statelessCodec claims every service session and stores only a sentinel, so
// service identities are re-verified on each request.
type statelessCodec struct{}

func (statelessCodec) Name() string { return "stateless" }

func (statelessCodec) Serialize(s *UserSession) SerializeResult {
	if !s.Kind.IsService() {
		return NotMine()
	}
	return Matched(statelessPrefix + string(s.Kind))
}

func (statelessCodec) Deserialize(key string) DeserializeResult {
	kind, ok := strings.CutPrefix(key, statelessPrefix)
	if !ok {
		return Skip()
	}
	if !StrategyKind(kind).IsService() {
		return DeserializeResult{Outcome: OutcomeMatched, Err: errors.New("unknown stateless kind")}
	}
	return Restored(nil)
}
