package jwt

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Family groups signing algorithms by the verifier that handles them.
type Family int

const (
	FamilyUnknown Family = iota
	// FamilySymmetric covers HS* tokens minted by this gateway.
	FamilySymmetric
	// FamilyAsymmetric covers RS* and PS* tokens issued by the identity provider.
	FamilyAsymmetric
)

// Header is the unverified routing information of a token.
type Header struct {
	Alg    string
	KeyID  string
	Family Family
}

// PeekHeader decodes the token header without verifying anything. The result
// is only fit for routing; it must never be trusted on its own.
func PeekHeader(tokenStr string) (Header, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return Header{}, errors.New("token is not a compact JWS")
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return Header{}, err
	}

	alg, _ := token.Header["alg"].(string)
	kid, _ := token.Header["kid"].(string)

	return Header{Alg: alg, KeyID: kid, Family: familyOf(alg)}, nil
}

func familyOf(alg string) Family {
	switch alg {
	case "HS256", "HS384", "HS512":
		return FamilySymmetric
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		return FamilyAsymmetric
	default:
		return FamilyUnknown
	}
}

// AsymmetricAlgs lists the algorithms accepted from the remote key set.
func AsymmetricAlgs() []string {
	return []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}
}
