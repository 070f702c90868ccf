package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
)

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse public key %s: %w", path, err)
	}

	return pub, nil
}

// Signer issues access tokens. Issuance belongs to the auth service; this
// half lives here for local setups and the test suite.
type Signer struct {
	private  *rsa.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
}

func NewSigner(private *rsa.PrivateKey, issuer, audience string, ttl time.Duration) *Signer {
	return &Signer{private: private, issuer: issuer, audience: audience, ttl: ttl}
}

// SignAccessToken issues a token whose name claim is the display name the
// connection will use as its identity.
func (s *Signer) SignAccessToken(name string, now time.Time) (string, error) {
	claims := AccessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   name,
			Issuer:    s.issuer,
			Audience:  s.audience,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
		Name: name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	return token.SignedString(s.private)
}
