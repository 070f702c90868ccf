package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrInvalidAudien = errors.New("invalid audience")
	ErrNoIdentity    = errors.New("token carries no identity")
)

// AccessClaims carries the display name the connection will act under.
type AccessClaims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
}

// Verifier validates RS256 access tokens issued by the auth service and
// resolves the identity they carry.
type Verifier struct {
	public    *rsa.PublicKey
	issuer    string
	audience  string
	clockSkew time.Duration
}

func NewVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *Verifier {
	return &Verifier{
		public:    public,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}
}

// VerifyToken parses and validates tokenStr and returns the identity
// (display name, falling back to the subject claim).
func (v *Verifier) VerifyToken(tokenStr string) (string, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return "", ErrInvalidToken
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.public, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return "", ErrInvalidAudien
	}

	// Time claims with clockSkew slack. Zero means the claim is absent.
	now := time.Now()
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)) {
		return "", ErrTokenExpired
	}
	if claims.ExpiresAt != 0 && now.After(time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)) {
		return "", ErrTokenExpired
	}

	identity := strings.TrimSpace(claims.Name)
	if identity == "" {
		identity = strings.TrimSpace(claims.Subject)
	}
	if identity == "" {
		return "", ErrNoIdentity
	}

	return identity, nil
}
