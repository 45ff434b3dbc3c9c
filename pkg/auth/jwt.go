// Package auth verifies bearer tokens issued by an external identity
// provider and carries the resulting identity through request contexts. Token
// issuance is out of scope; only the verification contract lives here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims are the JWT claims the application cares about.
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenValidator validates bearer JWTs. RS256 tokens are checked against the
// provider's remote key set; HS256 against a shared secret (development and
// tests).
type TokenValidator struct {
	signingMethod jwt.SigningMethod
	secretKey     []byte
	keySet        *KeySet
	issuer        string
	audience      []string
}

// NewHS256Validator creates a validator for HMAC-signed tokens.
func NewHS256Validator(secret, issuer string, audience []string) *TokenValidator {
	return &TokenValidator{
		signingMethod: jwt.SigningMethodHS256,
		secretKey:     []byte(secret),
		issuer:        issuer,
		audience:      audience,
	}
}

// NewRS256Validator creates a validator that resolves signing keys from the
// given key set.
func NewRS256Validator(keySet *KeySet, issuer string, audience []string) *TokenValidator {
	return &TokenValidator{
		signingMethod: jwt.SigningMethodRS256,
		keySet:        keySet,
		issuer:        issuer,
		audience:      audience,
	}
}

// ValidateToken verifies signature, expiry, issuer and audience, and returns
// the claims. The context bounds any key-set fetch.
func (v *TokenValidator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != v.signingMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		switch v.signingMethod {
		case jwt.SigningMethodHS256:
			return v.secretKey, nil
		case jwt.SigningMethodRS256:
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token header missing kid")
			}
			return v.keySet.Key(ctx, kid)
		default:
			return nil, errors.New("unknown signing method")
		}
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if len(v.audience) > 0 {
		valid := false
		for _, want := range v.audience {
			for _, have := range claims.Audience {
				if have == want {
					valid = true
					break
				}
			}
		}
		if !valid {
			return nil, fmt.Errorf("%w: invalid audience", ErrInvalidClaims)
		}
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrInvalidClaims)
	}

	return claims, nil
}
