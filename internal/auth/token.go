package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// Token verification errors. ErrExpiredToken is distinct so callers can
// report expiry separately from malformed or forged tokens.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenIssuer creates and verifies self-contained signed bearer tokens.
// Verification is stateless: a token remains verifiable across process
// restarts as long as the secret is unchanged and the token has not
// expired.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

// sessionClaims represents the JWT claims of a session token
type sessionClaims struct {
	UserID string     `json:"id"`
	Email  string     `json:"email"`
	Role   types.Role `json:"role"`
	Name   string     `json:"name"`
	jwt.RegisteredClaims
}

// Issue creates a signed session token for the credential. Expiry is
// always issued-at plus the configured TTL.
func (ti *TokenIssuer) Issue(cred *types.Credential) (string, error) {
	now := time.Now()

	claims := &sessionClaims{
		UserID: cred.ID,
		Email:  cred.Email,
		Role:   cred.Role,
		Name:   cred.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
			Subject:   cred.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// It fails with ErrExpiredToken when the expiry has elapsed and
// ErrInvalidToken for any other defect.
func (ti *TokenIssuer) Verify(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &types.UserClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		Name:   claims.Name,
	}, nil
}
