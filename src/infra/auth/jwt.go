// Package auth verifies caller identity: bearer session tokens issued by the
// identity provider, and signed webhook deliveries from the same provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
	"gptuessr/src/infra/config"
)

var _ ports.TokenVerifier = (*JWTVerifier)(nil)

// sessionClaims are the claims read from a session token. sid is the
// provider's session id.
type sessionClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks signature, expiry and optionally issuer and audience.
type JWTVerifier struct {
	key    any
	parser *jwt.Parser
}

// NewJWTVerifier builds a verifier from config. An RSA public key selects
// RS256; otherwise the shared secret selects HS256.
func NewJWTVerifier(cfg config.AuthConfig) (*JWTVerifier, error) {
	var (
		key    any
		method string
	)
	switch {
	case cfg.JWTPublicKey != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		key, method = pub, jwt.SigningMethodRS256.Alg()
	case cfg.JWTSecret != "":
		key, method = []byte(cfg.JWTSecret), jwt.SigningMethodHS256.Alg()
	default:
		return nil, errors.New("no jwt verification key configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.JWTLeeway),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}
	return &JWTVerifier{key: key, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates a token string.
func (v *JWTVerifier) Verify(_ context.Context, token string) (ports.TokenClaims, error) {
	if token == "" {
		return ports.TokenClaims{}, domain.NewUnauthorizedError("missing token")
	}
	claims := &sessionClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return ports.TokenClaims{}, &domain.DomainError{Base: domain.ErrUnauthorized, Message: "invalid token", Err: err}
	}
	if claims.Subject == "" {
		return ports.TokenClaims{}, domain.NewUnauthorizedError("token has no subject")
	}
	return ports.TokenClaims{SubjectID: claims.Subject, SessionID: claims.SessionID}, nil
}

// SignHS256 issues a token for subject signed with secret. It exists for local
// tooling and tests; production tokens come from the identity provider.
func SignHS256(secret, subject, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
