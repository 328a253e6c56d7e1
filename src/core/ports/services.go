package ports

import (
	"context"
	"net/http"
	"time"

	"gptuessr/src/core/domain"
)

// ExternalService is the base interface for external service adapters.
type ExternalService interface {
	// Health checks if the external service is reachable.
	Health(ctx context.Context) error
}

// TokenClaims is what the service trusts from a verified bearer token.
type TokenClaims struct {
	SubjectID string
	SessionID string
}

// TokenVerifier turns a bearer token into the caller's identity. Failures
// wrap domain.ErrUnauthorized.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (TokenClaims, error)
}

// IdentityEventDecoder authenticates and decodes an identity provider webhook.
// Bad signatures wrap domain.ErrUnauthorized; payloads it does not understand
// decode to domain.EventIgnored.
type IdentityEventDecoder interface {
	Decode(payload []byte, headers http.Header) (domain.IdentityEvent, error)
}

// ScoreInput is what a scorer sees for one guess.
type ScoreInput struct {
	Prompt  string
	Guess   string
	Elapsed time.Duration
}

// ScoreResult is a scorer's verdict for one guess.
type ScoreResult struct {
	Score    int
	Accuracy float64
}

// GuessScorer rates a guess against the round's prompt.
type GuessScorer interface {
	Score(ctx context.Context, in ScoreInput) (ScoreResult, error)
}
