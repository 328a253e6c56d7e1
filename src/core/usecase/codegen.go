package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// CodeGenerator produces short lobby codes that are not already in use.
type CodeGenerator struct {
	checker     ports.CodeChecker
	maxAttempts int
	random      io.Reader
	log         *slog.Logger
}

// NewCodeGenerator builds a generator backed by crypto/rand.
func NewCodeGenerator(checker ports.CodeChecker, maxAttempts int, log *slog.Logger) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultCodeMaxAttempts
	}
	return &CodeGenerator{
		checker:     checker,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
		log:         log,
	}
}

// Generate returns a fresh code. Exhausting every attempt yields
// domain.ErrAlreadyExists; a failing existence check yields domain.ErrUnavailable.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := randomCode(g.random, domain.CodeAlphabet, domain.CodeLength)
		if err != nil {
			return "", domain.Unavailable(fmt.Errorf("read random bytes: %w", err))
		}
		taken, err := g.checker.LobbyCodeExists(ctx, code)
		if err != nil {
			return "", domain.Unavailable(err)
		}
		if !taken {
			return code, nil
		}
		g.log.Debug("lobby code collision", "attempt", attempt)
	}
	g.log.Error("lobby code space exhausted", "attempts", g.maxAttempts)
	return "", domain.NewAlreadyExistsError(fmt.Sprintf("no free lobby code after %d attempts", g.maxAttempts))
}

// randomCode draws n symbols uniformly from alphabet. Bytes at or above the
// largest multiple of len(alphabet) are rejected to avoid modulo bias.
func randomCode(r io.Reader, alphabet string, n int) (string, error) {
	size := len(alphabet)
	limit := 256 - 256%size
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%size])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
