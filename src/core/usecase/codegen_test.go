package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptuessr/src/core/domain"
	"gptuessr/src/infra/logger"
)

func TestGenerateCodeShape(t *testing.T) {
	g := NewCodeGenerator(&stubChecker{taken: func(string, int) (bool, error) { return false, nil }}, 0, logger.Discard())

	for i := 0; i < 200; i++ {
		code, err := g.Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, code, domain.CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(domain.CodeAlphabet, r), "unexpected symbol %q in %s", r, code)
		}
		assert.NotContainsf(t, code, "0", "ambiguous symbol in %s", code)
		assert.NotContainsf(t, code, "O", "ambiguous symbol in %s", code)
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	checker := &stubChecker{taken: func(_ string, call int) (bool, error) { return call < 3, nil }}
	g := NewCodeGenerator(checker, 5, logger.Discard())

	code, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, domain.CodeLength)
	assert.Equal(t, 3, checker.calls)
}

func TestGenerateGivesUp(t *testing.T) {
	checker := &stubChecker{taken: func(string, int) (bool, error) { return true, nil }}
	g := NewCodeGenerator(checker, 4, logger.Discard())

	_, err := g.Generate(context.Background())
	assert.True(t, domain.IsAlreadyExists(err))
	assert.Equal(t, 4, checker.calls)
}

func TestGenerateCheckerFailure(t *testing.T) {
	boom := errors.New("connection refused")
	g := NewCodeGenerator(&stubChecker{taken: func(string, int) (bool, error) { return false, boom }}, 4, logger.Discard())

	_, err := g.Generate(context.Background())
	assert.True(t, domain.IsUnavailable(err))
	assert.ErrorIs(t, err, boom)
}

func TestRandomCodeRejectsBiasedBytes(t *testing.T) {
	// 256 is a multiple of 32, so no byte is rejected and each maps by modulo.
	code, err := randomCode(bytes.NewReader([]byte{0, 1, 31, 32, 33, 255}), domain.CodeAlphabet, 6)
	require.NoError(t, err)
	assert.Equal(t, "AB9AB9", code)

	// With a 3-symbol alphabet bytes >= 255 are dropped.
	code, err = randomCode(bytes.NewReader([]byte{255, 0, 1, 2, 0, 0}), "XYZ", 3)
	require.NoError(t, err)
	assert.Equal(t, "XYZ", code)
}

func TestRandomCodeShortRead(t *testing.T) {
	_, err := randomCode(bytes.NewReader([]byte{1, 2}), domain.CodeAlphabet, 6)
	assert.Error(t, err)
}
