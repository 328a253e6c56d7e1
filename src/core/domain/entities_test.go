package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	_, err := NewUser(" ", "alice", t0)
	assert.True(t, IsValidationError(err))

	u, err := NewUser("user_1", "alice", t0)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.DisplayName)
	assert.False(t, u.Online)
	assert.NotNil(t, u.Friends)
}

func TestUserApply(t *testing.T) {
	u, err := NewUser("user_1", "alice", t0)
	require.NoError(t, err)

	first, last, name := "Alice", "Liddell", "mallory"
	u.Apply(ProfileUpdate{FirstName: &first, LastName: &last, Username: &name}, t0.Add(time.Minute))

	assert.Equal(t, "Alice Liddell", u.DisplayName)
	assert.Equal(t, "alice", u.Username, "username changes go through the uniqueness check")
	assert.Equal(t, t0.Add(time.Minute), u.UpdatedAt)
	assert.True(t, ProfileUpdate{}.Empty())
}

func TestUserSessionLifecycle(t *testing.T) {
	u, err := NewUser("user_1", "alice", t0)
	require.NoError(t, err)

	u.MarkLogin("sess_1", t0)
	assert.True(t, u.Online)
	assert.Equal(t, "sess_1", u.SessionID)
	require.NotNil(t, u.LastLoginAt)

	u.MarkLogout(t0.Add(time.Hour))
	assert.False(t, u.Online)
	assert.Empty(t, u.SessionID)
	assert.Equal(t, t0.Add(time.Hour), *u.LastActiveAt)
}

func TestUserStatsRecordGame(t *testing.T) {
	var s UserStats
	s.RecordGame(120, true, 0.8)
	s.RecordGame(40, false, 0.4)

	assert.Equal(t, 2, s.GamesPlayed)
	assert.Equal(t, 1, s.GamesWon)
	assert.Equal(t, 1, s.GamesLost)
	assert.Equal(t, 160, s.TotalScore)
	assert.Equal(t, 120, s.BestScore)
	assert.InDelta(t, 0.6, s.GuessAccuracy, 1e-9)
}

func TestDomainErrorKinds(t *testing.T) {
	cause := assert.AnError
	err := Unavailable(cause)
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, cause)

	nf := NewNotFoundError("lobby")
	assert.Same(t, nf, Unavailable(nf), "errors with a kind pass through")
	assert.Nil(t, Unavailable(nil))
}
