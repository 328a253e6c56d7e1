package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStats aggregates a player's results across finished games.
type UserStats struct {
	GamesPlayed   int     `json:"games_played"`
	GamesWon      int     `json:"games_won"`
	GamesLost     int     `json:"games_lost"`
	TotalScore    int     `json:"total_score"`
	BestScore     int     `json:"best_score"`
	GuessAccuracy float64 `json:"guess_accuracy"`
}

// RecordGame folds one finished game into the aggregate. Accuracy is kept as
// a running mean over games played.
func (s *UserStats) RecordGame(score int, won bool, accuracy float64) {
	s.GamesPlayed++
	if won {
		s.GamesWon++
	} else {
		s.GamesLost++
	}
	s.TotalScore += score
	if score > s.BestScore {
		s.BestScore = score
	}
	s.GuessAccuracy += (accuracy - s.GuessAccuracy) / float64(s.GamesPlayed)
}

// User is an identity record keyed by the auth provider's subject id.
type User struct {
	ID           uuid.UUID  `json:"id"`
	SubjectID    string     `json:"subject_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DisplayName  string     `json:"display_name"`
	ImageURL     string     `json:"image_url"`
	Online       bool       `json:"online"`
	SessionID    string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	Stats        UserStats  `json:"stats"`
	Friends      []string   `json:"friends"`
	Blocked      []string   `json:"blocked"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser builds a fresh profile. Username uniqueness is the caller's concern.
func NewUser(subjectID, username string, now time.Time) (*User, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, NewValidationError("subject_id", "cannot be empty")
	}
	if strings.TrimSpace(username) == "" {
		return nil, NewValidationError("username", "cannot be empty")
	}
	u := &User{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Username:  username,
		Friends:   []string{},
		Blocked:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.RefreshDisplayName()
	return u, nil
}

// RefreshDisplayName derives the display name from first and last name,
// falling back to the username.
func (u *User) RefreshDisplayName() {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full == "" {
		full = u.Username
	}
	u.DisplayName = full
}

// MarkLogin records a new session.
func (u *User) MarkLogin(sessionID string, now time.Time) {
	u.SessionID = sessionID
	u.Online = true
	u.LastLoginAt = &now
	u.LastActiveAt = &now
	u.UpdatedAt = now
}

// MarkLogout ends the current session.
func (u *User) MarkLogout(now time.Time) {
	u.SessionID = ""
	u.Online = false
	u.LastActiveAt = &now
	u.UpdatedAt = now
}

// ProfileUpdate carries a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	ImageURL  *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil && p.ImageURL == nil
}

// Apply copies the provided fields except Username, which needs a uniqueness
// check first, and recomputes the display name.
func (u *User) Apply(p ProfileUpdate, now time.Time) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.ImageURL != nil {
		u.ImageURL = *p.ImageURL
	}
	u.RefreshDisplayName()
	u.UpdatedAt = now
}
