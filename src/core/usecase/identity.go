package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// maxUsernameSuffix bounds the numeric suffix search for a free username.
const maxUsernameSuffix = 1000

// IdentityService owns user profiles keyed by the auth provider's subject id.
type IdentityService struct {
	repo  ports.UserRepository
	locks *keyedMutex
	now   func() time.Time
	log   *slog.Logger
}

func NewIdentityService(repo ports.UserRepository, log *slog.Logger) *IdentityService {
	return &IdentityService{
		repo:  repo,
		locks: newKeyedMutex(),
		now:   time.Now,
		log:   log,
	}
}

// Resolve returns the profile for a subject id.
func (s *IdentityService) Resolve(ctx context.Context, subjectID string) (*domain.User, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, domain.NewValidationError("subject_id", "cannot be empty")
	}
	u, err := s.repo.GetUserBySubject(ctx, subjectID)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return u, nil
}

// ExistsByUsername reports whether a username is taken.
func (s *IdentityService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ok, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, domain.Unavailable(err)
	}
	return ok, nil
}

// Register creates a profile for a new subject, or refreshes the existing one.
// At most one profile exists per subject id.
func (s *IdentityService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	reg.SubjectID = strings.TrimSpace(reg.SubjectID)
	if reg.SubjectID == "" {
		return nil, domain.NewValidationError("subject_id", "cannot be empty")
	}
	unlock := s.locks.Lock(reg.SubjectID)
	defer unlock()

	existing, err := s.repo.GetUserBySubject(ctx, reg.SubjectID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, reg)
	case !domain.IsNotFound(err):
		return nil, domain.Unavailable(err)
	}

	username, err := s.uniqueUsername(ctx, baseUsername(reg))
	if err != nil {
		return nil, err
	}
	now := s.now()
	u, err := domain.NewUser(reg.SubjectID, username, now)
	if err != nil {
		return nil, err
	}
	u.Email = reg.Email
	u.FirstName = reg.FirstName
	u.LastName = reg.LastName
	u.ImageURL = reg.ImageURL
	u.RefreshDisplayName()

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if domain.IsAlreadyExists(err) {
			// Another instance registered the same subject first.
			if winner, getErr := s.repo.GetUserBySubject(ctx, reg.SubjectID); getErr == nil {
				return winner, nil
			}
		}
		return nil, domain.Unavailable(err)
	}
	s.log.Info("user registered", "subject_id", u.SubjectID, "username", u.Username)
	return u, nil
}

func (s *IdentityService) refresh(ctx context.Context, u *domain.User, reg domain.Registration) (*domain.User, error) {
	update := domain.ProfileUpdate{}
	if reg.Email != "" && reg.Email != u.Email {
		update.Email = &reg.Email
	}
	if reg.FirstName != "" && reg.FirstName != u.FirstName {
		update.FirstName = &reg.FirstName
	}
	if reg.LastName != "" && reg.LastName != u.LastName {
		update.LastName = &reg.LastName
	}
	if reg.ImageURL != "" && reg.ImageURL != u.ImageURL {
		update.ImageURL = &reg.ImageURL
	}
	if update.Empty() {
		return u, nil
	}
	u.Apply(update, s.now())
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, domain.Unavailable(err)
	}
	return u, nil
}

// UpdateInfo applies a partial profile change. A requested username that is
// already taken is skipped rather than failing the whole update.
func (s *IdentityService) UpdateInfo(ctx context.Context, subjectID string, p domain.ProfileUpdate) (*domain.User, error) {
	unlock := s.locks.Lock(subjectID)
	defer unlock()

	u, err := s.Resolve(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if p.Username != nil {
		name := strings.TrimSpace(*p.Username)
		if name != "" && name != u.Username {
			taken, err := s.ExistsByUsername(ctx, name)
			if err != nil {
				return nil, err
			}
			if taken {
				s.log.Warn("username update skipped, already taken", "subject_id", subjectID, "username", name)
			} else {
				u.Username = name
			}
		}
	}
	u.Apply(p, s.now())
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, domain.Unavailable(err)
	}
	return u, nil
}

// UpdateOnLogin records a new session for the subject.
func (s *IdentityService) UpdateOnLogin(ctx context.Context, subjectID, sessionID string) (*domain.User, error) {
	return s.mutate(ctx, subjectID, func(u *domain.User) {
		u.MarkLogin(sessionID, s.now())
	})
}

// Logout marks the subject offline and clears its session.
func (s *IdentityService) Logout(ctx context.Context, subjectID string) (*domain.User, error) {
	return s.mutate(ctx, subjectID, func(u *domain.User) {
		u.MarkLogout(s.now())
	})
}

// RecordGameResult folds a finished game into the subject's statistics.
func (s *IdentityService) RecordGameResult(ctx context.Context, subjectID string, score int, won bool, accuracy float64) error {
	_, err := s.mutate(ctx, subjectID, func(u *domain.User) {
		u.Stats.RecordGame(score, won, accuracy)
		u.UpdatedAt = s.now()
	})
	return err
}

func (s *IdentityService) mutate(ctx context.Context, subjectID string, fn func(*domain.User)) (*domain.User, error) {
	unlock := s.locks.Lock(subjectID)
	defer unlock()

	u, err := s.Resolve(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	fn(u)
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return nil, domain.Unavailable(err)
	}
	return u, nil
}

// uniqueUsername appends an increasing counter to base until it is free.
func (s *IdentityService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; i <= maxUsernameSuffix; i++ {
		taken, err := s.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", domain.NewAlreadyExistsError(fmt.Sprintf("no free username for %q", base))
}

// baseUsername picks the preferred username, then the email's local part.
func baseUsername(reg domain.Registration) string {
	name := sanitizeUsername(reg.Username)
	if name == "" {
		local, _, _ := strings.Cut(reg.Email, "@")
		name = sanitizeUsername(local)
	}
	if name == "" {
		name = domain.DefaultUsername
	}
	return name
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
