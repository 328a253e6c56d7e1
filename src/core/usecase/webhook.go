package usecase

import (
	"context"
	"log/slog"
	"net/http"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// WebhookService applies identity provider events to user profiles.
type WebhookService struct {
	decoder  ports.IdentityEventDecoder
	identity *IdentityService
	log      *slog.Logger
}

func NewWebhookService(decoder ports.IdentityEventDecoder, identity *IdentityService, log *slog.Logger) *WebhookService {
	return &WebhookService{decoder: decoder, identity: identity, log: log}
}

// Handle verifies and applies one delivery. It returns the event kind that was
// acted on; EventIgnored means the payload was accepted but not understood.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, headers http.Header) (domain.IdentityEventKind, error) {
	ev, err := s.decoder.Decode(payload, headers)
	if err != nil {
		return domain.EventIgnored, err
	}

	switch ev.Kind {
	case domain.EventUserCreated:
		_, err = s.identity.Register(ctx, ev.Profile)
	case domain.EventUserUpdated:
		_, err = s.identity.UpdateInfo(ctx, ev.SubjectID, profileUpdate(ev.Profile))
		if domain.IsNotFound(err) {
			// Updates can arrive before the creation event.
			_, err = s.identity.Register(ctx, ev.Profile)
		}
	case domain.EventUserDeleted:
		s.log.Info("user deletion received, profile kept", "subject_id", ev.SubjectID)
	case domain.EventSessionCreated:
		_, err = s.identity.UpdateOnLogin(ctx, ev.SubjectID, ev.SessionID)
	case domain.EventSessionEnded:
		_, err = s.identity.Logout(ctx, ev.SubjectID)
	default:
		s.log.Debug("webhook event ignored")
		return domain.EventIgnored, nil
	}
	if err != nil {
		s.log.Warn("webhook event failed", "kind", ev.Kind, "subject_id", ev.SubjectID, "error", err)
		return ev.Kind, err
	}
	s.log.Info("webhook event applied", "kind", ev.Kind, "subject_id", ev.SubjectID)
	return ev.Kind, nil
}

func profileUpdate(p domain.Registration) domain.ProfileUpdate {
	var u domain.ProfileUpdate
	if p.Username != "" {
		u.Username = &p.Username
	}
	if p.Email != "" {
		u.Email = &p.Email
	}
	if p.FirstName != "" {
		u.FirstName = &p.FirstName
	}
	if p.LastName != "" {
		u.LastName = &p.LastName
	}
	if p.ImageURL != "" {
		u.ImageURL = &p.ImageURL
	}
	return u
}
