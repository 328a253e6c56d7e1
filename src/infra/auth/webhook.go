package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

var _ ports.IdentityEventDecoder = (*WebhookDecoder)(nil)

// WebhookDecoder verifies Svix-signed identity provider deliveries and maps
// them onto domain.IdentityEvent.
type WebhookDecoder struct {
	wh *svix.Webhook
}

// NewWebhookDecoder builds a decoder for the given signing secret ("whsec_...").
func NewWebhookDecoder(secret string) (*WebhookDecoder, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &WebhookDecoder{wh: wh}, nil
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userData struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              *string        `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
}

func (u userData) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

type sessionData struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// Decode verifies the signature headers and decodes the payload. Only a bad
// signature is an error; anything unrecognised decodes to EventIgnored.
func (d *WebhookDecoder) Decode(payload []byte, headers http.Header) (domain.IdentityEvent, error) {
	if err := d.wh.Verify(payload, headers); err != nil {
		return domain.IdentityEvent{}, &domain.DomainError{Base: domain.ErrUnauthorized, Message: "invalid webhook signature", Err: err}
	}
	return DecodeIdentityEvent(payload), nil
}

// DecodeIdentityEvent maps an already verified payload onto an event.
func DecodeIdentityEvent(payload []byte) domain.IdentityEvent {
	ignored := domain.IdentityEvent{Kind: domain.EventIgnored}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil || len(env.Data) == 0 {
		return ignored
	}

	kind := domain.IdentityEventKind(env.Type)
	switch kind {
	case domain.EventUserCreated, domain.EventUserUpdated, domain.EventUserDeleted:
		var u userData
		if err := json.Unmarshal(env.Data, &u); err != nil || u.ID == "" {
			return ignored
		}
		return domain.IdentityEvent{
			Kind:      kind,
			SubjectID: u.ID,
			Profile: domain.Registration{
				SubjectID: u.ID,
				Username:  deref(u.Username),
				Email:     u.primaryEmail(),
				FirstName: deref(u.FirstName),
				LastName:  deref(u.LastName),
				ImageURL:  deref(u.ImageURL),
			},
		}
	case domain.EventSessionCreated, domain.EventSessionEnded:
		var s sessionData
		if err := json.Unmarshal(env.Data, &s); err != nil || s.UserID == "" {
			return ignored
		}
		return domain.IdentityEvent{Kind: kind, SubjectID: s.UserID, SessionID: s.ID}
	default:
		return ignored
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
