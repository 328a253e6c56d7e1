package auth

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"

	"gptuessr/src/core/domain"
)

const testWebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

const userCreatedPayload = `{
  "type": "user.created",
  "object": "event",
  "data": {
    "id": "user_29w83sxmDNGwOuEthce5gg56FcC",
    "username": "alice",
    "first_name": "Alice",
    "last_name": null,
    "image_url": "https://img.example.com/alice.png",
    "primary_email_address_id": "idn_2",
    "email_addresses": [
      {"id": "idn_1", "email_address": "old@example.com"},
      {"id": "idn_2", "email_address": "alice@example.com"}
    ]
  }
}`

func signedHeaders(t *testing.T, payload []byte) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(testWebhookSecret)
	require.NoError(t, err)
	now := time.Now()
	sig, err := wh.Sign("msg_1", now, payload)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("svix-id", "msg_1")
	h.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	h.Set("svix-signature", sig)
	return h
}

func TestWebhookDecoderVerifiesSignature(t *testing.T) {
	d, err := NewWebhookDecoder(testWebhookSecret)
	require.NoError(t, err)
	payload := []byte(userCreatedPayload)

	ev, err := d.Decode(payload, signedHeaders(t, payload))
	require.NoError(t, err)
	assert.Equal(t, domain.EventUserCreated, ev.Kind)
	assert.Equal(t, "user_29w83sxmDNGwOuEthce5gg56FcC", ev.SubjectID)
	assert.Equal(t, "alice@example.com", ev.Profile.Email)
	assert.Equal(t, "", ev.Profile.LastName)

	tampered := []byte(`{"type":"user.created","data":{"id":"user_evil"}}`)
	_, err = d.Decode(tampered, signedHeaders(t, payload))
	assert.True(t, domain.IsUnauthorized(err))

	_, err = d.Decode(payload, http.Header{})
	assert.True(t, domain.IsUnauthorized(err))
}

func TestDecodeIdentityEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    domain.IdentityEventKind
		subject string
		session string
	}{
		{"session created", `{"type":"session.created","data":{"id":"sess_1","user_id":"user_1"}}`, domain.EventSessionCreated, "user_1", "sess_1"},
		{"session ended", `{"type":"session.ended","data":{"id":"sess_1","user_id":"user_1"}}`, domain.EventSessionEnded, "user_1", "sess_1"},
		{"user deleted", `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`, domain.EventUserDeleted, "user_1", ""},
		{"unknown type", `{"type":"organization.created","data":{"id":"org_1"}}`, domain.EventIgnored, "", ""},
		{"missing data", `{"type":"user.created"}`, domain.EventIgnored, "", ""},
		{"user without id", `{"type":"user.updated","data":{"username":"x"}}`, domain.EventIgnored, "", ""},
		{"session without user", `{"type":"session.created","data":{"id":"sess_1"}}`, domain.EventIgnored, "", ""},
		{"malformed", `{"type":`, domain.EventIgnored, "", ""},
		{"wrong shape", `{"type":"user.created","data":"oops"}`, domain.EventIgnored, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DecodeIdentityEvent([]byte(tt.payload))
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.subject, ev.SubjectID)
			assert.Equal(t, tt.session, ev.SessionID)
		})
	}
}

func TestNewWebhookDecoderBadSecret(t *testing.T) {
	_, err := NewWebhookDecoder("whsec_!!!not-base64")
	assert.Error(t, err)
}
