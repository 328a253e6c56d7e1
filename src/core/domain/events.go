package domain

// IdentityEventKind enumerates the identity provider events the service acts on.
type IdentityEventKind string

const (
	EventIgnored        IdentityEventKind = ""
	EventUserCreated    IdentityEventKind = "user.created"
	EventUserUpdated    IdentityEventKind = "user.updated"
	EventUserDeleted    IdentityEventKind = "user.deleted"
	EventSessionCreated IdentityEventKind = "session.created"
	EventSessionEnded   IdentityEventKind = "session.ended"
)

// IdentityEvent is a decoded provider webhook. Kind is EventIgnored when the
// payload was unknown or lacked a required field.
type IdentityEvent struct {
	Kind      IdentityEventKind
	SubjectID string
	SessionID string
	Profile   Registration
}

// Registration is the profile data supplied when a user is first seen.
type Registration struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}
