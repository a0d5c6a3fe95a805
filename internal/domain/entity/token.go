package entity

import "time"

// TokenPurpose names the action a token authorizes
type TokenPurpose string

const (
	PurposeCreate  TokenPurpose = "invoice.create"
	PurposePreview TokenPurpose = "invoice.preview"
	PurposeStatus  TokenPurpose = "invoice.status"
	PurposeDelete  TokenPurpose = "invoice.delete"
)

// ActionToken is a single-use value bound to the context it was issued for
type ActionToken struct {
	Value       string       `json:"value"`
	Operator    string       `json:"operator"`
	Fingerprint string       `json:"fingerprint"`
	TemplateID  int64        `json:"template_id"`
	Purpose     TokenPurpose `json:"purpose"`
	Selection   string       `json:"selection,omitempty"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Expired reports whether the token is no longer usable at now
func (t *ActionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
