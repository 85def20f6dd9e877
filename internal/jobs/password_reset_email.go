package jobs

import (
	"encoding/json"
	"strings"
	"time"
)

// PasswordResetEmailPayload carries the plaintext reset secret to the
// worker. It is never persisted anywhere else; the users table only holds
// the hash.
type PasswordResetEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	ResetToken  string    `json:"resetToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

func (p PasswordResetEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p PasswordResetEmailPayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.ResetToken) == "" {
		return ErrInvalidJobPayload
	}
	return nil
}
