package jobs

import (
	"encoding/json"
	"strings"
	"time"
)

const welcomeMaxAttempts = 5

type WelcomeEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

func (p WelcomeEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p WelcomeEmailPayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Email) == "" {
		return ErrInvalidJobPayload
	}
	return nil
}

// WelcomeMaxAttempts bounds retries for the non-critical welcome mail.
func WelcomeMaxAttempts() int { return welcomeMaxAttempts }
