package jobs

import "errors"

const (
	TypePasswordResetEmail = "auth.password_reset_email"
	TypeWelcomeEmail       = "auth.welcome_email"
)

var (
	ErrUnknownJobType    = errors.New("unknown job type")
	ErrInvalidJobPayload = errors.New("invalid job payload")
)

func IsKnownType(t string) bool {
	switch t {
	case TypePasswordResetEmail, TypeWelcomeEmail:
		return true
	default:
		return false
	}
}
