package notifications

import "context"

type PasswordResetInput struct {
	Email      string
	FirstName  string
	ResetToken string
	ExpiresAt  string
}

type WelcomeInput struct {
	Email     string
	FirstName string
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, input PasswordResetInput) error
	SendWelcome(ctx context.Context, input WelcomeInput) error
}
