package notifications

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// SMTPNotifier delivers the out-of-band mail: the reset secret reaches the
// user through this channel, not (only) through the API response.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	e := email.NewEmail()
	e.From = n.cfg.Sender
	e.To = []string{in.Email}
	e.Subject = "Reset your Gathrio password"

	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"We received a request to reset your password. Use this token to set a new one:\n\n"+
			"%s\n\n"+
			"It expires at %s. If you did not request a reset, ignore this message.\n\n"+
			"— Gathrio",
		in.FirstName, in.ResetToken, in.ExpiresAt,
	)
	e.Text = []byte(body)

	return n.send(ctx, e)
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	e := email.NewEmail()
	e.From = n.cfg.Sender
	e.To = []string{in.Email}
	e.Subject = "Welcome to Gathrio"

	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your account is ready. Browse events, or create your own as an organizer.\n\n"+
			"— Gathrio",
		in.FirstName,
	)
	e.Text = []byte(body)

	return n.send(ctx, e)
}

func (n *SMTPNotifier) send(ctx context.Context, e *email.Email) error {
	// The smtp dial has no context hook; honor cancellation before the
	// blocking call at least.
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	err := e.Send(addr, auth)

	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}
