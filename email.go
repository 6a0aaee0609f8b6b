package authcore

import "log/slog"

// Sender delivers one-time secrets to their owner. Applications provide their
// own implementation; delivery failures are logged and do not fail the request.
type Sender interface {
	SendOTP(to, code string) error
	SendMagicLink(to, link string) error
	SendPasswordReset(to, token string) error
}

// ConsoleSender is a development Sender that writes messages to the log.
type ConsoleSender struct {
	Logger *slog.Logger
}

func (c *ConsoleSender) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *ConsoleSender) SendOTP(to, code string) error {
	c.logger().Info("email: login code", "to", to, "subject", "Your login code", "code", code)
	return nil
}

func (c *ConsoleSender) SendMagicLink(to, link string) error {
	c.logger().Info("email: magic link", "to", to, "subject", "Sign in to Reweave", "link", link)
	return nil
}

func (c *ConsoleSender) SendPasswordReset(to, token string) error {
	c.logger().Info("email: password reset", "to", to, "subject", "Reset your password", "token", token)
	return nil
}
