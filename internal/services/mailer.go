package services

import (
	"context"
	"log/slog"
)

// Mailer delivers password reset tokens. Delivery itself lives outside this
// service.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer records that a reset mail would have been sent. The token is not
// logged.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	slog.InfoContext(ctx, "password reset issued", "email", email, "token_len", len(token))
	return nil
}
