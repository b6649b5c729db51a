package auth

import "context"

// Mailer delivers an HTML email.
//
//go:generate mockgen -package=auth -destination=mock_mailer_test.go -source=mailer.go Mailer
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
