// Package email sends the transactional mails of the splitbill server:
// account activation links, password resets and splitbill invitations.
// Delivery is best effort; callers log failures and never fail the
// originating request over them.
package email

import "context"

// Notifier is the outbound mail contract of the service layer.
type Notifier interface {
	// SendActivation mails the account activation link.
	SendActivation(ctx context.Context, toEmail, username, token string) error

	// SendInvite tells someone they were added to a splitbill.
	SendInvite(ctx context.Context, toEmail, billTitle, inviterName string) error

	// SendPasswordReset mails the password reset link.
	SendPasswordReset(ctx context.Context, toEmail, username, token string) error
}

// Disabled is a Notifier that silently drops every message. It is used
// when no mail provider is configured.
type Disabled struct{}

func (Disabled) SendActivation(context.Context, string, string, string) error { return nil }

func (Disabled) SendInvite(context.Context, string, string, string) error { return nil }

func (Disabled) SendPasswordReset(context.Context, string, string, string) error { return nil }
