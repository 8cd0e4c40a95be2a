package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridClient delivers mail through the SendGrid v3 REST API.
type SendGridClient struct {
	apiKey     string
	fromEmail  string
	baseURL    string // public URL of the app, used to build links
	apiURL     string
	httpClient *http.Client
}

type Option func(*SendGridClient)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *SendGridClient) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the SendGrid endpoint, mainly for tests.
func WithAPIURL(u string) Option {
	return func(cl *SendGridClient) {
		cl.apiURL = u
	}
}

// NewSendGridClient creates a SendGrid-backed Notifier. baseURL is the
// public address of the splitbill app (links in mails point there).
func NewSendGridClient(apiKey, fromEmail, baseURL string, opts ...Option) *SendGridClient {
	c := &SendGridClient{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    baseURL,
		apiURL:     defaultAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *SendGridClient) Configured() bool {
	return c.apiKey != ""
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendActivation mails the account activation link.
func (c *SendGridClient) SendActivation(ctx context.Context, toEmail, username, token string) error {
	link := fmt.Sprintf("%s/activate?token=%s", c.baseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nFollow the link below to activate your splitbill account:\n\n%s\n\nIf you did not sign up, ignore this mail.",
		username, link,
	)
	return c.send(ctx, toEmail, "Activate your splitbill account", body)
}

// SendInvite tells someone they were added to a splitbill.
func (c *SendGridClient) SendInvite(ctx context.Context, toEmail, billTitle, inviterName string) error {
	subject := fmt.Sprintf("%s added you to %q on splitbill", inviterName, billTitle)
	body := fmt.Sprintf(
		"%s added you to the splitbill %q.\n\nSign up with this email address at %s to see your share.",
		inviterName, billTitle, c.baseURL,
	)
	return c.send(ctx, toEmail, subject, body)
}

// SendPasswordReset mails the password reset link.
func (c *SendGridClient) SendPasswordReset(ctx context.Context, toEmail, username, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.baseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nSomeone asked to reset the password for this account. Follow the link to choose a new one:\n\n%s\n\nIf that was not you, ignore this mail; the link expires on its own.",
		username, link,
	)
	return c.send(ctx, toEmail, "Reset your splitbill password", body)
}

func (c *SendGridClient) send(ctx context.Context, toEmail, subject, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing API key")
	}

	payload := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: toEmail}}}},
		From:             sgAddress{Email: c.fromEmail},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/plain", Value: textBody}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid API error: status %d", resp.StatusCode)
	}

	return nil
}
