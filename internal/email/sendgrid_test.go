package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendActivation(t *testing.T) {
	var received sgMail
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewSendGridClient("test-key", "noreply@example.com", "https://bills.test", WithAPIURL(server.URL))

	err := client.SendActivation(context.Background(), "alice@example.com", "alice", "tok-123")
	if err != nil {
		t.Fatalf("send activation: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if len(received.Personalizations) != 1 || len(received.Personalizations[0].To) != 1 {
		t.Fatalf("unexpected personalizations: %+v", received.Personalizations)
	}
	if to := received.Personalizations[0].To[0].Email; to != "alice@example.com" {
		t.Errorf("To = %q, want %q", to, "alice@example.com")
	}
	if received.From.Email != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From.Email, "noreply@example.com")
	}
	if len(received.Content) != 1 || !strings.Contains(received.Content[0].Value, "https://bills.test/activate?token=tok-123") {
		t.Errorf("activation link missing from body: %+v", received.Content)
	}
}

func TestSendInvite(t *testing.T) {
	var received sgMail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewSendGridClient("test-key", "noreply@example.com", "https://bills.test", WithAPIURL(server.URL))

	err := client.SendInvite(context.Background(), "bob@example.com", "Ski trip", "alice")
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}

	if !strings.Contains(received.Subject, "Ski trip") || !strings.Contains(received.Subject, "alice") {
		t.Errorf("Subject = %q, want bill title and inviter", received.Subject)
	}
}

func TestSendPasswordReset(t *testing.T) {
	var received sgMail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewSendGridClient("test-key", "noreply@example.com", "https://bills.test", WithAPIURL(server.URL))

	err := client.SendPasswordReset(context.Background(), "bob@example.com", "bob", "tok-456")
	if err != nil {
		t.Fatalf("send password reset: %v", err)
	}

	if len(received.Content) != 1 || !strings.Contains(received.Content[0].Value, "https://bills.test/reset-password?token=tok-456") {
		t.Errorf("reset link missing from body: %+v", received.Content)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewSendGridClient("", "noreply@example.com", "https://bills.test")

	err := client.SendActivation(context.Background(), "alice@example.com", "alice", "tok")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewSendGridClient("bad-key", "noreply@example.com", "https://bills.test", WithAPIURL(server.URL))

	err := client.SendInvite(context.Background(), "bob@example.com", "Ski trip", "alice")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestDisabledNotifier(t *testing.T) {
	var n Notifier = Disabled{}

	if err := n.SendActivation(context.Background(), "a@b.c", "a", "tok"); err != nil {
		t.Errorf("Disabled.SendActivation = %v, want nil", err)
	}
	if err := n.SendInvite(context.Background(), "a@b.c", "Trip", "a"); err != nil {
		t.Errorf("Disabled.SendInvite = %v, want nil", err)
	}
	if err := n.SendPasswordReset(context.Background(), "a@b.c", "a", "tok"); err != nil {
		t.Errorf("Disabled.SendPasswordReset = %v, want nil", err)
	}
}
