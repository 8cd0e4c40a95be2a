package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"splitbill/internal/auth"
	"splitbill/internal/models"
	"splitbill/internal/rpc"
)

// echoAuthService reflects the context identity back to the caller so the
// tests can observe what the interceptor injected.
type echoAuthService struct{}

func (echoAuthService) Register(ctx context.Context, req *connect.Request[rpc.RegisterRequest]) (*connect.Response[rpc.RegisterResponse], error) {
	return connect.NewResponse(&rpc.RegisterResponse{User: &rpc.User{Username: "public"}}), nil
}

func (echoAuthService) Activate(ctx context.Context, req *connect.Request[rpc.ActivateRequest]) (*connect.Response[rpc.ActivateResponse], error) {
	return connect.NewResponse(&rpc.ActivateResponse{}), nil
}

func (echoAuthService) Login(ctx context.Context, req *connect.Request[rpc.LoginRequest]) (*connect.Response[rpc.LoginResponse], error) {
	return connect.NewResponse(&rpc.LoginResponse{}), nil
}

func (echoAuthService) RequestPasswordReset(ctx context.Context, req *connect.Request[rpc.RequestPasswordResetRequest]) (*connect.Response[rpc.RequestPasswordResetResponse], error) {
	return connect.NewResponse(&rpc.RequestPasswordResetResponse{}), nil
}

func (echoAuthService) ResetPassword(ctx context.Context, req *connect.Request[rpc.ResetPasswordRequest]) (*connect.Response[rpc.ResetPasswordResponse], error) {
	return connect.NewResponse(&rpc.ResetPasswordResponse{}), nil
}

func (echoAuthService) GetCurrentUser(ctx context.Context, req *connect.Request[rpc.GetCurrentUserRequest]) (*connect.Response[rpc.GetCurrentUserResponse], error) {
	return connect.NewResponse(&rpc.GetCurrentUserResponse{User: &rpc.User{
		Id:    GetUserID(ctx),
		Email: GetEmail(ctx),
	}}), nil
}

func setupAuthTestServer(t *testing.T) (rpc.AuthServiceClient, *auth.JWTManager, func()) {
	t.Helper()

	jm := auth.NewJWTManager("test-secret", time.Hour)
	path, handler := rpc.NewAuthServiceHandler(echoAuthService{}, connect.WithInterceptors(
		RequireAuth(jm,
			rpc.AuthServiceRegisterProcedure,
			rpc.AuthServiceActivateProcedure,
			rpc.AuthServiceLoginProcedure,
		),
	))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	client := rpc.NewAuthServiceClient(http.DefaultClient, server.URL)
	return client, jm, server.Close
}

func TestRequireAuth_ValidToken(t *testing.T) {
	client, jm, cleanup := setupAuthTestServer(t)
	defer cleanup()

	user := &models.User{ID: "user-123", Email: "alice@example.com"}
	token, err := jm.Generate(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	req := connect.NewRequest(&rpc.GetCurrentUserRequest{})
	req.Header().Set("Authorization", "Bearer "+token)

	resp, err := client.GetCurrentUser(context.Background(), req)
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.Id != "user-123" {
		t.Errorf("expected user ID user-123 in context, got %q", resp.Msg.User.Id)
	}
	if resp.Msg.User.Email != "alice@example.com" {
		t.Errorf("expected email in context, got %q", resp.Msg.User.Email)
	}
}

func TestRequireAuth_RejectsBadTokens(t *testing.T) {
	client, _, cleanup := setupAuthTestServer(t)
	defer cleanup()

	otherManager := auth.NewJWTManager("different-secret", time.Hour)
	forged, err := otherManager.Generate(&models.User{ID: "user-123", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong signing key", "Bearer " + forged},
	}
	for _, tc := range cases {
		req := connect.NewRequest(&rpc.GetCurrentUserRequest{})
		if tc.header != "" {
			req.Header().Set("Authorization", tc.header)
		}
		_, err := client.GetCurrentUser(context.Background(), req)
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("%s: expected CodeUnauthenticated, got %v", tc.name, connect.CodeOf(err))
		}
	}
}

func TestRequireAuth_PublicProcedures(t *testing.T) {
	client, _, cleanup := setupAuthTestServer(t)
	defer cleanup()

	// No Authorization header at all; the listed procedures still go
	// through.
	resp, err := client.Register(context.Background(), connect.NewRequest(&rpc.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "correct horse battery",
	}))
	if err != nil {
		t.Fatalf("Register should be public, got %v", err)
	}
	if resp.Msg.User.Username != "public" {
		t.Errorf("expected the handler to run, got %+v", resp.Msg.User)
	}

	if _, err := client.Login(context.Background(), connect.NewRequest(&rpc.LoginRequest{})); err != nil {
		t.Errorf("Login should be public, got %v", err)
	}
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	interceptor := LoggingInterceptor(logger)

	ok := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, nil
	})
	if _, err := ok(context.Background(), connect.NewRequest(&rpc.GetCurrentUserRequest{})); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "RPC ok") {
		t.Errorf("expected success log, got %q", buf.String())
	}

	buf.Reset()
	failing := interceptor(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("no such bill"))
	})
	if _, err := failing(context.Background(), connect.NewRequest(&rpc.GetCurrentUserRequest{})); err == nil {
		t.Fatal("expected the error to pass through")
	}
	if !strings.Contains(buf.String(), "RPC error") || !strings.Contains(buf.String(), "no such bill") {
		t.Errorf("expected error log, got %q", buf.String())
	}
}
