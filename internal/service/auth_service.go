package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"splitbill/internal/auth"
	"splitbill/internal/email"
	"splitbill/internal/middleware"
	"splitbill/internal/models"
	"splitbill/internal/rpc"
	"splitbill/internal/storage"
)

// resetTokenTTL bounds how long a mailed password reset link stays valid.
const resetTokenTTL = time.Hour

// AuthService implements the account procedures: registration with email
// activation, login and the current-user lookup.
type AuthService struct {
	store         storage.Store
	authenticator auth.Authenticator
	tokens        *auth.JWTManager
	notifier      email.Notifier
}

var _ rpc.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates the auth service.
func NewAuthService(store storage.Store, authenticator auth.Authenticator, tokens *auth.JWTManager, notifier email.Notifier) *AuthService {
	return &AuthService{
		store:         store,
		authenticator: authenticator,
		tokens:        tokens,
		notifier:      notifier,
	}
}

// Register creates a pending account, links any member rows invited under
// the same email and mails the activation link.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[rpc.RegisterRequest]) (*connect.Response[rpc.RegisterResponse], error) {
	username := strings.TrimSpace(req.Msg.Username)
	emailAddr := strings.ToLower(strings.TrimSpace(req.Msg.Email))
	if username == "" || !strings.Contains(emailAddr, "@") {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("username and a valid email are required"))
	}

	user, err := s.authenticator.Register(ctx, username, emailAddr, req.Msg.Password)
	if err != nil {
		slog.Warn("Register failed", "email", emailAddr, "error", err)
		return nil, rpcError(err)
	}

	claimed, err := s.store.ClaimPendingMembers(ctx, user.Email, user.ID)
	if err != nil {
		slog.Error("Register: failed to claim pending members", "user_id", user.ID, "error", err)
	} else if claimed > 0 {
		slog.Info("Linked pending members to new account", "user_id", user.ID, "members", claimed)
	}

	if err := s.notifier.SendActivation(ctx, user.Email, user.Username, user.ActivationToken); err != nil {
		slog.Warn("Register: failed to send activation mail", "user_id", user.ID, "error", err)
	}

	return connect.NewResponse(&rpc.RegisterResponse{User: rpcUser(user)}), nil
}

// Activate confirms an account via the mailed token. Tokens are single
// use; activation burns them.
func (s *AuthService) Activate(ctx context.Context, req *connect.Request[rpc.ActivateRequest]) (*connect.Response[rpc.ActivateResponse], error) {
	token := strings.TrimSpace(req.Msg.Token)
	if token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("activation token required"))
	}

	user, err := s.store.GetUserByActivationToken(ctx, token)
	if err != nil {
		return nil, rpcError(err)
	}

	if err := s.store.ActivateUser(ctx, user.ID); err != nil {
		slog.Error("Activate failed", "user_id", user.ID, "error", err)
		return nil, rpcError(err)
	}

	user.Status = models.UserActive
	user.ActivationToken = ""
	return connect.NewResponse(&rpc.ActivateResponse{User: rpcUser(user)}), nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[rpc.LoginRequest]) (*connect.Response[rpc.LoginResponse], error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Msg.Email))

	user, err := s.authenticator.Authenticate(ctx, emailAddr, req.Msg.Password)
	if err != nil {
		slog.Warn("Login failed", "email", emailAddr, "error", err)
		return nil, rpcError(err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.Error("Login: failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&rpc.LoginResponse{
		Token: token,
		User:  rpcUser(user),
	}), nil
}

// RequestPasswordReset mails a reset link if the email belongs to an
// account. It always reports success so callers cannot probe which
// addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *connect.Request[rpc.RequestPasswordResetRequest]) (*connect.Response[rpc.RequestPasswordResetResponse], error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Msg.Email))

	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		slog.Info("Password reset requested for unknown email", "email", emailAddr)
		return connect.NewResponse(&rpc.RequestPasswordResetResponse{}), nil
	}

	reset := models.NewPasswordReset(user.ID, resetTokenTTL)
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		slog.Error("Failed to create password reset", "user_id", user.ID, "error", err)
		return nil, rpcError(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Username, reset.Token); err != nil {
		slog.Warn("Failed to send password reset mail", "user_id", user.ID, "error", err)
	}

	return connect.NewResponse(&rpc.RequestPasswordResetResponse{}), nil
}

// ResetPassword exchanges a mailed reset token for a new password. The
// user's outstanding reset tokens are burned on success.
func (s *AuthService) ResetPassword(ctx context.Context, req *connect.Request[rpc.ResetPasswordRequest]) (*connect.Response[rpc.ResetPasswordResponse], error) {
	token := strings.TrimSpace(req.Msg.Token)
	if token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("reset token required"))
	}

	reset, err := s.store.GetPasswordReset(ctx, token)
	if err != nil {
		return nil, rpcError(err)
	}
	if time.Now().Unix() > reset.ExpiresAt {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("reset token expired"))
	}

	hash, err := s.authenticator.HashCredential(req.Msg.Password)
	if err != nil {
		return nil, rpcError(err)
	}

	if err := s.store.ResetPassword(ctx, reset.UserID, hash); err != nil {
		slog.Error("Failed to reset password", "user_id", reset.UserID, "error", err)
		return nil, rpcError(err)
	}

	slog.Info("Password reset", "user_id", reset.UserID)
	return connect.NewResponse(&rpc.ResetPasswordResponse{}), nil
}

// GetCurrentUser returns the account behind the session token.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[rpc.GetCurrentUserRequest]) (*connect.Response[rpc.GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.GetCurrentUserResponse{User: rpcUser(user)}), nil
}
