package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// AuthServiceName is the fully-qualified name of the auth service.
const AuthServiceName = "splitbill.v1.AuthService"

const (
	AuthServiceRegisterProcedure             = "/splitbill.v1.AuthService/Register"
	AuthServiceActivateProcedure             = "/splitbill.v1.AuthService/Activate"
	AuthServiceLoginProcedure                = "/splitbill.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure       = "/splitbill.v1.AuthService/GetCurrentUser"
	AuthServiceRequestPasswordResetProcedure = "/splitbill.v1.AuthService/RequestPasswordReset"
	AuthServiceResetPasswordProcedure        = "/splitbill.v1.AuthService/ResetPassword"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User *User `json:"user"`
}

type ActivateRequest struct {
	Token string `json:"token"`
}

type ActivateResponse struct {
	User *User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordResetResponse is empty on purpose: the response must not
// reveal whether the email is registered.
type RequestPasswordResetResponse struct{}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ResetPasswordResponse struct{}

// AuthServiceHandler is the server-side contract of the auth service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Activate(context.Context, *connect.Request[ActivateRequest]) (*connect.Response[ActivateResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
	RequestPasswordReset(context.Context, *connect.Request[RequestPasswordResetRequest]) (*connect.Response[RequestPasswordResetResponse], error)
	ResetPassword(context.Context, *connect.Request[ResetPasswordRequest]) (*connect.Response[ResetPasswordResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler for the auth service. It
// returns the path prefix to mount the handler on.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(
		AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceActivateProcedure, connect.NewUnaryHandler(
		AuthServiceActivateProcedure, svc.Activate, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(
		AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(
		AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	mux.Handle(AuthServiceRequestPasswordResetProcedure, connect.NewUnaryHandler(
		AuthServiceRequestPasswordResetProcedure, svc.RequestPasswordReset, opts...))
	mux.Handle(AuthServiceResetPasswordProcedure, connect.NewUnaryHandler(
		AuthServiceResetPasswordProcedure, svc.ResetPassword, opts...))
	return "/" + AuthServiceName + "/", mux
}

// AuthServiceClient is the client-side contract of the auth service.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Activate(context.Context, *connect.Request[ActivateRequest]) (*connect.Response[ActivateResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
	RequestPasswordReset(context.Context, *connect.Request[RequestPasswordResetRequest]) (*connect.Response[RequestPasswordResetResponse], error)
	ResetPassword(context.Context, *connect.Request[ResetPasswordRequest]) (*connect.Response[ResetPasswordResponse], error)
}

type authServiceClient struct {
	register             *connect.Client[RegisterRequest, RegisterResponse]
	activate             *connect.Client[ActivateRequest, ActivateResponse]
	login                *connect.Client[LoginRequest, LoginResponse]
	getCurrentUser       *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
	requestPasswordReset *connect.Client[RequestPasswordResetRequest, RequestPasswordResetResponse]
	resetPassword        *connect.Client[ResetPasswordRequest, ResetPasswordResponse]
}

// NewAuthServiceClient builds a Connect client for the auth service.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	opts = clientOptions(opts)
	return &authServiceClient{
		register: connect.NewClient[RegisterRequest, RegisterResponse](
			httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		activate: connect.NewClient[ActivateRequest, ActivateResponse](
			httpClient, baseURL+AuthServiceActivateProcedure, opts...),
		login: connect.NewClient[LoginRequest, LoginResponse](
			httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](
			httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
		requestPasswordReset: connect.NewClient[RequestPasswordResetRequest, RequestPasswordResetResponse](
			httpClient, baseURL+AuthServiceRequestPasswordResetProcedure, opts...),
		resetPassword: connect.NewClient[ResetPasswordRequest, ResetPasswordResponse](
			httpClient, baseURL+AuthServiceResetPasswordProcedure, opts...),
	}
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Activate(ctx context.Context, req *connect.Request[ActivateRequest]) (*connect.Response[ActivateResponse], error) {
	return c.activate.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *authServiceClient) RequestPasswordReset(ctx context.Context, req *connect.Request[RequestPasswordResetRequest]) (*connect.Response[RequestPasswordResetResponse], error) {
	return c.requestPasswordReset.CallUnary(ctx, req)
}

func (c *authServiceClient) ResetPassword(ctx context.Context, req *connect.Request[ResetPasswordRequest]) (*connect.Response[ResetPasswordResponse], error) {
	return c.resetPassword.CallUnary(ctx, req)
}
