package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SplitbillServiceName is the fully-qualified name of the splitbill service.
const SplitbillServiceName = "splitbill.v1.SplitbillService"

const (
	SplitbillServiceCreateSplitbillProcedure = "/splitbill.v1.SplitbillService/CreateSplitbill"
	SplitbillServiceGetSplitbillProcedure    = "/splitbill.v1.SplitbillService/GetSplitbill"
	SplitbillServiceListSplitbillsProcedure  = "/splitbill.v1.SplitbillService/ListSplitbills"
	SplitbillServiceUpdateSplitbillProcedure = "/splitbill.v1.SplitbillService/UpdateSplitbill"
	SplitbillServiceSettleSplitbillProcedure = "/splitbill.v1.SplitbillService/SettleSplitbill"
	SplitbillServiceAddMembersProcedure      = "/splitbill.v1.SplitbillService/AddMembers"
	SplitbillServiceRemoveMemberProcedure    = "/splitbill.v1.SplitbillService/RemoveMember"
	SplitbillServiceCreateCommentProcedure   = "/splitbill.v1.SplitbillService/CreateComment"
	SplitbillServiceCreateGuestLinkProcedure = "/splitbill.v1.SplitbillService/CreateGuestLink"
	SplitbillServiceGuestViewProcedure       = "/splitbill.v1.SplitbillService/GuestView"
)

type CreateSplitbillRequest struct {
	Title    string       `json:"title"`
	Currency string       `json:"currency"`
	Members  []*NewMember `json:"members"`
}

type CreateSplitbillResponse struct {
	Splitbill *Splitbill `json:"splitbill"`
}

type GetSplitbillRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type GetSplitbillResponse struct {
	View *SplitbillView `json:"view"`
}

type ListSplitbillsRequest struct{}

type ListSplitbillsResponse struct {
	Splitbills []*Splitbill `json:"splitbills"`
}

type UpdateSplitbillRequest struct {
	SplitbillId string `json:"splitbill_id"`
	Title       string `json:"title,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

type UpdateSplitbillResponse struct {
	Splitbill *Splitbill `json:"splitbill"`
}

type SettleSplitbillRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type SettleSplitbillResponse struct {
	Splitbill *Splitbill `json:"splitbill"`
}

type AddMembersRequest struct {
	SplitbillId string       `json:"splitbill_id"`
	Members     []*NewMember `json:"members"`
}

type AddMembersResponse struct {
	Members []*Member `json:"members"`
}

type RemoveMemberRequest struct {
	SplitbillId string `json:"splitbill_id"`
	MemberId    string `json:"member_id"`
}

type RemoveMemberResponse struct{}

type CreateCommentRequest struct {
	SplitbillId string `json:"splitbill_id"`
	Text        string `json:"text"`
}

type CreateCommentResponse struct {
	Comment *Comment `json:"comment"`
}

type CreateGuestLinkRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type CreateGuestLinkResponse struct {
	Token     string `json:"token"`
	Url       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type GuestViewRequest struct {
	Token string `json:"token"`
}

type GuestViewResponse struct {
	View *SplitbillView `json:"view"`
}

// SplitbillServiceHandler is the server-side contract of the splitbill
// service.
type SplitbillServiceHandler interface {
	CreateSplitbill(context.Context, *connect.Request[CreateSplitbillRequest]) (*connect.Response[CreateSplitbillResponse], error)
	GetSplitbill(context.Context, *connect.Request[GetSplitbillRequest]) (*connect.Response[GetSplitbillResponse], error)
	ListSplitbills(context.Context, *connect.Request[ListSplitbillsRequest]) (*connect.Response[ListSplitbillsResponse], error)
	UpdateSplitbill(context.Context, *connect.Request[UpdateSplitbillRequest]) (*connect.Response[UpdateSplitbillResponse], error)
	SettleSplitbill(context.Context, *connect.Request[SettleSplitbillRequest]) (*connect.Response[SettleSplitbillResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
	CreateComment(context.Context, *connect.Request[CreateCommentRequest]) (*connect.Response[CreateCommentResponse], error)
	CreateGuestLink(context.Context, *connect.Request[CreateGuestLinkRequest]) (*connect.Response[CreateGuestLinkResponse], error)
	GuestView(context.Context, *connect.Request[GuestViewRequest]) (*connect.Response[GuestViewResponse], error)
}

// NewSplitbillServiceHandler builds an HTTP handler for the splitbill
// service. It returns the path prefix to mount the handler on.
func NewSplitbillServiceHandler(svc SplitbillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(SplitbillServiceCreateSplitbillProcedure, connect.NewUnaryHandler(
		SplitbillServiceCreateSplitbillProcedure, svc.CreateSplitbill, opts...))
	mux.Handle(SplitbillServiceGetSplitbillProcedure, connect.NewUnaryHandler(
		SplitbillServiceGetSplitbillProcedure, svc.GetSplitbill, opts...))
	mux.Handle(SplitbillServiceListSplitbillsProcedure, connect.NewUnaryHandler(
		SplitbillServiceListSplitbillsProcedure, svc.ListSplitbills, opts...))
	mux.Handle(SplitbillServiceUpdateSplitbillProcedure, connect.NewUnaryHandler(
		SplitbillServiceUpdateSplitbillProcedure, svc.UpdateSplitbill, opts...))
	mux.Handle(SplitbillServiceSettleSplitbillProcedure, connect.NewUnaryHandler(
		SplitbillServiceSettleSplitbillProcedure, svc.SettleSplitbill, opts...))
	mux.Handle(SplitbillServiceAddMembersProcedure, connect.NewUnaryHandler(
		SplitbillServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(SplitbillServiceRemoveMemberProcedure, connect.NewUnaryHandler(
		SplitbillServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(SplitbillServiceCreateCommentProcedure, connect.NewUnaryHandler(
		SplitbillServiceCreateCommentProcedure, svc.CreateComment, opts...))
	mux.Handle(SplitbillServiceCreateGuestLinkProcedure, connect.NewUnaryHandler(
		SplitbillServiceCreateGuestLinkProcedure, svc.CreateGuestLink, opts...))
	mux.Handle(SplitbillServiceGuestViewProcedure, connect.NewUnaryHandler(
		SplitbillServiceGuestViewProcedure, svc.GuestView, opts...))
	return "/" + SplitbillServiceName + "/", mux
}

// SplitbillServiceClient is the client-side contract of the splitbill
// service.
type SplitbillServiceClient interface {
	CreateSplitbill(context.Context, *connect.Request[CreateSplitbillRequest]) (*connect.Response[CreateSplitbillResponse], error)
	GetSplitbill(context.Context, *connect.Request[GetSplitbillRequest]) (*connect.Response[GetSplitbillResponse], error)
	ListSplitbills(context.Context, *connect.Request[ListSplitbillsRequest]) (*connect.Response[ListSplitbillsResponse], error)
	UpdateSplitbill(context.Context, *connect.Request[UpdateSplitbillRequest]) (*connect.Response[UpdateSplitbillResponse], error)
	SettleSplitbill(context.Context, *connect.Request[SettleSplitbillRequest]) (*connect.Response[SettleSplitbillResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
	CreateComment(context.Context, *connect.Request[CreateCommentRequest]) (*connect.Response[CreateCommentResponse], error)
	CreateGuestLink(context.Context, *connect.Request[CreateGuestLinkRequest]) (*connect.Response[CreateGuestLinkResponse], error)
	GuestView(context.Context, *connect.Request[GuestViewRequest]) (*connect.Response[GuestViewResponse], error)
}

type splitbillServiceClient struct {
	createSplitbill *connect.Client[CreateSplitbillRequest, CreateSplitbillResponse]
	getSplitbill    *connect.Client[GetSplitbillRequest, GetSplitbillResponse]
	listSplitbills  *connect.Client[ListSplitbillsRequest, ListSplitbillsResponse]
	updateSplitbill *connect.Client[UpdateSplitbillRequest, UpdateSplitbillResponse]
	settleSplitbill *connect.Client[SettleSplitbillRequest, SettleSplitbillResponse]
	addMembers      *connect.Client[AddMembersRequest, AddMembersResponse]
	removeMember    *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
	createComment   *connect.Client[CreateCommentRequest, CreateCommentResponse]
	createGuestLink *connect.Client[CreateGuestLinkRequest, CreateGuestLinkResponse]
	guestView       *connect.Client[GuestViewRequest, GuestViewResponse]
}

// NewSplitbillServiceClient builds a Connect client for the splitbill
// service.
func NewSplitbillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SplitbillServiceClient {
	opts = clientOptions(opts)
	return &splitbillServiceClient{
		createSplitbill: connect.NewClient[CreateSplitbillRequest, CreateSplitbillResponse](
			httpClient, baseURL+SplitbillServiceCreateSplitbillProcedure, opts...),
		getSplitbill: connect.NewClient[GetSplitbillRequest, GetSplitbillResponse](
			httpClient, baseURL+SplitbillServiceGetSplitbillProcedure, opts...),
		listSplitbills: connect.NewClient[ListSplitbillsRequest, ListSplitbillsResponse](
			httpClient, baseURL+SplitbillServiceListSplitbillsProcedure, opts...),
		updateSplitbill: connect.NewClient[UpdateSplitbillRequest, UpdateSplitbillResponse](
			httpClient, baseURL+SplitbillServiceUpdateSplitbillProcedure, opts...),
		settleSplitbill: connect.NewClient[SettleSplitbillRequest, SettleSplitbillResponse](
			httpClient, baseURL+SplitbillServiceSettleSplitbillProcedure, opts...),
		addMembers: connect.NewClient[AddMembersRequest, AddMembersResponse](
			httpClient, baseURL+SplitbillServiceAddMembersProcedure, opts...),
		removeMember: connect.NewClient[RemoveMemberRequest, RemoveMemberResponse](
			httpClient, baseURL+SplitbillServiceRemoveMemberProcedure, opts...),
		createComment: connect.NewClient[CreateCommentRequest, CreateCommentResponse](
			httpClient, baseURL+SplitbillServiceCreateCommentProcedure, opts...),
		createGuestLink: connect.NewClient[CreateGuestLinkRequest, CreateGuestLinkResponse](
			httpClient, baseURL+SplitbillServiceCreateGuestLinkProcedure, opts...),
		guestView: connect.NewClient[GuestViewRequest, GuestViewResponse](
			httpClient, baseURL+SplitbillServiceGuestViewProcedure, opts...),
	}
}

func (c *splitbillServiceClient) CreateSplitbill(ctx context.Context, req *connect.Request[CreateSplitbillRequest]) (*connect.Response[CreateSplitbillResponse], error) {
	return c.createSplitbill.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) GetSplitbill(ctx context.Context, req *connect.Request[GetSplitbillRequest]) (*connect.Response[GetSplitbillResponse], error) {
	return c.getSplitbill.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) ListSplitbills(ctx context.Context, req *connect.Request[ListSplitbillsRequest]) (*connect.Response[ListSplitbillsResponse], error) {
	return c.listSplitbills.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) UpdateSplitbill(ctx context.Context, req *connect.Request[UpdateSplitbillRequest]) (*connect.Response[UpdateSplitbillResponse], error) {
	return c.updateSplitbill.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) SettleSplitbill(ctx context.Context, req *connect.Request[SettleSplitbillRequest]) (*connect.Response[SettleSplitbillResponse], error) {
	return c.settleSplitbill.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) CreateComment(ctx context.Context, req *connect.Request[CreateCommentRequest]) (*connect.Response[CreateCommentResponse], error) {
	return c.createComment.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) CreateGuestLink(ctx context.Context, req *connect.Request[CreateGuestLinkRequest]) (*connect.Response[CreateGuestLinkResponse], error) {
	return c.createGuestLink.CallUnary(ctx, req)
}

func (c *splitbillServiceClient) GuestView(ctx context.Context, req *connect.Request[GuestViewRequest]) (*connect.Response[GuestViewResponse], error) {
	return c.guestView.CallUnary(ctx, req)
}
