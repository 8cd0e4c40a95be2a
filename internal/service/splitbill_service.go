package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"connectrpc.com/connect"

	"splitbill/internal/email"
	"splitbill/internal/middleware"
	"splitbill/internal/models"
	"splitbill/internal/rpc"
	"splitbill/internal/storage"
)

// guestLinkTTL is how long a guest link stays valid.
const guestLinkTTL = 7 * 24 * time.Hour

// SplitbillService implements the bill lifecycle procedures: creation with
// invitations, the full bill view, membership, comments and guest links.
type SplitbillService struct {
	store    storage.Store
	notifier email.Notifier
	baseURL  string
}

var _ rpc.SplitbillServiceHandler = (*SplitbillService)(nil)

// NewSplitbillService creates the splitbill service. baseURL is the public
// address of the app, used to build guest link URLs.
func NewSplitbillService(store storage.Store, notifier email.Notifier, baseURL string) *SplitbillService {
	return &SplitbillService{
		store:    store,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// CreateSplitbill creates a bill with its initial members. The creator
// becomes the first member automatically; members with a registered email
// are linked to their account, the rest stay pending until they sign up.
func (s *SplitbillService) CreateSplitbill(ctx context.Context, req *connect.Request[rpc.CreateSplitbillRequest]) (*connect.Response[rpc.CreateSplitbillResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	title := strings.TrimSpace(req.Msg.Title)
	if title == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("title required"))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Msg.Currency))
	if currency == "" {
		currency = "USD"
	}

	owner, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		slog.Error("CreateSplitbill: failed to load owner", "user_id", userID, "error", err)
		return nil, rpcError(err)
	}

	bill := &models.Splitbill{
		Title:    title,
		Currency: currency,
		OwnerID:  owner.ID,
		Status:   models.StatusActive,
		Members: []models.Member{{
			Alias:     owner.Username,
			Email:     owner.Email,
			UserID:    owner.ID,
			InvitedBy: owner.ID,
		}},
	}

	seen := map[string]struct{}{strings.ToLower(owner.Username): {}}
	for _, nm := range req.Msg.Members {
		member, err := s.newMember(ctx, nm, owner.ID, seen)
		if err != nil {
			return nil, err
		}
		bill.Members = append(bill.Members, *member)
	}

	if err := s.store.CreateSplitbill(ctx, bill); err != nil {
		slog.Error("CreateSplitbill failed", "error", err)
		return nil, rpcError(err)
	}

	s.sendInvites(ctx, bill, owner.Username, bill.Members[1:])

	return connect.NewResponse(&rpc.CreateSplitbillResponse{Splitbill: rpcSplitbill(bill)}), nil
}

// GetSplitbill returns the full view of one bill.
func (s *SplitbillService) GetSplitbill(ctx context.Context, req *connect.Request[rpc.GetSplitbillRequest]) (*connect.Response[rpc.GetSplitbillResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	view, err := s.buildView(ctx, bill)
	if err != nil {
		slog.Error("GetSplitbill: failed to build view", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.GetSplitbillResponse{View: view}), nil
}

// ListSplitbills lists every bill the caller is a member of, newest first.
func (s *SplitbillService) ListSplitbills(ctx context.Context, req *connect.Request[rpc.ListSplitbillsRequest]) (*connect.Response[rpc.ListSplitbillsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	bills, err := s.store.ListSplitbillsByUser(ctx, userID)
	if err != nil {
		slog.Error("ListSplitbills failed", "user_id", userID, "error", err)
		return nil, rpcError(err)
	}

	out := make([]*rpc.Splitbill, len(bills))
	for i, b := range bills {
		out[i] = rpcSplitbill(b)
	}
	return connect.NewResponse(&rpc.ListSplitbillsResponse{Splitbills: out}), nil
}

// UpdateSplitbill changes the title and/or currency of an active bill.
func (s *SplitbillService) UpdateSplitbill(ctx context.Context, req *connect.Request[rpc.UpdateSplitbillRequest]) (*connect.Response[rpc.UpdateSplitbillResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, rpcError(err)
	}

	if t := strings.TrimSpace(req.Msg.Title); t != "" {
		bill.Title = t
	}
	if c := strings.ToUpper(strings.TrimSpace(req.Msg.Currency)); c != "" {
		bill.Currency = c
	}

	if err := s.store.UpdateSplitbill(ctx, bill); err != nil {
		slog.Error("UpdateSplitbill failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.UpdateSplitbillResponse{Splitbill: rpcSplitbill(bill)}), nil
}

// SettleSplitbill closes a bill. Settled bills reject further financial
// events; settling twice fails.
func (s *SplitbillService) SettleSplitbill(ctx context.Context, req *connect.Request[rpc.SettleSplitbillRequest]) (*connect.Response[rpc.SettleSplitbillResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, rpcError(err)
	}

	bill.Status = models.StatusSettled
	if err := s.store.UpdateSplitbill(ctx, bill); err != nil {
		slog.Error("SettleSplitbill failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	slog.Info("Splitbill settled", "splitbill_id", bill.ID)
	return connect.NewResponse(&rpc.SettleSplitbillResponse{Splitbill: rpcSplitbill(bill)}), nil
}

// AddMembers adds members to an active bill and mails invitations.
func (s *SplitbillService) AddMembers(ctx context.Context, req *connect.Request[rpc.AddMembersRequest]) (*connect.Response[rpc.AddMembersResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	caller, err := requireMember(bill, middleware.GetUserID(ctx))
	if err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, rpcError(err)
	}
	if len(req.Msg.Members) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("at least one member required"))
	}

	seen := make(map[string]struct{}, len(bill.Members))
	for _, m := range bill.Members {
		seen[strings.ToLower(m.Alias)] = struct{}{}
	}

	var added []models.Member
	for _, nm := range req.Msg.Members {
		member, err := s.newMember(ctx, nm, caller.UserID, seen)
		if err != nil {
			return nil, err
		}
		member.SplitbillID = bill.ID
		if err := s.store.AddMember(ctx, member); err != nil {
			slog.Error("AddMembers failed", "splitbill_id", bill.ID, "alias", member.Alias, "error", err)
			return nil, rpcError(err)
		}
		added = append(added, *member)
	}

	s.sendInvites(ctx, bill, caller.Alias, added)

	out := make([]*rpc.Member, len(added))
	for i, m := range added {
		out[i] = rpcMember(m)
	}
	return connect.NewResponse(&rpc.AddMembersResponse{Members: out}), nil
}

// RemoveMember removes a member that has no recorded activity on the bill.
func (s *SplitbillService) RemoveMember(ctx context.Context, req *connect.Request[rpc.RemoveMemberRequest]) (*connect.Response[rpc.RemoveMemberResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, rpcError(err)
	}

	var target *models.Member
	for i := range bill.Members {
		if bill.Members[i].ID == req.Msg.MemberId {
			target = &bill.Members[i]
			break
		}
	}
	if target == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("member %s: %w", req.Msg.MemberId, storage.ErrNotFound))
	}

	if err := s.checkMemberIdle(ctx, bill.ID, target); err != nil {
		return nil, err
	}

	if err := s.store.RemoveMember(ctx, bill.ID, target.ID); err != nil {
		slog.Error("RemoveMember failed", "splitbill_id", bill.ID, "member_id", target.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.RemoveMemberResponse{}), nil
}

// CreateComment posts a comment on a bill. The author must be a member.
func (s *SplitbillService) CreateComment(ctx context.Context, req *connect.Request[rpc.CreateCommentRequest]) (*connect.Response[rpc.CreateCommentResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	author, err := requireMember(bill, middleware.GetUserID(ctx))
	if err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, rpcError(err)
	}

	text := strings.TrimSpace(req.Msg.Text)
	if n := utf8.RuneCountInString(text); n < 10 || n > 500 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("comment must be between 10 and 500 characters"))
	}

	comment := &models.Comment{
		SplitbillID:    bill.ID,
		AuthorMemberID: author.ID,
		Text:           text,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		slog.Error("CreateComment failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.CreateCommentResponse{Comment: rpcComment(comment)}), nil
}

// CreateGuestLink issues a time-limited read-only link for the bill.
func (s *SplitbillService) CreateGuestLink(ctx context.Context, req *connect.Request[rpc.CreateGuestLinkRequest]) (*connect.Response[rpc.CreateGuestLinkResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	token, err := guestToken()
	if err != nil {
		slog.Error("CreateGuestLink: failed to generate token", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	link := &models.GuestLink{
		Token:       token,
		SplitbillID: bill.ID,
		ExpiresAt:   time.Now().Add(guestLinkTTL).Unix(),
	}
	if err := s.store.CreateGuestLink(ctx, link); err != nil {
		slog.Error("CreateGuestLink failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.CreateGuestLinkResponse{
		Token:     token,
		Url:       fmt.Sprintf("%s/guest/%s", s.baseURL, token),
		ExpiresAt: link.ExpiresAt,
	}), nil
}

// GuestView returns the read-only bill view behind a guest link. No
// authentication required; expired links are rejected.
func (s *SplitbillService) GuestView(ctx context.Context, req *connect.Request[rpc.GuestViewRequest]) (*connect.Response[rpc.GuestViewResponse], error) {
	link, err := s.store.GetGuestLink(ctx, req.Msg.Token)
	if err != nil {
		return nil, rpcError(err)
	}
	if time.Now().Unix() > link.ExpiresAt {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("guest link expired"))
	}

	bill, err := s.store.GetSplitbill(ctx, link.SplitbillID)
	if err != nil {
		return nil, rpcError(err)
	}

	view, err := s.buildView(ctx, bill)
	if err != nil {
		slog.Error("GuestView: failed to build view", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.GuestViewResponse{View: view}), nil
}

// newMember builds one member row from a wire payload, linking it to an
// existing account when the email is already registered. seen tracks
// lowercase aliases to reject duplicates early.
func (s *SplitbillService) newMember(ctx context.Context, nm *rpc.NewMember, invitedBy string, seen map[string]struct{}) (*models.Member, error) {
	alias := strings.TrimSpace(nm.Alias)
	emailAddr := strings.ToLower(strings.TrimSpace(nm.Email))
	if alias == "" {
		// Fall back to the email local part as display name.
		if i := strings.IndexByte(emailAddr, '@'); i > 0 {
			alias = emailAddr[:i]
		} else {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("member needs an alias or an email"))
		}
	}

	key := strings.ToLower(alias)
	if _, dup := seen[key]; dup {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("duplicate member alias %q", alias))
	}
	seen[key] = struct{}{}

	member := &models.Member{
		Alias:     alias,
		Email:     emailAddr,
		InvitedBy: invitedBy,
	}
	if emailAddr != "" {
		user, err := s.store.GetUserByEmail(ctx, emailAddr)
		switch {
		case err == nil:
			member.UserID = user.ID
		case !errors.Is(err, storage.ErrNotFound):
			return nil, rpcError(err)
		}
	}
	return member, nil
}

// sendInvites mails every added member that has an email address.
// Delivery is best effort and never fails the request.
func (s *SplitbillService) sendInvites(ctx context.Context, bill *models.Splitbill, inviterName string, members []models.Member) {
	for _, m := range members {
		if m.Email == "" {
			continue
		}
		if err := s.notifier.SendInvite(ctx, m.Email, bill.Title, inviterName); err != nil {
			slog.Warn("Failed to send invite", "splitbill_id", bill.ID, "email", m.Email, "error", err)
		}
	}
}

// buildView assembles the full read model of one bill.
func (s *SplitbillService) buildView(ctx context.Context, bill *models.Splitbill) (*rpc.SplitbillView, error) {
	expenses, err := s.store.ListExpenses(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	transfers, err := s.store.ListTransfers(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	balances, err := s.store.ListBalances(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	comments, err := s.store.ListComments(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	view := &rpc.SplitbillView{
		Splitbill: rpcSplitbill(bill),
		Expenses:  make([]*rpc.Expense, len(expenses)),
		Transfers: make([]*rpc.Transfer, len(transfers)),
		Balances:  rpcBalances(balances),
		Comments:  make([]*rpc.Comment, len(comments)),
	}
	for i, e := range expenses {
		view.Expenses[i] = rpcExpense(e)
	}
	for i, t := range transfers {
		view.Transfers[i] = rpcTransfer(t)
	}
	for i, c := range comments {
		view.Comments[i] = rpcComment(c)
	}
	return view, nil
}

// checkMemberIdle fails when the member still appears in expenses,
// transfers or balances; removing them would falsify recorded history.
func (s *SplitbillService) checkMemberIdle(ctx context.Context, splitbillID string, member *models.Member) error {
	expenses, err := s.store.ListExpenses(ctx, splitbillID)
	if err != nil {
		return rpcError(err)
	}
	for _, e := range expenses {
		if e.PaidByID == member.ID {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("member %q has paid expenses", member.Alias))
		}
		for _, a := range e.Assignments {
			if a.MemberID == member.ID {
				return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("member %q has expense shares", member.Alias))
			}
		}
	}

	transfers, err := s.store.ListTransfers(ctx, splitbillID)
	if err != nil {
		return rpcError(err)
	}
	for _, t := range transfers {
		if t.GivenByID == member.ID || t.GivenToID == member.ID {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("member %q has transfers", member.Alias))
		}
	}

	balances, err := s.store.ListBalances(ctx, splitbillID)
	if err != nil {
		return rpcError(err)
	}
	for _, b := range balances {
		if b.FromMemberID == member.ID || b.ToMemberID == member.ID {
			return connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("member %q appears in balances", member.Alias))
		}
	}
	return nil
}

// guestToken returns a url-safe random token.
func guestToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
