// Package service implements the Connect procedures of the splitbill
// server. Services validate wire input, run the calculator over store
// snapshots and map domain errors to Connect codes. Balance writes for one
// splitbill are serialized through a per-bill lock; different bills proceed
// concurrently.
package service

import (
	"errors"
	"fmt"
	"sync"

	"connectrpc.com/connect"

	"splitbill/internal/auth"
	"splitbill/internal/calculator"
	"splitbill/internal/models"
	"splitbill/internal/money"
	"splitbill/internal/rpc"
	"splitbill/internal/storage"
)

// ErrSettledBill is returned when a mutating operation targets a splitbill
// that has been settled.
var ErrSettledBill = errors.New("splitbill is settled")

// rpcError maps domain errors onto Connect codes. Errors that already
// carry a code pass through untouched; anything unrecognized becomes an
// internal error.
func rpcError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrSettledBill):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, calculator.ErrValidation), errors.Is(err, money.ErrMalformed), errors.Is(err, auth.ErrWeakPassword):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, auth.ErrNotActivated):
		return connect.NewError(connect.CodePermissionDenied, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// billLocks serializes balance recomputation per splitbill. The lock spans
// the whole read-net-replace cycle so two writers on the same bill can
// never interleave their snapshots.
type billLocks struct {
	mu    sync.Mutex
	bills map[string]*sync.Mutex
}

func newBillLocks() *billLocks {
	return &billLocks{bills: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for one splitbill and returns its unlock func.
func (l *billLocks) lock(splitbillID string) func() {
	l.mu.Lock()
	m, ok := l.bills[splitbillID]
	if !ok {
		m = &sync.Mutex{}
		l.bills[splitbillID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// memberOf returns the bill member linked to the given user, or nil.
func memberOf(bill *models.Splitbill, userID string) *models.Member {
	for i := range bill.Members {
		if bill.Members[i].UserID == userID {
			return &bill.Members[i]
		}
	}
	return nil
}

// requireMember resolves the authenticated user to their member row on the
// bill. Unauthenticated or non-member callers get the matching Connect
// error.
func requireMember(bill *models.Splitbill, userID string) (*models.Member, error) {
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	m := memberOf(bill, userID)
	if m == nil {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("you must be a member of this splitbill"))
	}
	return m, nil
}

// ensureActive rejects mutations on settled bills.
func ensureActive(bill *models.Splitbill) error {
	if bill.Status == models.StatusSettled {
		return fmt.Errorf("%w: %s", ErrSettledBill, bill.ID)
	}
	return nil
}

// memberIDSet collects the bill's member ids for validation lookups.
func memberIDSet(bill *models.Splitbill) map[string]struct{} {
	ids := make(map[string]struct{}, len(bill.Members))
	for _, m := range bill.Members {
		ids[m.ID] = struct{}{}
	}
	return ids
}

// Wire conversions.

func rpcUser(u *models.User) *rpc.User {
	return &rpc.User{
		Id:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
}

func rpcMember(m models.Member) *rpc.Member {
	return &rpc.Member{
		Id:        m.ID,
		Alias:     m.Alias,
		Email:     m.Email,
		UserId:    m.UserID,
		Pending:   m.Pending(),
		CreatedAt: m.CreatedAt,
	}
}

func rpcSplitbill(b *models.Splitbill) *rpc.Splitbill {
	members := make([]*rpc.Member, len(b.Members))
	for i, m := range b.Members {
		members[i] = rpcMember(m)
	}
	return &rpc.Splitbill{
		Id:        b.ID,
		Title:     b.Title,
		Currency:  b.Currency,
		OwnerId:   b.OwnerID,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		Members:   members,
	}
}

func rpcExpense(e *models.Expense) *rpc.Expense {
	assignments := make([]*rpc.Assignment, len(e.Assignments))
	for i, a := range e.Assignments {
		assignments[i] = &rpc.Assignment{
			MemberId:    a.MemberID,
			ShareAmount: money.String(a.ShareAmount),
		}
	}
	return &rpc.Expense{
		Id:          e.ID,
		SplitbillId: e.SplitbillID,
		Title:       e.Title,
		Amount:      money.String(e.Amount),
		SplitType:   string(e.Type),
		PaidById:    e.PaidByID,
		CreatedAt:   e.CreatedAt,
		Assignments: assignments,
	}
}

func rpcTransfer(t *models.Transfer) *rpc.Transfer {
	return &rpc.Transfer{
		Id:          t.ID,
		SplitbillId: t.SplitbillID,
		Title:       t.Title,
		Amount:      money.String(t.Amount),
		GivenById:   t.GivenByID,
		GivenToId:   t.GivenToID,
		CreatedAt:   t.CreatedAt,
	}
}

func rpcBalance(b *models.Balance) *rpc.Balance {
	return &rpc.Balance{
		Id:           b.ID,
		FromMemberId: b.FromMemberID,
		ToMemberId:   b.ToMemberID,
		Amount:       money.String(b.Amount),
		Status:       string(b.Status),
		UpdatedAt:    b.UpdatedAt,
	}
}

func rpcBalances(bs []*models.Balance) []*rpc.Balance {
	out := make([]*rpc.Balance, len(bs))
	for i, b := range bs {
		out[i] = rpcBalance(b)
	}
	return out
}

func rpcComment(c *models.Comment) *rpc.Comment {
	return &rpc.Comment{
		Id:             c.ID,
		AuthorMemberId: c.AuthorMemberID,
		Text:           c.Text,
		CreatedAt:      c.CreatedAt,
	}
}
