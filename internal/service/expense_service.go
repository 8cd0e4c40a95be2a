package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"splitbill/internal/calculator"
	"splitbill/internal/metrics"
	"splitbill/internal/middleware"
	"splitbill/internal/models"
	"splitbill/internal/money"
	"splitbill/internal/rpc"
	"splitbill/internal/storage"
)

// ExpenseService implements the expense and transfer procedures plus the
// balance queries. Every financial mutation recomputes the bill's balances
// before the response is sent, so clients always read consistent debts.
type ExpenseService struct {
	store   storage.Store
	metrics *metrics.Metrics
	locks   *billLocks
}

var _ rpc.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates the expense service. metrics may be nil.
func NewExpenseService(store storage.Store, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{
		store:   store,
		metrics: m,
		locks:   newBillLocks(),
	}
}

// CreateExpense records an expense, splits it between the named members and
// returns the recomputed balances together with the stored expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[rpc.CreateExpenseRequest]) (*connect.Response[rpc.CreateExpenseResponse], error) {
	unlock := s.locks.lock(req.Msg.SplitbillId)
	defer unlock()

	bill, err := s.activeBill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	expense, err := buildExpense(bill, req.Msg.Title, req.Msg.Amount, req.Msg.SplitType, req.Msg.PaidById, req.Msg.Shares)
	if err != nil {
		return nil, rpcError(err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}
	s.metrics.CountSplit(string(expense.Type))

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("CreateExpense: recompute failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.CreateExpenseResponse{
		Expense:  rpcExpense(expense),
		Balances: rpcBalances(balances),
	}), nil
}

// ListExpenses lists a bill's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[rpc.ListExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, bill.ID)
	if err != nil {
		slog.Error("ListExpenses failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	out := make([]*rpc.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = rpcExpense(e)
	}
	return connect.NewResponse(&rpc.ListExpensesResponse{Expenses: out}), nil
}

// UpdateExpense rewrites an expense in place and recomputes the balances.
// The whole expense is replaced; partial edits are not supported.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[rpc.UpdateExpenseRequest]) (*connect.Response[rpc.UpdateExpenseResponse], error) {
	existing, err := s.store.GetExpense(ctx, req.Msg.ExpenseId)
	if err != nil {
		return nil, rpcError(err)
	}

	unlock := s.locks.lock(existing.SplitbillID)
	defer unlock()

	bill, err := s.activeBill(ctx, existing.SplitbillID)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	expense, err := buildExpense(bill, req.Msg.Title, req.Msg.Amount, req.Msg.SplitType, req.Msg.PaidById, req.Msg.Shares)
	if err != nil {
		return nil, rpcError(err)
	}
	expense.ID = existing.ID
	expense.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expense.ID, "error", err)
		return nil, rpcError(err)
	}

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("UpdateExpense: recompute failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.UpdateExpenseResponse{
		Expense:  rpcExpense(expense),
		Balances: rpcBalances(balances),
	}), nil
}

// DeleteExpense removes an expense and recomputes the balances.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[rpc.DeleteExpenseRequest]) (*connect.Response[rpc.DeleteExpenseResponse], error) {
	existing, err := s.store.GetExpense(ctx, req.Msg.ExpenseId)
	if err != nil {
		return nil, rpcError(err)
	}

	unlock := s.locks.lock(existing.SplitbillID)
	defer unlock()

	bill, err := s.activeBill(ctx, existing.SplitbillID)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, existing.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", existing.ID, "error", err)
		return nil, rpcError(err)
	}

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("DeleteExpense: recompute failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.DeleteExpenseResponse{Balances: rpcBalances(balances)}), nil
}

// CreateTransfer records money changing hands outside an expense, typically
// a repayment. The transfer is applied to the balances incrementally: a
// repayment pays down the giver's standing debt instead of opening a
// reversed balance row.
func (s *ExpenseService) CreateTransfer(ctx context.Context, req *connect.Request[rpc.CreateTransferRequest]) (*connect.Response[rpc.CreateTransferResponse], error) {
	unlock := s.locks.lock(req.Msg.SplitbillId)
	defer unlock()

	bill, err := s.activeBill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	transfer, err := buildTransfer(bill, req.Msg.Title, req.Msg.Amount, req.Msg.GivenById, req.Msg.GivenToId)
	if err != nil {
		return nil, rpcError(err)
	}

	if err := s.store.CreateTransfer(ctx, transfer); err != nil {
		slog.Error("CreateTransfer failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	balances, err := s.applyTransfer(ctx, transfer)
	if err != nil {
		// The transfer is persisted; the next full recompute repairs the
		// balance rows.
		slog.Error("CreateTransfer: failed to apply transfer to balances", "transfer_id", transfer.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.CreateTransferResponse{
		Transfer: rpcTransfer(transfer),
		Balances: rpcBalances(balances),
	}), nil
}

// ListTransfers lists a bill's transfers, newest first.
func (s *ExpenseService) ListTransfers(ctx context.Context, req *connect.Request[rpc.ListTransfersRequest]) (*connect.Response[rpc.ListTransfersResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	transfers, err := s.store.ListTransfers(ctx, bill.ID)
	if err != nil {
		slog.Error("ListTransfers failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	out := make([]*rpc.Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = rpcTransfer(t)
	}
	return connect.NewResponse(&rpc.ListTransfersResponse{Transfers: out}), nil
}

// UpdateTransfer changes a transfer's amount and title, then runs a full
// recompute since the incremental path only covers fresh transfers.
func (s *ExpenseService) UpdateTransfer(ctx context.Context, req *connect.Request[rpc.UpdateTransferRequest]) (*connect.Response[rpc.UpdateTransferResponse], error) {
	transfer, err := s.store.GetTransfer(ctx, req.Msg.TransferId)
	if err != nil {
		return nil, rpcError(err)
	}

	unlock := s.locks.lock(transfer.SplitbillID)
	defer unlock()

	bill, err := s.activeBill(ctx, transfer.SplitbillID)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, rpcError(err)
	}
	if !amount.IsPositive() {
		return nil, rpcError(fmt.Errorf("%w: transfer amount must be positive, got %s", calculator.ErrValidation, money.String(amount)))
	}
	transfer.Amount = amount
	if t := strings.TrimSpace(req.Msg.Title); t != "" {
		transfer.Title = t
	}

	if err := s.store.UpdateTransfer(ctx, transfer); err != nil {
		slog.Error("UpdateTransfer failed", "transfer_id", transfer.ID, "error", err)
		return nil, rpcError(err)
	}

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("UpdateTransfer: recompute failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.UpdateTransferResponse{
		Transfer: rpcTransfer(transfer),
		Balances: rpcBalances(balances),
	}), nil
}

// DeleteTransfer removes a transfer and recomputes the balances.
func (s *ExpenseService) DeleteTransfer(ctx context.Context, req *connect.Request[rpc.DeleteTransferRequest]) (*connect.Response[rpc.DeleteTransferResponse], error) {
	transfer, err := s.store.GetTransfer(ctx, req.Msg.TransferId)
	if err != nil {
		return nil, rpcError(err)
	}

	unlock := s.locks.lock(transfer.SplitbillID)
	defer unlock()

	bill, err := s.activeBill(ctx, transfer.SplitbillID)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	if err := s.store.DeleteTransfer(ctx, transfer.ID); err != nil {
		slog.Error("DeleteTransfer failed", "transfer_id", transfer.ID, "error", err)
		return nil, rpcError(err)
	}

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("DeleteTransfer: recompute failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.DeleteTransferResponse{Balances: rpcBalances(balances)}), nil
}

// GetBalances returns the bill's balance rows, active first.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[rpc.GetBalancesRequest]) (*connect.Response[rpc.GetBalancesResponse], error) {
	bill, err := s.store.GetSplitbill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	balances, err := s.store.ListBalances(ctx, bill.ID)
	if err != nil {
		slog.Error("GetBalances failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.GetBalancesResponse{Balances: rpcBalances(balances)}), nil
}

// RecomputeBalances rebuilds the bill's balances from the full expense and
// transfer history. Normally a no-op since every mutation recomputes, but it
// canonicalizes rows after incremental transfer applications.
func (s *ExpenseService) RecomputeBalances(ctx context.Context, req *connect.Request[rpc.RecomputeBalancesRequest]) (*connect.Response[rpc.RecomputeBalancesResponse], error) {
	unlock := s.locks.lock(req.Msg.SplitbillId)
	defer unlock()

	bill, err := s.activeBill(ctx, req.Msg.SplitbillId)
	if err != nil {
		return nil, rpcError(err)
	}
	if _, err := requireMember(bill, middleware.GetUserID(ctx)); err != nil {
		return nil, err
	}

	balances, err := s.recompute(ctx, bill.ID)
	if err != nil {
		slog.Error("RecomputeBalances failed", "splitbill_id", bill.ID, "error", err)
		return nil, rpcError(err)
	}

	return connect.NewResponse(&rpc.RecomputeBalancesResponse{Balances: rpcBalances(balances)}), nil
}

// activeBill loads a bill and rejects settled ones.
func (s *ExpenseService) activeBill(ctx context.Context, splitbillID string) (*models.Splitbill, error) {
	bill, err := s.store.GetSplitbill(ctx, splitbillID)
	if err != nil {
		return nil, err
	}
	if err := ensureActive(bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// recompute rebuilds the bill's balance rows from scratch and persists the
// difference against the stored rows. The caller must hold the bill lock.
func (s *ExpenseService) recompute(ctx context.Context, splitbillID string) ([]*models.Balance, error) {
	start := time.Now()

	expenses, err := s.store.ListExpenses(ctx, splitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	transfers, err := s.store.ListTransfers(ctx, splitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	prior, err := s.store.ListBalances(ctx, splitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	edges := calculator.NetBalances(expenseValues(expenses), transferValues(transfers))
	res := calculator.Reconcile(splitbillID, balanceValues(prior), edges)

	outcome := "noop"
	if !res.Empty() {
		if err := s.store.ReplaceBalances(ctx, splitbillID, res.Update, res.Settle, res.Insert); err != nil {
			s.metrics.ObserveRecompute("error", time.Since(start))
			return nil, fmt.Errorf("failed to replace balances: %w", err)
		}
		outcome = "ok"
	}

	balances, err := s.store.ListBalances(ctx, splitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	s.metrics.ObserveRecompute(outcome, time.Since(start))
	return balances, nil
}

// applyTransfer folds one fresh transfer into the stored balance rows
// without replaying the history. The caller must hold the bill lock.
func (s *ExpenseService) applyTransfer(ctx context.Context, transfer *models.Transfer) ([]*models.Balance, error) {
	start := time.Now()

	prior, err := s.store.ListBalances(ctx, transfer.SplitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	res, err := calculator.ApplyTransfer(transfer.SplitbillID, balanceValues(prior), transfer.GivenByID, transfer.GivenToID, transfer.Amount)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, err
	}

	if !res.Empty() {
		if err := s.store.ReplaceBalances(ctx, transfer.SplitbillID, res.Update, res.Settle, res.Insert); err != nil {
			s.metrics.ObserveRecompute("error", time.Since(start))
			return nil, fmt.Errorf("failed to replace balances: %w", err)
		}
	}

	balances, err := s.store.ListBalances(ctx, transfer.SplitbillID)
	if err != nil {
		s.metrics.ObserveRecompute("error", time.Since(start))
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	s.metrics.ObserveRecompute("ok", time.Since(start))
	return balances, nil
}

// buildExpense validates the wire payload against the bill's membership and
// produces a ready-to-store expense with its assignments.
func buildExpense(bill *models.Splitbill, title, amountStr, splitTypeStr, paidByID string, shares []*rpc.Share) (*models.Expense, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", calculator.ErrValidation)
	}
	amount, err := money.Parse(amountStr)
	if err != nil {
		return nil, err
	}

	splitType := models.SplitType(splitTypeStr)
	if !splitType.Valid() {
		return nil, fmt.Errorf("%w: unknown split type %q", calculator.ErrValidation, splitTypeStr)
	}

	members := memberIDSet(bill)
	if _, ok := members[paidByID]; !ok {
		return nil, fmt.Errorf("%w: payer %s is not a member of this splitbill", calculator.ErrValidation, paidByID)
	}

	if len(shares) == 0 {
		if splitType != models.SplitEqual {
			return nil, fmt.Errorf("%w: %s split needs explicit shares", calculator.ErrValidation, splitType)
		}
		// An equal split with no shares covers the whole bill.
		for i := range bill.Members {
			shares = append(shares, &rpc.Share{MemberId: bill.Members[i].ID})
		}
	}
	for _, sh := range shares {
		if _, ok := members[sh.MemberId]; !ok {
			return nil, fmt.Errorf("%w: share member %s is not a member of this splitbill", calculator.ErrValidation, sh.MemberId)
		}
	}

	parsed, err := parseShares(splitType, shares)
	if err != nil {
		return nil, err
	}
	assignments, err := calculator.SplitExpense(amount, splitType, parsed)
	if err != nil {
		return nil, err
	}

	return &models.Expense{
		SplitbillID: bill.ID,
		Title:       title,
		Amount:      amount,
		Type:        splitType,
		PaidByID:    paidByID,
		Assignments: assignments,
	}, nil
}

// parseShares converts wire shares into calculator shares. Equal splits
// carry no values; percentage and custom splits require one per member.
func parseShares(splitType models.SplitType, shares []*rpc.Share) ([]calculator.Share, error) {
	out := make([]calculator.Share, len(shares))
	for i, sh := range shares {
		out[i] = calculator.Share{MemberID: sh.MemberId}
		if splitType == models.SplitEqual {
			continue
		}
		value, err := decimal.NewFromString(sh.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: share value %q for member %s", calculator.ErrValidation, sh.Value, sh.MemberId)
		}
		out[i].Value = value
	}
	return out, nil
}

// buildTransfer validates the wire payload against the bill's membership.
func buildTransfer(bill *models.Splitbill, title, amountStr, givenByID, givenToID string) (*models.Transfer, error) {
	amount, err := money.Parse(amountStr)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive, got %s", calculator.ErrValidation, money.String(amount))
	}

	members := memberIDSet(bill)
	if _, ok := members[givenByID]; !ok {
		return nil, fmt.Errorf("%w: giver %s is not a member of this splitbill", calculator.ErrValidation, givenByID)
	}
	if _, ok := members[givenToID]; !ok {
		return nil, fmt.Errorf("%w: receiver %s is not a member of this splitbill", calculator.ErrValidation, givenToID)
	}
	if givenByID == givenToID {
		return nil, fmt.Errorf("%w: giver and receiver are the same member", calculator.ErrValidation)
	}

	return &models.Transfer{
		SplitbillID: bill.ID,
		Title:       strings.TrimSpace(title),
		Amount:      amount,
		GivenByID:   givenByID,
		GivenToID:   givenToID,
	}, nil
}

// expenseValues dereferences a stored expense list for the calculator.
func expenseValues(in []*models.Expense) []models.Expense {
	out := make([]models.Expense, len(in))
	for i, e := range in {
		out[i] = *e
	}
	return out
}

func transferValues(in []*models.Transfer) []models.Transfer {
	out := make([]models.Transfer, len(in))
	for i, t := range in {
		out[i] = *t
	}
	return out
}

func balanceValues(in []*models.Balance) []models.Balance {
	out := make([]models.Balance, len(in))
	for i, b := range in {
		out[i] = *b
	}
	return out
}
