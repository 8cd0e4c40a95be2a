package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"splitbill/internal/models"
	"splitbill/internal/money"
)

// Edge is a directed debt between two members: From owes To.
type Edge struct {
	FromMemberID string
	ToMemberID   string
	Amount       decimal.Decimal
}

// ReconcileResult is the balance write set produced by one recompute,
// partitioned by what the store has to do with each row. The store applies
// all three groups inside a single transaction.
type ReconcileResult struct {
	Update []models.Balance // active rows whose amount or direction changed
	Settle []models.Balance // active rows with no remaining debt: amount zeroed, status settled
	Insert []models.Balance // pairs that owe each other but have no active row yet
}

// Empty reports whether the recompute left every row as it was.
func (r ReconcileResult) Empty() bool {
	return len(r.Update) == 0 && len(r.Settle) == 0 && len(r.Insert) == 0
}

// netWorth computes each member's signed position over the full history.
// Paying an expense or giving a transfer raises the net, owing a share or
// receiving a transfer lowers it. Positive net means the group owes the
// member money. The positions always sum to zero.
func netWorth(expenses []models.Expense, transfers []models.Transfer) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, exp := range expenses {
		net[exp.PaidByID] = net[exp.PaidByID].Add(exp.Amount)
		for _, a := range exp.Assignments {
			net[a.MemberID] = net[a.MemberID].Sub(a.ShareAmount)
		}
	}
	for _, t := range transfers {
		if t.GivenByID == t.GivenToID {
			continue
		}
		net[t.GivenByID] = net[t.GivenByID].Add(t.Amount)
		net[t.GivenToID] = net[t.GivenToID].Sub(t.Amount)
	}
	return net
}

// NetBalances reduces a bill's expense and transfer history to the minimal
// set of directed debts. Each member is collapsed to a single net position,
// then debtors are matched against creditors greedily, both sides in
// ascending member-id order, so the output is deterministic, carries at most
// one edge per pair and never a mutual pair, and has at most one edge less
// than there are members with a nonzero position.
func NetBalances(expenses []models.Expense, transfers []models.Transfer) []Edge {
	net := netWorth(expenses, transfers)

	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var debtors, creditors []string
	open := make(map[string]decimal.Decimal, len(net))
	for _, id := range ids {
		switch {
		case net[id].IsNegative():
			debtors = append(debtors, id)
			open[id] = net[id].Neg()
		case net[id].IsPositive():
			creditors = append(creditors, id)
			open[id] = net[id]
		}
	}

	var edges []Edge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := debtors[i], creditors[j]
		step := decimal.Min(open[d], open[c])
		if step.IsPositive() {
			edges = append(edges, Edge{FromMemberID: d, ToMemberID: c, Amount: step})
		}
		open[d] = open[d].Sub(step)
		open[c] = open[c].Sub(step)
		if open[d].IsZero() {
			i++
		}
		if open[c].IsZero() {
			j++
		}
	}
	return edges
}

// pairKey is an order-independent key for two member ids.
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// Reconcile maps a freshly netted edge set onto the previously stored rows.
// An active row whose pair still carries debt keeps its identity, updating
// the amount and flipping direction in place when it reversed; an active row
// whose pair owes nothing anymore is settled at 0.00 and kept; edges with no
// active row become fresh inserts. Settled rows are terminal and never
// matched: new debt between an already-settled pair gets a new row.
func Reconcile(splitbillID string, prior []models.Balance, edges []Edge) ReconcileResult {
	target := make(map[string]Edge, len(edges))
	for _, e := range edges {
		target[pairKey(e.FromMemberID, e.ToMemberID)] = e
	}

	var res ReconcileResult
	for _, b := range prior {
		if b.Status != models.StatusActive {
			continue
		}
		key := pairKey(b.FromMemberID, b.ToMemberID)
		e, ok := target[key]
		if !ok {
			b.Amount = decimal.Zero
			b.Status = models.StatusSettled
			res.Settle = append(res.Settle, b)
			continue
		}
		delete(target, key)
		if b.FromMemberID == e.FromMemberID && b.Amount.Equal(e.Amount) {
			continue // row already matches, nothing to write
		}
		b.FromMemberID = e.FromMemberID
		b.ToMemberID = e.ToMemberID
		b.Amount = e.Amount
		res.Update = append(res.Update, b)
	}

	for _, e := range edges {
		if _, fresh := target[pairKey(e.FromMemberID, e.ToMemberID)]; !fresh {
			continue
		}
		res.Insert = append(res.Insert, models.Balance{
			SplitbillID:  splitbillID,
			FromMemberID: e.FromMemberID,
			ToMemberID:   e.ToMemberID,
			Amount:       e.Amount,
			Status:       models.StatusActive,
		})
	}
	return res
}

// ApplyTransfer is the incremental fast path for recording a single
// transfer. Giving money first pays down the giver's active debt to the
// receiver: paid exactly off, the row settles at 0.00; overpaid, the row
// settles and the receiver owes the remainder the other way. With no debt
// between the pair the receiver owes the giver the full amount. For
// repayments this yields the same rows a full recompute would.
func ApplyTransfer(splitbillID string, prior []models.Balance, giverID, receiverID string, amount decimal.Decimal) (ReconcileResult, error) {
	var res ReconcileResult
	if giverID == receiverID {
		return res, fmt.Errorf("%w: giver and receiver are the same member", ErrValidation)
	}
	if !amount.IsPositive() {
		return res, fmt.Errorf("%w: transfer amount must be positive, got %s", ErrValidation, amount)
	}
	if !money.IsQuantized(amount) {
		return res, fmt.Errorf("%w: transfer amount %s has more than %d fraction digits", ErrValidation, amount, money.Scale)
	}

	for _, b := range prior {
		if b.Status != models.StatusActive {
			continue
		}
		if b.FromMemberID == giverID && b.ToMemberID == receiverID {
			rest := b.Amount.Sub(amount)
			switch {
			case rest.IsPositive():
				b.Amount = rest
				res.Update = append(res.Update, b)
			case rest.IsZero():
				b.Amount = decimal.Zero
				b.Status = models.StatusSettled
				res.Settle = append(res.Settle, b)
			default:
				b.Amount = decimal.Zero
				b.Status = models.StatusSettled
				res.Settle = append(res.Settle, b)
				res.Insert = append(res.Insert, models.Balance{
					SplitbillID:  splitbillID,
					FromMemberID: receiverID,
					ToMemberID:   giverID,
					Amount:       rest.Neg(),
					Status:       models.StatusActive,
				})
			}
			return res, nil
		}
		if b.FromMemberID == receiverID && b.ToMemberID == giverID {
			b.Amount = b.Amount.Add(amount)
			res.Update = append(res.Update, b)
			return res, nil
		}
	}

	res.Insert = append(res.Insert, models.Balance{
		SplitbillID:  splitbillID,
		FromMemberID: receiverID,
		ToMemberID:   giverID,
		Amount:       amount,
		Status:       models.StatusActive,
	})
	return res, nil
}
