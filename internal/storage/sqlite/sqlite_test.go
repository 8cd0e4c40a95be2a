package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"splitbill/internal/models"
	"splitbill/internal/money"
	"splitbill/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// seedBill creates an owner and a splitbill with three members, returning
// the bill with member ids populated.
func seedBill(t *testing.T, store *SQLiteStore) (*models.User, *models.Splitbill) {
	t.Helper()
	ctx := context.Background()

	owner := models.NewUser("alice", "alice@example.com", "hash")
	owner.Status = models.UserActive
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}

	bill := &models.Splitbill{
		Title:    "Ski trip",
		Currency: "EUR",
		OwnerID:  owner.ID,
		Members: []models.Member{
			{Alias: "alice", Email: owner.Email, UserID: owner.ID, InvitedBy: owner.ID},
			{Alias: "bob", Email: "bob@example.com", InvitedBy: owner.ID},
			{Alias: "carol", InvitedBy: owner.ID},
		},
	}
	if err := store.CreateSplitbill(ctx, bill); err != nil {
		t.Fatalf("failed to create splitbill: %v", err)
	}
	return owner, bill
}

func TestSplitbillRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner, bill := seedBill(t, store)

	got, err := store.GetSplitbill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetSplitbill() error = %v", err)
	}
	if got.Title != "Ski trip" || got.Currency != "EUR" || got.Status != models.StatusActive {
		t.Errorf("got %q %q %q, want Ski trip EUR active", got.Title, got.Currency, got.Status)
	}
	if len(got.Members) != 3 {
		t.Fatalf("got %d members, want 3", len(got.Members))
	}
	for _, m := range got.Members {
		if m.Alias == "bob" && !m.Pending() {
			t.Errorf("bob should be pending, has user id %q", m.UserID)
		}
		if m.Alias == "alice" && m.UserID != owner.ID {
			t.Errorf("alice linked to %q, want %q", m.UserID, owner.ID)
		}
	}

	if _, err := store.GetSplitbill(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSplitbill(missing) error = %v, want ErrNotFound", err)
	}

	bills, err := store.ListSplitbillsByUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListSplitbillsByUser() error = %v", err)
	}
	if len(bills) != 1 || bills[0].ID != bill.ID {
		t.Errorf("got %d bills, want the created one", len(bills))
	}

	bill.Title = "Ski trip 2025"
	bill.Status = models.StatusSettled
	if err := store.UpdateSplitbill(ctx, bill); err != nil {
		t.Fatalf("UpdateSplitbill() error = %v", err)
	}
	got, err = store.GetSplitbill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetSplitbill() error = %v", err)
	}
	if got.Title != "Ski trip 2025" || got.Status != models.StatusSettled {
		t.Errorf("got %q %q after update", got.Title, got.Status)
	}
}

func TestMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner, bill := seedBill(t, store)

	member := &models.Member{
		SplitbillID: bill.ID,
		Alias:       "dana",
		Email:       "dana@example.com",
		InvitedBy:   owner.ID,
	}
	if err := store.AddMember(ctx, member); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	// Aliases are unique per splitbill.
	dup := &models.Member{SplitbillID: bill.ID, Alias: "dana"}
	if err := store.AddMember(ctx, dup); err == nil {
		t.Error("AddMember() with duplicate alias did not fail")
	}

	if err := store.RemoveMember(ctx, bill.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if err := store.RemoveMember(ctx, bill.ID, member.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RemoveMember() twice error = %v, want ErrNotFound", err)
	}
}

func TestClaimPendingMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)

	bob := models.NewUser("bob", "bob@example.com", "hash")
	if err := store.CreateUser(ctx, bob); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	n, err := store.ClaimPendingMembers(ctx, bob.Email, bob.ID)
	if err != nil {
		t.Fatalf("ClaimPendingMembers() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("claimed %d members, want 1", n)
	}

	got, err := store.GetSplitbill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetSplitbill() error = %v", err)
	}
	for _, m := range got.Members {
		if m.Alias == "bob" && m.UserID != bob.ID {
			t.Errorf("bob member linked to %q, want %q", m.UserID, bob.ID)
		}
	}

	// Nothing left to claim.
	n, err = store.ClaimPendingMembers(ctx, bob.Email, bob.ID)
	if err != nil {
		t.Fatalf("ClaimPendingMembers() error = %v", err)
	}
	if n != 0 {
		t.Errorf("claimed %d members on second run, want 0", n)
	}
}

func TestUserActivation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("erin", "erin@example.com", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	found, err := store.GetUserByActivationToken(ctx, user.ActivationToken)
	if err != nil {
		t.Fatalf("GetUserByActivationToken() error = %v", err)
	}
	if found.ID != user.ID || found.Status != models.UserPending {
		t.Errorf("got user %s status %s, want %s pending", found.ID, found.Status, user.ID)
	}

	if err := store.ActivateUser(ctx, user.ID); err != nil {
		t.Fatalf("ActivateUser() error = %v", err)
	}

	activated, err := store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if activated.Status != models.UserActive || activated.ActivationToken != "" {
		t.Errorf("got status %s token %q, want active and empty", activated.Status, activated.ActivationToken)
	}

	if _, err := store.GetUserByActivationToken(ctx, user.ActivationToken); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("burnt token lookup error = %v, want ErrNotFound", err)
	}

	// Duplicate email is rejected by the unique index.
	if err := store.CreateUser(ctx, models.NewUser("erin2", "erin@example.com", "hash")); err == nil {
		t.Error("CreateUser() with duplicate email did not fail")
	}
}

func TestPasswordResets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("erin", "erin@example.com", "oldhash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	first := models.NewPasswordReset(user.ID, time.Hour)
	second := models.NewPasswordReset(user.ID, time.Hour)
	for _, r := range []*models.PasswordReset{first, second} {
		if err := store.CreatePasswordReset(ctx, r); err != nil {
			t.Fatalf("CreatePasswordReset() error = %v", err)
		}
	}

	got, err := store.GetPasswordReset(ctx, first.Token)
	if err != nil {
		t.Fatalf("GetPasswordReset() error = %v", err)
	}
	if got.UserID != user.ID || got.ExpiresAt != first.ExpiresAt {
		t.Errorf("got reset for %s expiring %d, want %s %d", got.UserID, got.ExpiresAt, user.ID, first.ExpiresAt)
	}

	if _, err := store.GetPasswordReset(ctx, "no-such-token"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown token lookup error = %v, want ErrNotFound", err)
	}

	if err := store.ResetPassword(ctx, user.ID, "newhash"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	updated, err := store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if updated.PasswordHash != "newhash" {
		t.Errorf("got hash %q, want newhash", updated.PasswordHash)
	}

	// Both tokens are burned by the reset.
	for _, r := range []*models.PasswordReset{first, second} {
		if _, err := store.GetPasswordReset(ctx, r.Token); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("burnt token lookup error = %v, want ErrNotFound", err)
		}
	}

	if err := store.ResetPassword(ctx, "no-such-user", "hash"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ResetPassword() for unknown user error = %v, want ErrNotFound", err)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)
	alice, bob := bill.Members[0], bill.Members[1]

	expense := &models.Expense{
		SplitbillID: bill.ID,
		Title:       "Groceries",
		Amount:      money.MustParse("30.00"),
		Type:        models.SplitEqual,
		PaidByID:    alice.ID,
		Assignments: []models.Assignment{
			{MemberID: alice.ID, ShareAmount: money.MustParse("15.00")},
			{MemberID: bob.ID, ShareAmount: money.MustParse("15.00")},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	got, err := store.GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if !got.Amount.Equal(money.MustParse("30.00")) || got.Type != models.SplitEqual {
		t.Errorf("got amount %s type %s", money.String(got.Amount), got.Type)
	}
	if len(got.Assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(got.Assignments))
	}

	expense.Title = "Groceries and wine"
	expense.Amount = money.MustParse("40.00")
	expense.Assignments = []models.Assignment{
		{MemberID: alice.ID, ShareAmount: money.MustParse("20.00")},
		{MemberID: bob.ID, ShareAmount: money.MustParse("20.00")},
	}
	if err := store.UpdateExpense(ctx, expense); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}

	got, err = store.GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if !got.Amount.Equal(money.MustParse("40.00")) || len(got.Assignments) != 2 {
		t.Errorf("after update: amount %s, %d assignments", money.String(got.Amount), len(got.Assignments))
	}
	for _, a := range got.Assignments {
		if !a.ShareAmount.Equal(money.MustParse("20.00")) {
			t.Errorf("assignment share = %s, want 20.00", money.String(a.ShareAmount))
		}
	}

	list, err := store.ListExpenses(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(list) != 1 || len(list[0].Assignments) != 2 {
		t.Errorf("ListExpenses() = %d expenses", len(list))
	}

	if err := store.DeleteExpense(ctx, expense.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if err := store.DeleteExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteExpense() twice error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetExpense() after delete error = %v, want ErrNotFound", err)
	}
}

func TestTransferLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)
	alice, bob := bill.Members[0], bill.Members[1]

	transfer := &models.Transfer{
		SplitbillID: bill.ID,
		Title:       "Paid back",
		Amount:      money.MustParse("12.50"),
		GivenByID:   bob.ID,
		GivenToID:   alice.ID,
	}
	if err := store.CreateTransfer(ctx, transfer); err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}

	got, err := store.GetTransfer(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("GetTransfer() error = %v", err)
	}
	if !got.Amount.Equal(money.MustParse("12.50")) || got.GivenByID != bob.ID {
		t.Errorf("got %s from %s", money.String(got.Amount), got.GivenByID)
	}

	transfer.Amount = money.MustParse("13.00")
	if err := store.UpdateTransfer(ctx, transfer); err != nil {
		t.Fatalf("UpdateTransfer() error = %v", err)
	}

	list, err := store.ListTransfers(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListTransfers() error = %v", err)
	}
	if len(list) != 1 || !list[0].Amount.Equal(money.MustParse("13.00")) {
		t.Errorf("ListTransfers() = %d transfers", len(list))
	}

	if err := store.DeleteTransfer(ctx, transfer.ID); err != nil {
		t.Fatalf("DeleteTransfer() error = %v", err)
	}
	if err := store.DeleteTransfer(ctx, transfer.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteTransfer() twice error = %v, want ErrNotFound", err)
	}
}

func TestReplaceBalances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)
	alice, bob, carol := bill.Members[0], bill.Members[1], bill.Members[2]

	insert := []models.Balance{
		{FromMemberID: bob.ID, ToMemberID: alice.ID, Amount: money.MustParse("10.00"), Status: models.StatusActive},
		{FromMemberID: carol.ID, ToMemberID: alice.ID, Amount: money.MustParse("10.00"), Status: models.StatusActive},
	}
	if err := store.ReplaceBalances(ctx, bill.ID, nil, nil, insert); err != nil {
		t.Fatalf("ReplaceBalances() error = %v", err)
	}

	balances, err := store.ListBalances(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2", len(balances))
	}
	for _, b := range balances {
		if b.ID == "" || b.SplitbillID != bill.ID || b.Status != models.StatusActive {
			t.Errorf("balance %+v not stored as active row of the bill", b)
		}
	}

	var bobRow, carolRow models.Balance
	for _, b := range balances {
		switch b.FromMemberID {
		case bob.ID:
			bobRow = *b
		case carol.ID:
			carolRow = *b
		}
	}

	bobRow.Amount = money.MustParse("4.00")
	carolRow.Amount = money.MustParse("0.00")
	carolRow.Status = models.StatusSettled
	if err := store.ReplaceBalances(ctx, bill.ID,
		[]models.Balance{bobRow}, []models.Balance{carolRow}, nil); err != nil {
		t.Fatalf("ReplaceBalances() error = %v", err)
	}

	balances, err = store.ListBalances(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d balances after rewrite, want 2", len(balances))
	}
	// Active rows sort first.
	if balances[0].ID != bobRow.ID || !balances[0].Amount.Equal(money.MustParse("4.00")) {
		t.Errorf("active row = %s %s", balances[0].ID, money.String(balances[0].Amount))
	}
	if balances[1].Status != models.StatusSettled || !balances[1].Amount.IsZero() {
		t.Errorf("settled row = %s %s", balances[1].Status, money.String(balances[1].Amount))
	}
}

func TestComments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)

	comment := &models.Comment{
		SplitbillID:    bill.ID,
		AuthorMemberID: bill.Members[0].ID,
		Text:           "Don't forget the cable car tickets",
	}
	if err := store.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	comments, err := store.ListComments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 1 || comments[0].Text != comment.Text {
		t.Errorf("ListComments() = %d comments", len(comments))
	}
}

func TestGuestLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, bill := seedBill(t, store)

	link := &models.GuestLink{
		Token:       "tok-123",
		SplitbillID: bill.ID,
		ExpiresAt:   4102444800, // far future
	}
	if err := store.CreateGuestLink(ctx, link); err != nil {
		t.Fatalf("CreateGuestLink() error = %v", err)
	}

	got, err := store.GetGuestLink(ctx, "tok-123")
	if err != nil {
		t.Fatalf("GetGuestLink() error = %v", err)
	}
	if got.SplitbillID != bill.ID || got.ExpiresAt != link.ExpiresAt {
		t.Errorf("got link %+v", got)
	}

	if _, err := store.GetGuestLink(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetGuestLink(missing) error = %v, want ErrNotFound", err)
	}
}
