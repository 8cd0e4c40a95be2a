package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"splitbill/internal/auth"
	"splitbill/internal/email"
	"splitbill/internal/middleware"
	"splitbill/internal/models"
	"splitbill/internal/rpc"
	"splitbill/internal/storage"
	"splitbill/internal/storage/sqlite"
)

// testAuthInterceptor returns a Connect interceptor that sets a fixed user ID
// in the context, standing in for the real token middleware.
func testAuthInterceptor(userID string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
			return next(ctx, req)
		}
	}
}

// testEnv bundles the clients for one test server. Every call authenticates
// as the pre-created user (username "alice").
type testEnv struct {
	store    storage.Store
	user     *models.User
	auth     rpc.AuthServiceClient
	bills    rpc.SplitbillServiceClient
	expenses rpc.ExpenseServiceClient
}

// setupTestServer creates a test server over a temp SQLite database with all
// three services mounted and one active user to act as.
func setupTestServer(t *testing.T) (*testEnv, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	user := models.NewUser("alice", "alice@example.com", "not-a-real-hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if err := store.ActivateUser(context.Background(), user.ID); err != nil {
		t.Fatalf("failed to activate test user: %v", err)
	}
	user.Status = models.UserActive

	interceptors := connect.WithInterceptors(testAuthInterceptor(user.ID))

	tokens := auth.NewJWTManager("test-secret", time.Hour)
	authSvc := NewAuthService(store, auth.NewPasswordAuthenticator(store), tokens, email.Disabled{})
	authPath, authHandler := rpc.NewAuthServiceHandler(authSvc, interceptors)

	billSvc := NewSplitbillService(store, email.Disabled{}, "http://localhost:3000")
	billPath, billHandler := rpc.NewSplitbillServiceHandler(billSvc, interceptors)

	expenseSvc := NewExpenseService(store, nil)
	expensePath, expenseHandler := rpc.NewExpenseServiceHandler(expenseSvc, interceptors)

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(billPath, billHandler)
	mux.Handle(expensePath, expenseHandler)

	server := httptest.NewServer(mux)

	env := &testEnv{
		store:    store,
		user:     user,
		auth:     rpc.NewAuthServiceClient(http.DefaultClient, server.URL),
		bills:    rpc.NewSplitbillServiceClient(http.DefaultClient, server.URL),
		expenses: rpc.NewExpenseServiceClient(http.DefaultClient, server.URL),
	}

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return env, cleanup
}

// createBill creates a bill with the given extra members and returns it
// together with a member ID lookup by alias. The acting user joins
// automatically as "alice".
func createBill(t *testing.T, env *testEnv, title string, aliases ...string) (*rpc.Splitbill, map[string]string) {
	t.Helper()

	members := make([]*rpc.NewMember, len(aliases))
	for i, a := range aliases {
		members[i] = &rpc.NewMember{Alias: a}
	}
	resp, err := env.bills.CreateSplitbill(context.Background(), connect.NewRequest(&rpc.CreateSplitbillRequest{
		Title:   title,
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateSplitbill failed: %v", err)
	}

	ids := make(map[string]string)
	for _, m := range resp.Msg.Splitbill.Members {
		ids[m.Alias] = m.Id
	}
	return resp.Msg.Splitbill, ids
}

func TestCreateSplitbill_OwnerBecomesMember(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob", "charlie")

	if bill.OwnerId != env.user.ID {
		t.Errorf("expected owner %s, got %s", env.user.ID, bill.OwnerId)
	}
	if bill.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", bill.Currency)
	}
	if bill.Status != "active" {
		t.Errorf("expected status active, got %s", bill.Status)
	}
	if len(bill.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(bill.Members))
	}

	owner := bill.Members[0]
	if owner.Alias != "alice" {
		t.Errorf("expected owner member alias alice, got %s", owner.Alias)
	}
	if owner.UserId != env.user.ID {
		t.Errorf("expected owner member linked to %s, got %q", env.user.ID, owner.UserId)
	}
	if owner.Pending {
		t.Error("owner member should not be pending")
	}
	for _, m := range bill.Members[1:] {
		if !m.Pending {
			t.Errorf("expected member %s to be pending", m.Alias)
		}
	}
}

func TestCreateSplitbill_LinksRegisteredEmail(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bob := models.NewUser("bob", "bob@example.com", "not-a-real-hash")
	if err := env.store.CreateUser(context.Background(), bob); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	resp, err := env.bills.CreateSplitbill(context.Background(), connect.NewRequest(&rpc.CreateSplitbillRequest{
		Title:   "Dinner",
		Members: []*rpc.NewMember{{Email: "Bob@Example.com"}},
	}))
	if err != nil {
		t.Fatalf("CreateSplitbill failed: %v", err)
	}

	if len(resp.Msg.Splitbill.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(resp.Msg.Splitbill.Members))
	}
	member := resp.Msg.Splitbill.Members[1]
	if member.Alias != "bob" {
		t.Errorf("expected alias derived from email to be bob, got %s", member.Alias)
	}
	if member.UserId != bob.ID {
		t.Errorf("expected member linked to %s, got %q", bob.ID, member.UserId)
	}
	if member.Pending {
		t.Error("member with a registered email should not be pending")
	}
}

func TestCreateSplitbill_DuplicateAlias(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := env.bills.CreateSplitbill(context.Background(), connect.NewRequest(&rpc.CreateSplitbillRequest{
		Title:   "Dinner",
		Members: []*rpc.NewMember{{Alias: "bob"}, {Alias: "Bob"}},
	}))
	if err == nil {
		t.Fatal("expected duplicate alias to fail")
	}
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument, got %v", connect.CodeOf(err))
	}
}

func TestGetSplitbill_FullView(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, ids := createBill(t, env, "Road trip", "bob")

	_, err := env.expenses.CreateExpense(context.Background(), connect.NewRequest(&rpc.CreateExpenseRequest{
		SplitbillId: bill.Id,
		Title:       "Fuel",
		Amount:      "30.00",
		SplitType:   "equal",
		PaidById:    ids["alice"],
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	_, err = env.bills.CreateComment(context.Background(), connect.NewRequest(&rpc.CreateCommentRequest{
		SplitbillId: bill.Id,
		Text:        "don't forget the receipts",
	}))
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	resp, err := env.bills.GetSplitbill(context.Background(), connect.NewRequest(&rpc.GetSplitbillRequest{
		SplitbillId: bill.Id,
	}))
	if err != nil {
		t.Fatalf("GetSplitbill failed: %v", err)
	}

	view := resp.Msg.View
	if view.Splitbill.Id != bill.Id {
		t.Errorf("expected bill %s, got %s", bill.Id, view.Splitbill.Id)
	}
	if len(view.Expenses) != 1 {
		t.Errorf("expected 1 expense, got %d", len(view.Expenses))
	}
	if len(view.Balances) != 1 {
		t.Errorf("expected 1 balance row, got %d", len(view.Balances))
	}
	if len(view.Comments) != 1 {
		t.Errorf("expected 1 comment, got %d", len(view.Comments))
	}
}

func TestGetSplitbill_NotMember(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	// A bill the acting user is not part of.
	other := &models.Splitbill{
		Title:    "Private dinner",
		Currency: "USD",
		OwnerID:  env.user.ID,
		Status:   models.StatusActive,
		Members:  []models.Member{{Alias: "bob"}},
	}
	if err := env.store.CreateSplitbill(context.Background(), other); err != nil {
		t.Fatalf("failed to create bill: %v", err)
	}

	_, err := env.bills.GetSplitbill(context.Background(), connect.NewRequest(&rpc.GetSplitbillRequest{
		SplitbillId: other.ID,
	}))
	if err == nil {
		t.Fatal("expected non-member access to fail")
	}
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected CodePermissionDenied, got %v", connect.CodeOf(err))
	}
}

func TestListSplitbills(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	createBill(t, env, "Road trip", "bob")
	createBill(t, env, "Dinner", "charlie")

	resp, err := env.bills.ListSplitbills(context.Background(), connect.NewRequest(&rpc.ListSplitbillsRequest{}))
	if err != nil {
		t.Fatalf("ListSplitbills failed: %v", err)
	}
	if len(resp.Msg.Splitbills) != 2 {
		t.Errorf("expected 2 splitbills, got %d", len(resp.Msg.Splitbills))
	}
}

func TestUpdateSplitbill(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob")

	resp, err := env.bills.UpdateSplitbill(context.Background(), connect.NewRequest(&rpc.UpdateSplitbillRequest{
		SplitbillId: bill.Id,
		Title:       "Road trip 2026",
		Currency:    "eur",
	}))
	if err != nil {
		t.Fatalf("UpdateSplitbill failed: %v", err)
	}
	if resp.Msg.Splitbill.Title != "Road trip 2026" {
		t.Errorf("expected updated title, got %s", resp.Msg.Splitbill.Title)
	}
	if resp.Msg.Splitbill.Currency != "EUR" {
		t.Errorf("expected currency EUR, got %s", resp.Msg.Splitbill.Currency)
	}
}

func TestSettleSplitbill_BlocksChanges(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, ids := createBill(t, env, "Road trip", "bob")

	settled, err := env.bills.SettleSplitbill(context.Background(), connect.NewRequest(&rpc.SettleSplitbillRequest{
		SplitbillId: bill.Id,
	}))
	if err != nil {
		t.Fatalf("SettleSplitbill failed: %v", err)
	}
	if settled.Msg.Splitbill.Status != "settled" {
		t.Errorf("expected status settled, got %s", settled.Msg.Splitbill.Status)
	}

	// Every mutation must now fail with FailedPrecondition.
	_, err = env.expenses.CreateExpense(context.Background(), connect.NewRequest(&rpc.CreateExpenseRequest{
		SplitbillId: bill.Id,
		Title:       "Late fuel",
		Amount:      "10.00",
		SplitType:   "equal",
		PaidById:    ids["alice"],
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("CreateExpense on settled bill: expected CodeFailedPrecondition, got %v", connect.CodeOf(err))
	}

	_, err = env.bills.UpdateSplitbill(context.Background(), connect.NewRequest(&rpc.UpdateSplitbillRequest{
		SplitbillId: bill.Id,
		Title:       "Too late",
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("UpdateSplitbill on settled bill: expected CodeFailedPrecondition, got %v", connect.CodeOf(err))
	}

	_, err = env.bills.SettleSplitbill(context.Background(), connect.NewRequest(&rpc.SettleSplitbillRequest{
		SplitbillId: bill.Id,
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("settling twice: expected CodeFailedPrecondition, got %v", connect.CodeOf(err))
	}

	// Reads stay open.
	if _, err := env.bills.GetSplitbill(context.Background(), connect.NewRequest(&rpc.GetSplitbillRequest{
		SplitbillId: bill.Id,
	})); err != nil {
		t.Errorf("GetSplitbill on settled bill failed: %v", err)
	}
}

func TestAddMembers(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob")

	resp, err := env.bills.AddMembers(context.Background(), connect.NewRequest(&rpc.AddMembersRequest{
		SplitbillId: bill.Id,
		Members:     []*rpc.NewMember{{Alias: "charlie"}, {Alias: "dave"}},
	}))
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if len(resp.Msg.Members) != 2 {
		t.Fatalf("expected 2 added members, got %d", len(resp.Msg.Members))
	}

	// Adding an alias that already exists on the bill fails.
	_, err = env.bills.AddMembers(context.Background(), connect.NewRequest(&rpc.AddMembersRequest{
		SplitbillId: bill.Id,
		Members:     []*rpc.NewMember{{Alias: "bob"}},
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument for duplicate alias, got %v", connect.CodeOf(err))
	}
}

func TestRemoveMember(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, ids := createBill(t, env, "Road trip", "bob", "charlie")

	_, err := env.bills.RemoveMember(context.Background(), connect.NewRequest(&rpc.RemoveMemberRequest{
		SplitbillId: bill.Id,
		MemberId:    ids["charlie"],
	}))
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	resp, err := env.bills.GetSplitbill(context.Background(), connect.NewRequest(&rpc.GetSplitbillRequest{
		SplitbillId: bill.Id,
	}))
	if err != nil {
		t.Fatalf("GetSplitbill failed: %v", err)
	}
	if len(resp.Msg.View.Splitbill.Members) != 2 {
		t.Errorf("expected 2 members after removal, got %d", len(resp.Msg.View.Splitbill.Members))
	}
}

func TestRemoveMember_WithActivity(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, ids := createBill(t, env, "Road trip", "bob")

	_, err := env.expenses.CreateExpense(context.Background(), connect.NewRequest(&rpc.CreateExpenseRequest{
		SplitbillId: bill.Id,
		Title:       "Fuel",
		Amount:      "30.00",
		SplitType:   "equal",
		PaidById:    ids["alice"],
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	// bob owes a share of the expense, so he cannot be removed.
	_, err = env.bills.RemoveMember(context.Background(), connect.NewRequest(&rpc.RemoveMemberRequest{
		SplitbillId: bill.Id,
		MemberId:    ids["bob"],
	}))
	if err == nil {
		t.Fatal("expected removal of active member to fail")
	}
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("expected CodeFailedPrecondition, got %v", connect.CodeOf(err))
	}
}

func TestCreateComment_Validation(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob")

	resp, err := env.bills.CreateComment(context.Background(), connect.NewRequest(&rpc.CreateCommentRequest{
		SplitbillId: bill.Id,
		Text:        "remember to split the tolls",
	}))
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if resp.Msg.Comment.AuthorMemberId == "" {
		t.Error("expected comment author to be set")
	}

	_, err = env.bills.CreateComment(context.Background(), connect.NewRequest(&rpc.CreateCommentRequest{
		SplitbillId: bill.Id,
		Text:        "too short",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument for short comment, got %v", connect.CodeOf(err))
	}
}

func TestGuestLink_Flow(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob")

	linkResp, err := env.bills.CreateGuestLink(context.Background(), connect.NewRequest(&rpc.CreateGuestLinkRequest{
		SplitbillId: bill.Id,
	}))
	if err != nil {
		t.Fatalf("CreateGuestLink failed: %v", err)
	}
	if linkResp.Msg.Token == "" {
		t.Fatal("expected a guest token")
	}
	if linkResp.Msg.ExpiresAt <= time.Now().Unix() {
		t.Errorf("expected expiry in the future, got %d", linkResp.Msg.ExpiresAt)
	}

	viewResp, err := env.bills.GuestView(context.Background(), connect.NewRequest(&rpc.GuestViewRequest{
		Token: linkResp.Msg.Token,
	}))
	if err != nil {
		t.Fatalf("GuestView failed: %v", err)
	}
	if viewResp.Msg.View.Splitbill.Id != bill.Id {
		t.Errorf("expected guest view of bill %s, got %s", bill.Id, viewResp.Msg.View.Splitbill.Id)
	}

	_, err = env.bills.GuestView(context.Background(), connect.NewRequest(&rpc.GuestViewRequest{
		Token: "no-such-token",
	}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected CodeNotFound for unknown token, got %v", connect.CodeOf(err))
	}
}

func TestGuestLink_Expired(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	bill, _ := createBill(t, env, "Road trip", "bob")

	link := &models.GuestLink{
		Token:       "expired-token",
		SplitbillID: bill.Id,
		ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
	}
	if err := env.store.CreateGuestLink(context.Background(), link); err != nil {
		t.Fatalf("failed to create guest link: %v", err)
	}

	_, err := env.bills.GuestView(context.Background(), connect.NewRequest(&rpc.GuestViewRequest{
		Token: link.Token,
	}))
	if err == nil {
		t.Fatal("expected expired link to fail")
	}
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected CodePermissionDenied, got %v", connect.CodeOf(err))
	}
}
