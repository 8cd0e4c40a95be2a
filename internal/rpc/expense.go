package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ExpenseServiceName is the fully-qualified name of the expense service,
// which also carries transfers and balances.
const ExpenseServiceName = "splitbill.v1.ExpenseService"

const (
	ExpenseServiceCreateExpenseProcedure     = "/splitbill.v1.ExpenseService/CreateExpense"
	ExpenseServiceListExpensesProcedure      = "/splitbill.v1.ExpenseService/ListExpenses"
	ExpenseServiceUpdateExpenseProcedure     = "/splitbill.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure     = "/splitbill.v1.ExpenseService/DeleteExpense"
	ExpenseServiceCreateTransferProcedure    = "/splitbill.v1.ExpenseService/CreateTransfer"
	ExpenseServiceListTransfersProcedure     = "/splitbill.v1.ExpenseService/ListTransfers"
	ExpenseServiceUpdateTransferProcedure    = "/splitbill.v1.ExpenseService/UpdateTransfer"
	ExpenseServiceDeleteTransferProcedure    = "/splitbill.v1.ExpenseService/DeleteTransfer"
	ExpenseServiceGetBalancesProcedure       = "/splitbill.v1.ExpenseService/GetBalances"
	ExpenseServiceRecomputeBalancesProcedure = "/splitbill.v1.ExpenseService/RecomputeBalances"
)

type CreateExpenseRequest struct {
	SplitbillId string   `json:"splitbill_id"`
	Title       string   `json:"title"`
	Amount      string   `json:"amount"`
	SplitType   string   `json:"split_type"`
	PaidById    string   `json:"paid_by_id"`
	Shares      []*Share `json:"shares"`
}

type CreateExpenseResponse struct {
	Expense  *Expense   `json:"expense"`
	Balances []*Balance `json:"balances"`
}

type ListExpensesRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type UpdateExpenseRequest struct {
	ExpenseId string   `json:"expense_id"`
	Title     string   `json:"title"`
	Amount    string   `json:"amount"`
	SplitType string   `json:"split_type"`
	PaidById  string   `json:"paid_by_id"`
	Shares    []*Share `json:"shares"`
}

type UpdateExpenseResponse struct {
	Expense  *Expense   `json:"expense"`
	Balances []*Balance `json:"balances"`
}

type DeleteExpenseRequest struct {
	ExpenseId string `json:"expense_id"`
}

type DeleteExpenseResponse struct {
	Balances []*Balance `json:"balances"`
}

type CreateTransferRequest struct {
	SplitbillId string `json:"splitbill_id"`
	Title       string `json:"title,omitempty"`
	Amount      string `json:"amount"`
	GivenById   string `json:"given_by_id"`
	GivenToId   string `json:"given_to_id"`
}

type CreateTransferResponse struct {
	Transfer *Transfer  `json:"transfer"`
	Balances []*Balance `json:"balances"`
}

type ListTransfersRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type ListTransfersResponse struct {
	Transfers []*Transfer `json:"transfers"`
}

type UpdateTransferRequest struct {
	TransferId string `json:"transfer_id"`
	Title      string `json:"title,omitempty"`
	Amount     string `json:"amount"`
}

type UpdateTransferResponse struct {
	Transfer *Transfer  `json:"transfer"`
	Balances []*Balance `json:"balances"`
}

type DeleteTransferRequest struct {
	TransferId string `json:"transfer_id"`
}

type DeleteTransferResponse struct {
	Balances []*Balance `json:"balances"`
}

type GetBalancesRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type GetBalancesResponse struct {
	Balances []*Balance `json:"balances"`
}

type RecomputeBalancesRequest struct {
	SplitbillId string `json:"splitbill_id"`
}

type RecomputeBalancesResponse struct {
	Balances []*Balance `json:"balances"`
}

// ExpenseServiceHandler is the server-side contract of the expense service.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	CreateTransfer(context.Context, *connect.Request[CreateTransferRequest]) (*connect.Response[CreateTransferResponse], error)
	ListTransfers(context.Context, *connect.Request[ListTransfersRequest]) (*connect.Response[ListTransfersResponse], error)
	UpdateTransfer(context.Context, *connect.Request[UpdateTransferRequest]) (*connect.Response[UpdateTransferResponse], error)
	DeleteTransfer(context.Context, *connect.Request[DeleteTransferRequest]) (*connect.Response[DeleteTransferResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	RecomputeBalances(context.Context, *connect.Request[RecomputeBalancesRequest]) (*connect.Response[RecomputeBalancesResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for the expense service.
// It returns the path prefix to mount the handler on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(
		ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(ExpenseServiceListExpensesProcedure, connect.NewUnaryHandler(
		ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(ExpenseServiceUpdateExpenseProcedure, connect.NewUnaryHandler(
		ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts...))
	mux.Handle(ExpenseServiceDeleteExpenseProcedure, connect.NewUnaryHandler(
		ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(ExpenseServiceCreateTransferProcedure, connect.NewUnaryHandler(
		ExpenseServiceCreateTransferProcedure, svc.CreateTransfer, opts...))
	mux.Handle(ExpenseServiceListTransfersProcedure, connect.NewUnaryHandler(
		ExpenseServiceListTransfersProcedure, svc.ListTransfers, opts...))
	mux.Handle(ExpenseServiceUpdateTransferProcedure, connect.NewUnaryHandler(
		ExpenseServiceUpdateTransferProcedure, svc.UpdateTransfer, opts...))
	mux.Handle(ExpenseServiceDeleteTransferProcedure, connect.NewUnaryHandler(
		ExpenseServiceDeleteTransferProcedure, svc.DeleteTransfer, opts...))
	mux.Handle(ExpenseServiceGetBalancesProcedure, connect.NewUnaryHandler(
		ExpenseServiceGetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(ExpenseServiceRecomputeBalancesProcedure, connect.NewUnaryHandler(
		ExpenseServiceRecomputeBalancesProcedure, svc.RecomputeBalances, opts...))
	return "/" + ExpenseServiceName + "/", mux
}

// ExpenseServiceClient is the client-side contract of the expense service.
type ExpenseServiceClient interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	CreateTransfer(context.Context, *connect.Request[CreateTransferRequest]) (*connect.Response[CreateTransferResponse], error)
	ListTransfers(context.Context, *connect.Request[ListTransfersRequest]) (*connect.Response[ListTransfersResponse], error)
	UpdateTransfer(context.Context, *connect.Request[UpdateTransferRequest]) (*connect.Response[UpdateTransferResponse], error)
	DeleteTransfer(context.Context, *connect.Request[DeleteTransferRequest]) (*connect.Response[DeleteTransferResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	RecomputeBalances(context.Context, *connect.Request[RecomputeBalancesRequest]) (*connect.Response[RecomputeBalancesResponse], error)
}

type expenseServiceClient struct {
	createExpense     *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	listExpenses      *connect.Client[ListExpensesRequest, ListExpensesResponse]
	updateExpense     *connect.Client[UpdateExpenseRequest, UpdateExpenseResponse]
	deleteExpense     *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	createTransfer    *connect.Client[CreateTransferRequest, CreateTransferResponse]
	listTransfers     *connect.Client[ListTransfersRequest, ListTransfersResponse]
	updateTransfer    *connect.Client[UpdateTransferRequest, UpdateTransferResponse]
	deleteTransfer    *connect.Client[DeleteTransferRequest, DeleteTransferResponse]
	getBalances       *connect.Client[GetBalancesRequest, GetBalancesResponse]
	recomputeBalances *connect.Client[RecomputeBalancesRequest, RecomputeBalancesResponse]
}

// NewExpenseServiceClient builds a Connect client for the expense service.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	opts = clientOptions(opts)
	return &expenseServiceClient{
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](
			httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		listExpenses: connect.NewClient[ListExpensesRequest, ListExpensesResponse](
			httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		updateExpense: connect.NewClient[UpdateExpenseRequest, UpdateExpenseResponse](
			httpClient, baseURL+ExpenseServiceUpdateExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](
			httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		createTransfer: connect.NewClient[CreateTransferRequest, CreateTransferResponse](
			httpClient, baseURL+ExpenseServiceCreateTransferProcedure, opts...),
		listTransfers: connect.NewClient[ListTransfersRequest, ListTransfersResponse](
			httpClient, baseURL+ExpenseServiceListTransfersProcedure, opts...),
		updateTransfer: connect.NewClient[UpdateTransferRequest, UpdateTransferResponse](
			httpClient, baseURL+ExpenseServiceUpdateTransferProcedure, opts...),
		deleteTransfer: connect.NewClient[DeleteTransferRequest, DeleteTransferResponse](
			httpClient, baseURL+ExpenseServiceDeleteTransferProcedure, opts...),
		getBalances: connect.NewClient[GetBalancesRequest, GetBalancesResponse](
			httpClient, baseURL+ExpenseServiceGetBalancesProcedure, opts...),
		recomputeBalances: connect.NewClient[RecomputeBalancesRequest, RecomputeBalancesResponse](
			httpClient, baseURL+ExpenseServiceRecomputeBalancesProcedure, opts...),
	}
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) CreateTransfer(ctx context.Context, req *connect.Request[CreateTransferRequest]) (*connect.Response[CreateTransferResponse], error) {
	return c.createTransfer.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListTransfers(ctx context.Context, req *connect.Request[ListTransfersRequest]) (*connect.Response[ListTransfersResponse], error) {
	return c.listTransfers.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateTransfer(ctx context.Context, req *connect.Request[UpdateTransferRequest]) (*connect.Response[UpdateTransferResponse], error) {
	return c.updateTransfer.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteTransfer(ctx context.Context, req *connect.Request[DeleteTransferRequest]) (*connect.Response[DeleteTransferResponse], error) {
	return c.deleteTransfer.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *expenseServiceClient) RecomputeBalances(ctx context.Context, req *connect.Request[RecomputeBalancesRequest]) (*connect.Response[RecomputeBalancesResponse], error) {
	return c.recomputeBalances.CallUnary(ctx, req)
}
