package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"splitbill/internal/auth"
	"splitbill/internal/email"
	"splitbill/internal/metrics"
	"splitbill/internal/middleware"
	"splitbill/internal/rpc"
	"splitbill/internal/service"
	"splitbill/internal/storage/sqlite"
	"splitbill/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/splitbill.db")
	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", fmt.Sprintf("http://localhost:%s", port))

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		slog.Error("Invalid TOKEN_TTL", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	var notifier email.Notifier = email.Disabled{}
	if key, from := os.Getenv("SENDGRID_API_KEY"), os.Getenv("MAIL_FROM"); key != "" && from != "" {
		notifier = email.NewSendGridClient(key, from, baseURL)
		slog.Info("Email delivery enabled", "from", from)
	} else {
		slog.Warn("Email delivery disabled, set SENDGRID_API_KEY and MAIL_FROM to enable")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tokens := auth.NewJWTManager(jwtSecret, tokenTTL)
	logInterceptor := middleware.LoggingInterceptor(slog.Default())
	metricsInterceptor := middleware.MetricsInterceptor(m)

	mux := http.NewServeMux()

	// Everything a user does before holding a session token is public:
	// registration, activation, login and the password reset pair.
	authSvc := service.NewAuthService(store, auth.NewPasswordAuthenticator(store), tokens, notifier)
	authPath, authHandler := rpc.NewAuthServiceHandler(authSvc, connect.WithInterceptors(
		middleware.RequireAuth(tokens,
			rpc.AuthServiceRegisterProcedure,
			rpc.AuthServiceActivateProcedure,
			rpc.AuthServiceLoginProcedure,
			rpc.AuthServiceRequestPasswordResetProcedure,
			rpc.AuthServiceResetPasswordProcedure,
		),
		logInterceptor,
		metricsInterceptor,
	))
	mux.Handle(authPath, authHandler)

	billSvc := service.NewSplitbillService(store, notifier, baseURL)
	billPath, billHandler := rpc.NewSplitbillServiceHandler(billSvc, connect.WithInterceptors(
		middleware.RequireAuth(tokens, rpc.SplitbillServiceGuestViewProcedure),
		logInterceptor,
		metricsInterceptor,
	))
	mux.Handle(billPath, billHandler)

	expenseSvc := service.NewExpenseService(store, m)
	expensePath, expenseHandler := rpc.NewExpenseServiceHandler(expenseSvc, connect.WithInterceptors(
		middleware.RequireAuth(tokens),
		logInterceptor,
		metricsInterceptor,
	))
	mux.Handle(expensePath, expenseHandler)

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(corsMiddleware(mux), &http2.Server{})

	addr := ":" + port
	slog.Info("Connect server starting", "address", addr, "base_url", baseURL)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
