package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, authenticated user, duration and outcome.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			userID := GetUserID(ctx) // empty on public procedures
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					logger.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"user_id", userID,
						"duration_ms", duration,
					)
				} else {
					logger.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"user_id", userID,
						"duration_ms", duration,
					)
				}
			} else {
				logger.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}
