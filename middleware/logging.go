// Package middleware provides optional interceptors and HTTP middleware
// for servact apps.
package middleware

import (
	"log/slog"
	"time"

	"github.com/servact/servact"
)

// Logging creates an interceptor that logs action execution through the
// per-call logger, so every line is already attributed to the service and
// method handling the request.
func Logging() servact.Interceptor {
	return func(call *servact.Call, next servact.ExecFunc) (servact.Outcome, error) {
		start := time.Now()
		call.Logger().Info("call started")

		outcome, err := next(call)
		duration := time.Since(start)

		if err != nil {
			call.Logger().Error("call failed",
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			call.Logger().Info("call completed",
				slog.Duration("duration", duration),
				slog.String("outcome", outcome.Kind.String()),
			)
		}
		return outcome, err
	}
}
