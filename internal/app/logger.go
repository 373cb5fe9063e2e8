package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}

// NewRequestLogger adapts chi's RequestLogger to slog so access logs share the
// application handler and format.
func NewRequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return middleware.RequestLogger(&requestLogFormatter{logger: logger})
}

type requestLogFormatter struct {
	logger *slog.Logger
}

func (f *requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{logger: f.logger.With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr),
	)}
}

type requestLogEntry struct {
	logger *slog.Logger
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	e.logger.LogAttrs(context.Background(), level, "http request",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("duration", elapsed),
	)
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("http panic", slog.Any("panic", v), slog.String("stack", string(stack)))
}
