package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/videocap/internal/logging"
)

// quietPaths are polled by dashboards and logged at debug.
var quietPaths = map[string]bool{
	"/api/health": true,
}

// HTTPLoggingMiddleware logs each request at a level chosen by method and status.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	reqURL := ctx.URL()
	path := reqURL.Path

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if op := ctx.Operation(); op != nil {
		attrs = append(attrs, slog.String("operation", op.OperationID))
	}
	if q := redactQuery(reqURL.Query()); q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case method == http.MethodOptions, quietPaths[path]:
		level = slog.LevelDebug
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// redactQuery hides SSE credentials passed in the auth parameter.
func redactQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	if q.Has("auth") {
		q.Set("auth", "REDACTED")
	}
	return q.Encode()
}
