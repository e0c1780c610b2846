package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/qmsearch/idgen"
	"github.com/hazyhaar/qmsearch/kit"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id (reusing a valid incoming one),
// stores it under kit.RequestIDKey, echoes it in the response and attaches
// a per-request logger retrievable with GetLogger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := idgen.Parse(r.Header.Get(RequestIDHeader))
		if err != nil {
			id = idgen.New()
		}

		ctx := kit.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		logger := slog.Default().With(
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
