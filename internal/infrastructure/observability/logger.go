package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

func InitLogger(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// WithContext returns the default logger annotated with the active trace and
// span ids, if any, plus attrs.
func WithContext(ctx context.Context, attrs ...any) *slog.Logger {
	logger := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}
