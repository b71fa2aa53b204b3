package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/config"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
)

// Setup configures logging and tracing. Metrics register themselves on import
// and are served by the API router.
func Setup(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	observability.InitLogger(os.Stdout, cfg.LogLevel)
	shutdown, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		return nil, err
	}
	return shutdown, nil
}
