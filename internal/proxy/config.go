package proxy

import (
	"log/slog"

	"github.com/die-net/blockproxy/internal/dialer"
	"github.com/die-net/blockproxy/internal/metrics"
)

type Config struct {
	// Dialer opens origin connections. Nil means a direct dialer.
	Dialer dialer.Dialer

	// Blocklist selects refused destinations. Nil blocks nothing.
	Blocklist *Blocklist

	// Logger receives the per-request "<url> - <event>" lines. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Metrics is updated for every connection. Nil means a private set.
	Metrics *metrics.Metrics
}
