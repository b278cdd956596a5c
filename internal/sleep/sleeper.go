package sleep

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-station/internal/utils"
)

// Sleeper halts the station for d. Callers release every cycle resource
// before calling it; nothing is expected to survive the sleep.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// HostSleeper idles the process until the wake time.
type HostSleeper struct {
	Logger *slog.Logger
}

func (s HostSleeper) Sleep(ctx context.Context, d time.Duration) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("deep sleep", "duration", d, "wake_at", time.Now().Add(d).Format(time.RFC3339))
	if err := utils.Sleep(ctx, d); err != nil {
		return err
	}
	logger.Info("woke up")
	return nil
}
