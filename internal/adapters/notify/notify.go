// Package notify delivers one-time codes.
package notify

import (
	"context"
	"log/slog"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// LogSender records that a code was dispatched without sending it anywhere.
// It stands in until an SMS or email provider is wired.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "notify")}
}

// Send never logs the code itself.
func (s *LogSender) Send(ctx context.Context, principal *domain.Principal, channel domain.DeliveryChannel, code string) error {
	s.logger.InfoContext(ctx, "one-time code dispatched",
		"principal_id", principal.ID,
		"channel", channel,
		"digits", len(code),
	)
	return nil
}
