package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrProviderDown = errors.New("notification provider down (simulated)")

// LogNotifier writes notices to the structured log instead of a mail
// provider. Delay and Fail simulate a slow or broken provider.
type LogNotifier struct {
	log   *slog.Logger
	Delay time.Duration
	Fail  bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendFinalizationNotice(ctx context.Context, in FinalizationNoticeInput) (string, error) {
	if n.Delay > 0 {
		select {
		case <-time.After(n.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if n.Fail {
		return "", ErrProviderDown
	}

	id := uuid.NewString()
	n.log.InfoContext(ctx, "notification.finalization_notice",
		slog.String("message_id", id),
		slog.String("user_id", in.UserID),
		slog.String("email", in.Email),
		slog.String("name", in.Name),
		slog.Time("finalized_at", in.FinalizedAt),
	)
	return id, nil
}
