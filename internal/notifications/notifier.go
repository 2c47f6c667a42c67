package notifications

import (
	"context"
	"time"
)

type FinalizationNoticeInput struct {
	UserID      string
	Email       string
	Name        string
	FinalizedAt time.Time
}

// Notifier delivers applicant-facing messages. Implementations return a
// provider message id when the provider assigns one.
type Notifier interface {
	SendFinalizationNotice(ctx context.Context, in FinalizationNoticeInput) (string, error)
}
