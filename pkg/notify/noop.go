package notify

import (
	"context"

	"github.com/postop-risk-server/internal/domain"
)

// NoopNotifier discards every alert. Used when no notifier is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, *domain.RiskAlert) error { return nil }
func (NoopNotifier) Close() error                                    { return nil }
