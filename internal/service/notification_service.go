package service

import (
	"context"

	"pixcharge/internal/domain"

	"github.com/rs/zerolog"
)

// StatusPublisher delivers status changes somewhere outside the store:
// websocket subscribers, a message broker.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev domain.StatusChange) error
}

// NotificationService fans a status change out to every publisher. A failing
// publisher is logged and skipped; the stored status is already final.
type NotificationService struct {
	publishers []StatusPublisher
	log        zerolog.Logger
}

func NewNotificationService(log zerolog.Logger, publishers ...StatusPublisher) *NotificationService {
	s := &NotificationService{log: log.With().Str("component", "notifications").Logger()}
	for _, p := range publishers {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
	return s
}

func (s *NotificationService) StatusChanged(ctx context.Context, ev domain.StatusChange) {
	for _, p := range s.publishers {
		if err := p.PublishStatus(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("txid", ev.Txid).Str("to", string(ev.To)).Msg("status publish failed")
		}
	}
}
