// Package sender has the notification delivery channels.
package sender

import (
	"context"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"go.uber.org/zap"
)

// LogSender writes every message to the service log, always enabled
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg domain.Message) error {
	s.log.Info("Notification",
		zap.String("notificationID", msg.NotificationID.String()),
		zap.String("userID", msg.UserID.String()),
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (s *LogSender) Name() string { return "log" }
