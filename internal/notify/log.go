package notify

import (
	"context"

	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

// logSender writes messages to the log instead of delivering them. Used
// when no SMTP host is configured.
type logSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) Sender {
	return &logSender{log: log.With(zap.String("sender", "log"))}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.log.Info("Outgoing email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	s.log.Debug("Outgoing email body", zap.String("body", msg.Body))
	return nil
}

// NewSender picks SMTP when a host is configured, the log sender otherwise.
func NewSender(cfg utils.EmailConfig, log *zap.Logger) Sender {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, login codes will only be logged")
		return NewLogSender(log)
	}
	return NewSMTPSender(cfg)
}
