package notification

import (
	"context"

	"go.uber.org/zap"
)

// EmailSender delivers one reminder email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// WhatsAppSender delivers one reminder message to a phone number
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, phone, message string) error
}

// LoggingSender writes outbound reminders to the log instead of delivering
// them. It stands in for real providers in development and tests.
type LoggingSender struct {
	logger *zap.Logger
}

// NewLoggingSender creates a sender that only logs
func NewLoggingSender(logger *zap.Logger) *LoggingSender {
	return &LoggingSender{logger: logger}
}

// SendEmail logs the email instead of sending it
func (s *LoggingSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.logger.Info("email reminder (logging sender)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// SendWhatsApp logs the message instead of sending it
func (s *LoggingSender) SendWhatsApp(_ context.Context, phone, _ string) error {
	s.logger.Info("whatsapp reminder (logging sender)",
		zap.String("phone", phone),
	)
	return nil
}

var _ EmailSender = (*LoggingSender)(nil)
var _ WhatsAppSender = (*LoggingSender)(nil)
