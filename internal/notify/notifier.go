package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/broadcast"
)

// NotificationPayload is the broadcast shape mirroring the mail content.
type NotificationPayload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Notifier sends best-effort alerts: an email delivery attempt plus a
// real-time broadcast carrying the same payload. Errors never reach the
// caller; failed deliveries are logged and dropped.
type Notifier struct {
	mailer      Mailer
	broadcaster broadcast.Broadcaster
	logger      *zap.Logger
}

// NewNotifier constructs the notifier. broadcaster may be nil.
func NewNotifier(mailer Mailer, broadcaster broadcast.Broadcaster, logger *zap.Logger) *Notifier {
	return &Notifier{mailer: mailer, broadcaster: broadcaster, logger: logger}
}

// Notify attempts delivery to recipientEmail and broadcasts a "notification"
// event with the same payload. The broadcast fires independent of whether
// the mail delivery succeeded.
func (n *Notifier) Notify(ctx context.Context, recipientEmail, subject, body string) {
	if err := n.mailer.Send(ctx, recipientEmail, subject, body); err != nil {
		n.logger.Error("email delivery failed",
			zap.String("recipient", recipientEmail),
			zap.String("subject", subject),
			zap.Error(err))
	} else {
		n.logger.Info("email sent",
			zap.String("recipient", recipientEmail),
			zap.String("subject", subject))
	}

	if n.broadcaster != nil {
		n.broadcaster.Publish(ctx, "notification", NotificationPayload{
			Recipient: recipientEmail,
			Subject:   subject,
			Message:   body,
		})
	}
}
