package notification

import (
	"context"
	"log/slog"
)

const (
	// KindSettlementApproved indicates a ledger entry was approved and the
	// wallet balance moved.
	KindSettlementApproved = "settlement_approved"
	// KindSettlementRejected indicates a ledger entry was rejected.
	KindSettlementRejected = "settlement_rejected"
	// KindAdminAdjustment indicates an operator adjusted a wallet directly.
	KindAdminAdjustment = "admin_adjustment"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. The production
// transport (email) lives outside this service; settlement only needs a
// collaborator to hand the event to.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
