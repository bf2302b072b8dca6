// Package notify tells the shop administrator about invoicing failures.
package notify

import (
	"context"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
	"github.com/pablop76/hikashop-fakturownia/internal/store/postgres"
)

//go:generate mockgen -source=notify.go -destination=../mocks/mock_notify.go -package=mocks

// History entry constants as shown in the HikaShop order history.
const (
	HistoryType   = "fakturownia_error"
	HistoryPrefix = "BŁĄD FAKTUROWNIA: "
)

var orderRef = regexp.MustCompile(`#(\d+)`)

// Notifier delivers an admin notification about an order. orderID may be 0,
// in which case implementations try to find "#<id>" in the message.
type Notifier interface {
	Notify(ctx context.Context, orderID int64, message string) error
}

// HistoryWriter persists order history rows.
type HistoryWriter interface {
	AddHistory(ctx context.Context, e postgres.HistoryEntry) error
}

// HistoryNotifier writes the notification into the order history.
type HistoryNotifier struct {
	writer HistoryWriter
}

// NewHistoryNotifier creates a notifier backed by w.
func NewHistoryNotifier(w HistoryWriter) *HistoryNotifier {
	return &HistoryNotifier{writer: w}
}

// Notify implements Notifier. Messages that cannot be tied to an order are
// dropped.
func (n *HistoryNotifier) Notify(ctx context.Context, orderID int64, message string) error {
	if orderID == 0 {
		orderID = OrderIDFromMessage(message)
	}
	if orderID <= 0 {
		logger.Debug("Notification without order reference dropped", zap.String("message", message))
		return nil
	}
	return n.writer.AddHistory(ctx, postgres.HistoryEntry{
		OrderID: orderID,
		Type:    HistoryType,
		Data:    HistoryPrefix + message,
	})
}

// OrderIDFromMessage returns the first "#<digits>" reference in message, or 0.
func OrderIDFromMessage(message string) int64 {
	m := orderRef.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; failures are logged and the first one is returned.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, orderID int64, message string) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, orderID, message); err != nil {
			logger.Warn("Admin notification failed", zap.Int64("order_id", orderID), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, int64, string) error { return nil }
