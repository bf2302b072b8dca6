package postgres

import (
	"context"
	"fmt"
	"time"
)

// HistoryEntry is one hikashop_history row. Only the fields the bridge
// fills are exposed; the rest default to empty.
type HistoryEntry struct {
	OrderID int64
	Type    string
	Data    string
	Created time.Time
}

// AddHistory appends an entry to the order history visible in the shop
// back office.
func (s *OrderStore) AddHistory(ctx context.Context, e HistoryEntry) error {
	created := e.Created
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO hikashop_history
    (history_order_id, history_created, history_ip, history_new_status, history_reason,
     history_notified, history_amount, history_payment_id, history_payment_method,
     history_data, history_type, history_user_id)
VALUES ($1, $2, '', '', '', 0, '', '', '', $3, $4, 0)`,
		e.OrderID, created.Unix(), e.Data, e.Type)
	if err != nil {
		return fmt.Errorf("failed to add history for order %d: %w", e.OrderID, err)
	}
	return nil
}
