package market

import "kronos/domain/book"

// CancelOrder removes one resting order identified by (orderID, side,
// price). Cancelling an absent order fails with ErrOrderNotFound and
// leaves the book unchanged.
func (m *Market) CancelOrder(user, orderID uint64, side book.Side, price uint64, now int64) ([]Event, error) {
	tree := m.Book.Bids
	if side == book.Ask {
		tree = m.Book.Asks
	}
	lvl := tree.FindLevel(price)
	if lvl == nil {
		return nil, ErrOrderNotFound
	}
	for o := lvl.Head(); o != nil; o = o.Next() {
		if o.ID == orderID && o.User == user {
			m.Book.Drop(side, lvl, o)
			return []Event{m.cancelledEvent(o, now)}, nil
		}
	}
	return nil, ErrOrderNotFound
}

// CancelAllOrders removes every resting order for a user, emitting one
// cancellation event per order. Cancelling with no resting orders is a
// no-op, not an error.
func (m *Market) CancelAllOrders(user uint64, now int64) []Event {
	orders := m.Book.OrdersOf(user)
	events := make([]Event, 0, len(orders))
	for _, o := range orders {
		if removed := m.Book.Remove(o.Side, o.Price, o.ID); removed != nil {
			events = append(events, m.cancelledEvent(removed, now))
		}
	}
	return events
}
