package book

// Book holds both sides of the market. Bids match best-first at the
// maximum price, asks at the minimum.
type Book struct {
	Bids *RBTree
	Asks *RBTree
}

func New() *Book {
	return &Book{
		Bids: NewRBTree(),
		Asks: NewRBTree(),
	}
}

func (b *Book) side(s Side) *RBTree {
	if s == Bid {
		return b.Bids
	}
	return b.Asks
}

// Insert rests o on its side at its limit price, creating the level if
// needed. FIFO order within the level is arrival order.
func (b *Book) Insert(o *Order) {
	b.side(o.Side).UpsertLevel(o.Price).Enqueue(o)
}

// Best returns the top level of a side: highest bid or lowest ask.
func (b *Book) Best(s Side) *PriceLevel {
	if s == Bid {
		return b.Bids.MaxLevel()
	}
	return b.Asks.MinLevel()
}

// BestPrice returns the top-of-book price for a side.
func (b *Book) BestPrice(s Side) (uint64, bool) {
	lvl := b.Best(s)
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// MidPrice is the average of best bid and ask, or whichever side is
// present. The second return is false when the book is empty.
func (b *Book) MidPrice() (uint64, bool) {
	bid, haveBid := b.BestPrice(Bid)
	ask, haveAsk := b.BestPrice(Ask)
	switch {
	case haveBid && haveAsk:
		return (bid + ask) / 2, true
	case haveBid:
		return bid, true
	case haveAsk:
		return ask, true
	default:
		return 0, false
	}
}

// Remove locates an order by (side, price, id) and unlinks it, pruning
// the level if it empties. Returns nil if no such order rests there.
func (b *Book) Remove(s Side, price, orderID uint64) *Order {
	tree := b.side(s)
	lvl := tree.FindLevel(price)
	if lvl == nil {
		return nil
	}
	for o := lvl.Head(); o != nil; o = o.Next() {
		if o.ID == orderID {
			lvl.Unlink(o)
			if lvl.Empty() {
				tree.DeleteLevel(price)
			}
			return o
		}
	}
	return nil
}

// Drop unlinks an order known to rest on lvl, pruning lvl if emptied.
// Used by the matching loop which already holds the level.
func (b *Book) Drop(s Side, lvl *PriceLevel, o *Order) {
	lvl.Unlink(o)
	if lvl.Empty() {
		b.side(s).DeleteLevel(lvl.Price)
	}
}

// OrdersOf scans both sides and returns every resting order for a user,
// best levels first. The slice is detached from the book; callers use
// it to drive cancellation.
func (b *Book) OrdersOf(user uint64) []*Order {
	var out []*Order
	b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			if o.User == user {
				out = append(out, o)
			}
		}
		return true
	})
	b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			if o.User == user {
				out = append(out, o)
			}
		}
		return true
	})
	return out
}

// ForEach visits every resting order, bids best-first then asks
// best-first. Used by snapshots.
func (b *Book) ForEach(visit func(*Order)) {
	b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			visit(o)
		}
		return true
	})
	b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			visit(o)
		}
		return true
	})
}
