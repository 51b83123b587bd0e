package book

// Side of the book an order rests on.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// OrderType selects matching semantics for an incoming order.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
	PostOnly
	IOC
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "limit"
	case Market:
		return "market"
	case PostOnly:
		return "post_only"
	case IOC:
		return "ioc"
	default:
		return "unknown"
	}
}

// SelfTradeBehavior resolves fills where maker and taker are the same
// user.
type SelfTradeBehavior uint8

const (
	DecrementTake SelfTradeBehavior = iota
	CancelMaker
	CancelTaker
	CancelBoth
)

// Order is an immutable request plus mutable fill state. Price and
// size are fixed-point integers scaled by PricePrecision. The intrusive
// next/prev links are owned by the price level the order rests on.
type Order struct {
	ID         uint64
	ClientID   uint64
	User       uint64
	Side       Side
	Price      uint64
	Size       uint64
	Remaining  uint64
	ReduceOnly bool
	PostOnly   bool
	CreatedAt  int64

	next *Order
	prev *Order
}

// Filled reports whether the order has no remaining size.
func (o *Order) Filled() bool { return o.Remaining == 0 }

// Next returns the order behind o in its level's FIFO queue.
func (o *Order) Next() *Order { return o.next }
