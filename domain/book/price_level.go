package book

// PriceLevel is a FIFO queue of resting orders at a single price.
type PriceLevel struct {
	Price uint64

	head *Order
	tail *Order

	TotalQty   uint64
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Remaining
	p.OrderCount++
}

// Unlink removes o from the queue. o must currently rest on this level;
// its accounted quantity is the remaining size at removal time.
func (p *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil

	if p.TotalQty >= o.Remaining {
		p.TotalQty -= o.Remaining
	} else {
		p.TotalQty = 0
	}
	p.OrderCount--
}

// Reduce lowers the level's accounted quantity after a partial fill of
// one of its orders.
func (p *PriceLevel) Reduce(qty uint64) {
	if p.TotalQty >= qty {
		p.TotalQty -= qty
	} else {
		p.TotalQty = 0
	}
}

func (p *PriceLevel) Empty() bool { return p.head == nil }

// Head returns the oldest order at this level.
func (p *PriceLevel) Head() *Order { return p.head }
