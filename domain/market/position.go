package market

import "kronos/domain/book"

// Position is the per-user perpetual ledger entry: side, size, margin
// and the size-weighted average entry price of every add.
type Position struct {
	Side             book.Side
	Size             uint64
	Margin           uint64
	EntryPrice       uint64
	Leverage         uint16
	LastFundingIndex int64
	RealizedPnL      int64
	LiquidationPrice uint64
	UpdatedAt        int64
}

func NewPosition(side book.Side, margin uint64, now int64) *Position {
	return &Position{
		Side:      side,
		Margin:    margin,
		Leverage:  1,
		UpdatedAt: now,
	}
}

func (p *Position) Empty() bool { return p.Size == 0 }

// UnrealizedPnL at a given price: longs gain as price rises, shorts as
// it falls. Scaled by PricePrecision.
func (p *Position) UnrealizedPnL(price uint64) int64 {
	if p.Size == 0 {
		return 0
	}
	var diff int64
	if p.Side == book.Bid {
		diff = int64(price) - int64(p.EntryPrice)
	} else {
		diff = int64(p.EntryPrice) - int64(price)
	}
	return diff * int64(p.Size) / PricePrecision
}

// Equity is margin plus unrealized PnL, clamped at zero: a position can
// lose at most its margin.
func (p *Position) Equity(price uint64) uint64 {
	pnl := p.UnrealizedPnL(price)
	if pnl < 0 {
		loss := uint64(-pnl)
		if loss >= p.Margin {
			return 0
		}
		return p.Margin - loss
	}
	return p.Margin + uint64(pnl)
}

// NotionalValue is the position size in quote terms at price.
func (p *Position) NotionalValue(price uint64) uint64 {
	return p.Size * price / PricePrecision
}

// UpdateLiquidationPrice recomputes the derived liquidation price from
// entry price, leverage and the maintenance margin ratio (bps).
func (p *Position) UpdateLiquidationPrice(maintenanceMarginBps uint16) {
	if p.Size == 0 {
		p.LiquidationPrice = 0
		return
	}
	maintenance := float64(maintenanceMarginBps) / bpsDenom
	var ratio float64
	if p.Side == book.Bid {
		ratio = 1.0 - 1.0/float64(p.Leverage) + maintenance
	} else {
		ratio = 1.0 + 1.0/float64(p.Leverage) - maintenance
	}
	p.LiquidationPrice = uint64(float64(p.EntryPrice) * ratio)
}

// Liquidatable reports whether equity has fallen below the maintenance
// requirement at price.
func (p *Position) Liquidatable(price uint64, maintenanceMarginBps uint16) bool {
	if p.Size == 0 {
		return false
	}
	required := p.NotionalValue(price) * uint64(maintenanceMarginBps) / bpsDenom
	return p.Equity(price) < required
}

// applyFill folds one fill into the position. A flat position adopts
// the fill; a same-side fill re-averages the entry price; an
// opposite-side fill reduces and, past zero, flips the side with the
// excess as the new entry quantity at the fill price.
func (p *Position) applyFill(side book.Side, price, size uint64) {
	switch {
	case p.Size == 0:
		p.Side = side
		p.Size = size
		p.EntryPrice = price
	case p.Side == side:
		newSize := p.Size + size
		p.EntryPrice = (p.EntryPrice*p.Size + price*size) / newSize
		p.Size = newSize
	default:
		if size < p.Size {
			p.Size -= size
		} else {
			p.Side = side
			p.Size = size - p.Size
			p.EntryPrice = price
		}
	}
}
