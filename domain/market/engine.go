package market

import (
	"kronos/domain/book"
)

// PlaceRequest carries one inbound order. OraclePrice is the resolved,
// already-scaled feed value, or zero when no feed is available; the
// engine never talks to the feed itself.
type PlaceRequest struct {
	User        uint64
	ClientID    uint64 // 0 lets the market assign one
	Side        book.Side
	Price       uint64
	Size        uint64
	Type        book.OrderType
	SelfTrade   book.SelfTradeBehavior
	ReduceOnly  bool
	PostOnly    bool
	Leverage    uint16 // 0 leaves leverage unchanged
	OraclePrice uint64
}

// PlaceResult reports what a successful PlaceOrder did.
type PlaceResult struct {
	OrderID   uint64
	ClientID  uint64
	Filled    uint64
	Remaining uint64
	Rested    bool
	Events    []Event
}

// PlaceOrder validates and executes one order as a single atomic state
// transition: every precondition is checked before the first mutation,
// so an error return implies an untouched market.
func (m *Market) PlaceOrder(req PlaceRequest, risk RiskParams, now int64) (*PlaceResult, error) {
	if m.Status != Active {
		return nil, ErrMarketInactive
	}
	if req.Size < m.cfg.MinOrderSize {
		return nil, ErrOrderSizeTooSmall
	}
	if req.Type != book.Market {
		if req.Price%m.cfg.TickSize != 0 {
			return nil, ErrInvalidTickSize
		}
		if m.cfg.Perpetual && req.OraclePrice > 0 {
			min, max := OracleBand(req.OraclePrice)
			if req.Price < min || req.Price > max {
				return nil, ErrPriceOutOfRange
			}
		}
	}
	if req.ReduceOnly {
		pos := m.positions[req.User]
		if pos == nil || pos.Size == 0 {
			return nil, ErrNoPositionToReduce
		}
		if pos.Side != req.Side.Opposite() {
			return nil, ErrInvalidReduceOnlyOrder
		}
		if req.Size > pos.Size {
			return nil, ErrInvalidReduceOnlySize
		}
	}
	if m.cfg.Perpetual && req.Leverage > 0 {
		if req.Leverage > m.cfg.MaxLeverage {
			return nil, ErrExceedsMaxLeverage
		}
	}

	switch req.Type {
	case book.PostOnly:
		if m.wouldCross(req.Side, req.Price) {
			return nil, ErrPostOnlyWouldMatch
		}
	case book.Market, book.IOC, book.Limit:
		fillable, selfHit := m.previewMatch(req)
		if selfHit {
			return nil, ErrSelfTradePrevented
		}
		if fillable == 0 && (req.Type == book.Market || req.Type == book.IOC) {
			return nil, ErrNoLiquidity
		}
	}

	// All validations passed; mutation starts here.
	if m.cfg.Perpetual && req.Leverage > 0 {
		pos := m.getOrCreatePosition(req.User, req.Side, now)
		pos.Leverage = req.Leverage
		if pos.Size > 0 {
			pos.UpdateLiquidationPrice(risk.MaintenanceMarginBps)
		}
	}

	orderID := m.nextOrderID
	m.nextOrderID++
	clientID := req.ClientID
	if clientID == 0 {
		clientID = m.nextClientID
		m.nextClientID++
	}

	taker := &book.Order{
		ID:         orderID,
		ClientID:   clientID,
		User:       req.User,
		Side:       req.Side,
		Price:      req.Price,
		Size:       req.Size,
		Remaining:  req.Size,
		ReduceOnly: req.ReduceOnly,
		PostOnly:   req.PostOnly,
		CreatedAt:  now,
	}
	res := &PlaceResult{OrderID: orderID, ClientID: clientID}

	switch req.Type {
	case book.PostOnly:
		m.Book.Insert(taker)
		res.Rested = true
		res.Events = append(res.Events, m.restedEvent(taker, now))
	case book.Market, book.IOC:
		m.matchLoop(taker, req, risk, now, res)
	case book.Limit:
		aborted := m.matchLoop(taker, req, risk, now, res)
		if taker.Remaining > 0 && !aborted {
			m.Book.Insert(taker)
			res.Rested = true
			res.Events = append(res.Events, m.restedEvent(taker, now))
		}
	}

	res.Filled = taker.Size - taker.Remaining
	res.Remaining = taker.Remaining
	return res, nil
}

// wouldCross reports whether a resting order at price would match the
// opposite best immediately.
func (m *Market) wouldCross(side book.Side, price uint64) bool {
	best, ok := m.Book.BestPrice(side.Opposite())
	if !ok {
		return false
	}
	if side == book.Bid {
		return best <= price
	}
	return best >= price
}

// crosses reports whether a maker level at lvlPrice is marketable for
// a taker limit at takerPrice.
func crosses(side book.Side, takerPrice, lvlPrice uint64) bool {
	if side == book.Bid {
		return lvlPrice <= takerPrice
	}
	return lvlPrice >= takerPrice
}

// previewMatch dry-runs the matching loop without mutating anything.
// It returns the quantity that would fill and whether a CancelTaker
// self-trade would abort the operation. Running it before the real
// loop keeps failed operations free of side effects.
func (m *Market) previewMatch(req PlaceRequest) (fillable uint64, selfHit bool) {
	remaining := req.Size
	walk := func(lvl *book.PriceLevel) bool {
		if req.Type != book.Market && !crosses(req.Side, req.Price, lvl.Price) {
			return false
		}
		for o := lvl.Head(); o != nil; o = o.Next() {
			if remaining == 0 {
				return false
			}
			if o.User == req.User {
				switch req.SelfTrade {
				case book.CancelTaker:
					selfHit = true
					return false
				case book.CancelBoth:
					// matching would stop at this maker
					return false
				case book.CancelMaker:
					continue
				case book.DecrementTake:
				}
			}
			trade := min(remaining, o.Remaining)
			fillable += trade
			remaining -= trade
		}
		return remaining > 0
	}
	if req.Side == book.Bid {
		m.Book.Asks.ForEachAscending(walk)
	} else {
		m.Book.Bids.ForEachDescending(walk)
	}
	return fillable, selfHit
}

// matchLoop walks the opposing side best-first, filling FIFO within
// each level. Returns true if a CancelBoth self-trade aborted the
// taker, in which case the remainder must not rest.
func (m *Market) matchLoop(taker *book.Order, req PlaceRequest, risk RiskParams, now int64, res *PlaceResult) bool {
	opp := taker.Side.Opposite()
	for taker.Remaining > 0 {
		lvl := m.Book.Best(opp)
		if lvl == nil {
			return false
		}
		if req.Type != book.Market && !crosses(taker.Side, taker.Price, lvl.Price) {
			return false
		}
		maker := lvl.Head()

		if maker.User == taker.User {
			switch req.SelfTrade {
			case book.CancelMaker:
				m.Book.Drop(opp, lvl, maker)
				res.Events = append(res.Events, m.cancelledEvent(maker, now))
				continue
			case book.CancelBoth:
				m.Book.Drop(opp, lvl, maker)
				res.Events = append(res.Events, m.cancelledEvent(maker, now))
				return true
			case book.CancelTaker:
				// excluded by previewMatch
				return true
			case book.DecrementTake:
			}
		}

		match := min(taker.Remaining, maker.Remaining)
		quote := match * lvl.Price / PricePrecision
		takerFee := quote * uint64(m.cfg.TakerFeeBps) / bpsDenom
		makerRebate := quote * uint64(m.cfg.MakerRebateBps) / bpsDenom

		maker.Remaining -= match
		taker.Remaining -= match
		lvl.Reduce(match)

		res.Events = append(res.Events, &OrderMatched{
			Market:        m.cfg.Symbol,
			OrderID:       taker.ID,
			MakerOrderID:  maker.ID,
			ClientID:      taker.ClientID,
			MakerClientID: maker.ClientID,
			User:          taker.User,
			Maker:         maker.User,
			Side:          taker.Side.String(),
			Price:         lvl.Price,
			Size:          match,
			QuoteAmount:   quote,
			TakerFee:      takerFee,
			MakerRebate:   makerRebate,
			RemainingSize: taker.Remaining,
			Timestamp:     now,
		})

		if m.cfg.Perpetual {
			res.Events = append(res.Events,
				m.applyPerpFill(taker.User, taker.Side, lvl.Price, match, risk, now),
				m.applyPerpFill(maker.User, maker.Side, lvl.Price, match, risk, now),
			)
			if taker.Side == book.Bid {
				m.OpenInterestLong += match
			} else {
				m.OpenInterestShort += match
			}
		}

		if maker.Filled() {
			m.Book.Drop(opp, lvl, maker)
		}
	}
	return false
}

// applyPerpFill folds one fill into a user's position and recomputes
// the derived liquidation price.
func (m *Market) applyPerpFill(user uint64, side book.Side, price, size uint64, risk RiskParams, now int64) Event {
	pos := m.getOrCreatePosition(user, side, now)
	pos.applyFill(side, price, size)
	pos.UpdateLiquidationPrice(risk.MaintenanceMarginBps)
	pos.UpdatedAt = now
	return &PositionUpdated{
		Market:           m.cfg.Symbol,
		User:             user,
		Side:             pos.Side.String(),
		Size:             pos.Size,
		Margin:           pos.Margin,
		EntryPrice:       pos.EntryPrice,
		Leverage:         pos.Leverage,
		RealizedPnL:      pos.RealizedPnL,
		LiquidationPrice: pos.LiquidationPrice,
		Timestamp:        now,
	}
}

func (m *Market) restedEvent(o *book.Order, now int64) Event {
	return &OrderRested{
		Market:     m.cfg.Symbol,
		OrderID:    o.ID,
		ClientID:   o.ClientID,
		User:       o.User,
		Side:       o.Side.String(),
		Price:      o.Price,
		Size:       o.Remaining,
		ReduceOnly: o.ReduceOnly,
		PostOnly:   o.PostOnly,
		Timestamp:  now,
	}
}

func (m *Market) cancelledEvent(o *book.Order, now int64) Event {
	return &OrderCancelled{
		Market:        m.cfg.Symbol,
		OrderID:       o.ID,
		ClientID:      o.ClientID,
		User:          o.User,
		Side:          o.Side.String(),
		Price:         o.Price,
		RemainingSize: o.Remaining,
		ReduceOnly:    o.ReduceOnly,
		Timestamp:     now,
	}
}
