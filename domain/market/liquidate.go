package market

import "kronos/domain/book"

// LiquidationResult reports the settlement amounts of a forced close:
// the fee routed to the liquidator and the remaining margin returned
// to the position owner.
type LiquidationResult struct {
	Fee       uint64
	Remaining uint64
	Events    []Event
}

// LiquidatePosition forcibly closes an under-margined position.
// Liquidation is never speculative: the position must actually be
// below its maintenance requirement at the oracle price, otherwise
// the call fails with ErrPositionNotLiquidatable and mutates nothing.
func (m *Market) LiquidatePosition(user, liquidator uint64, oraclePrice uint64, risk RiskParams, now int64) (*LiquidationResult, error) {
	if !m.cfg.Perpetual {
		return nil, ErrNotPerpetualMarket
	}
	if oraclePrice == 0 {
		return nil, ErrMissingOraclePrice
	}
	pos := m.positions[user]
	if pos == nil {
		return nil, ErrPositionNotFound
	}
	if !pos.Liquidatable(oraclePrice, risk.MaintenanceMarginBps) {
		return nil, ErrPositionNotLiquidatable
	}

	positionValue := pos.NotionalValue(oraclePrice)
	maintenanceMargin := positionValue * uint64(risk.MaintenanceMarginBps) / bpsDenom
	fee := positionValue * uint64(risk.LiquidationFeeBps) / bpsDenom

	remaining := uint64(0)
	if pos.Margin > fee {
		remaining = pos.Margin - fee
	}

	if pos.Side == book.Bid {
		if m.OpenInterestLong >= pos.Size {
			m.OpenInterestLong -= pos.Size
		} else {
			m.OpenInterestLong = 0
		}
	} else {
		if m.OpenInterestShort >= pos.Size {
			m.OpenInterestShort -= pos.Size
		} else {
			m.OpenInterestShort = 0
		}
	}

	side := pos.Side
	size := pos.Size
	m.removePosition(user)

	return &LiquidationResult{
		Fee:       fee,
		Remaining: remaining,
		Events: []Event{&PositionLiquidated{
			Market:            m.cfg.Symbol,
			User:              user,
			Liquidator:        liquidator,
			Side:              side.String(),
			Size:              size,
			PositionValue:     positionValue,
			MaintenanceMargin: maintenanceMargin,
			LiquidationFee:    fee,
			Remaining:         remaining,
			OraclePrice:       oraclePrice,
			Timestamp:         now,
		}},
	}, nil
}
