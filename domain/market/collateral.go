package market

import "kronos/domain/book"

// DepositCollateral credits margin to the user's position, creating it
// lazily on first deposit. The liquidation price is recomputed when a
// position is open and an oracle price is available.
func (m *Market) DepositCollateral(user, amount uint64, oraclePrice uint64, risk RiskParams, now int64) ([]Event, error) {
	if !m.cfg.Perpetual {
		return nil, ErrNotPerpetualMarket
	}
	if amount == 0 {
		return nil, ErrInvalidParameters
	}

	pos, ok := m.positions[user]
	if !ok {
		pos = NewPosition(book.Bid, amount, now)
		m.positions[user] = pos
	} else {
		pos.Margin += amount
		if pos.Size > 0 && oraclePrice > 0 {
			pos.UpdateLiquidationPrice(risk.MaintenanceMarginBps)
		}
	}
	pos.UpdatedAt = now

	return []Event{&CollateralDeposited{
		Market:      m.cfg.Symbol,
		User:        user,
		Amount:      amount,
		TotalMargin: pos.Margin,
		Timestamp:   now,
	}}, nil
}

// WithdrawCollateral debits margin. With an open position the
// remaining margin must still cover the maintenance requirement at the
// oracle price, otherwise the withdrawal is rejected. The position is
// removed once both size and margin are zero.
func (m *Market) WithdrawCollateral(user, amount uint64, oraclePrice uint64, risk RiskParams, now int64) ([]Event, error) {
	if !m.cfg.Perpetual {
		return nil, ErrNotPerpetualMarket
	}
	pos, ok := m.positions[user]
	if !ok {
		return nil, ErrPositionNotFound
	}
	if pos.Margin < amount {
		return nil, ErrInsufficientMargin
	}
	if pos.Size > 0 {
		if oraclePrice == 0 {
			return nil, ErrMissingOraclePrice
		}
		required := pos.NotionalValue(oraclePrice) * uint64(risk.MaintenanceMarginBps) / bpsDenom
		if pos.Margin-amount < required {
			return nil, ErrWithdrawalWouldLiquidate
		}
	}

	pos.Margin -= amount
	if pos.Size > 0 {
		pos.UpdateLiquidationPrice(risk.MaintenanceMarginBps)
	}
	pos.UpdatedAt = now

	events := []Event{&CollateralWithdrawn{
		Market:          m.cfg.Symbol,
		User:            user,
		Amount:          amount,
		RemainingMargin: pos.Margin,
		Timestamp:       now,
	}}

	if pos.Size == 0 && pos.Margin == 0 {
		m.removePosition(user)
	}
	return events, nil
}
