package market

import "kronos/domain/book"

// UpdateFundingRate recomputes the funding rate from mark vs. oracle
// price and applies it pro-rata to every open position: longs pay a
// positive rate, shorts receive it. Valid only on perpetual markets
// and only after the funding interval has elapsed.
func (m *Market) UpdateFundingRate(oraclePrice uint64, now int64) ([]Event, error) {
	if !m.cfg.Perpetual {
		return nil, ErrNotPerpetualMarket
	}
	if now < m.LastFundingTimestamp+m.cfg.FundingInterval {
		return nil, ErrFundingTooSoon
	}
	if oraclePrice == 0 {
		return nil, ErrMissingOraclePrice
	}

	markPrice, ok := m.Book.MidPrice()
	if !ok {
		markPrice = oraclePrice
	}

	// premium index in bps, funding rate = hourly fraction of the
	// daily premium
	premiumIndex := (int64(markPrice) - int64(oraclePrice)) * bpsDenom / int64(oraclePrice)
	fundingRate := premiumIndex / 24

	currentFundingLong := m.CumulativeFundingLong

	m.EachPosition(func(user uint64, pos *Position) {
		if pos.Size == 0 {
			return
		}
		positionValue := pos.Size * oraclePrice / PricePrecision
		var payment int64
		if pos.Side == book.Bid {
			payment = -fundingRate * int64(positionValue) / bpsDenom
		} else {
			payment = fundingRate * int64(positionValue) / bpsDenom
		}
		pos.RealizedPnL += payment
		pos.LastFundingIndex = currentFundingLong
	})

	m.LastOraclePrice = oraclePrice
	m.MarkPrice = markPrice
	m.LastFundingTimestamp = now
	m.CumulativeFundingLong += fundingRate
	m.CumulativeFundingShort -= fundingRate

	return []Event{&FundingRateUpdated{
		Market:       m.cfg.Symbol,
		OraclePrice:  oraclePrice,
		MarkPrice:    markPrice,
		PremiumIndex: premiumIndex,
		FundingRate:  fundingRate,
		Timestamp:    now,
	}}, nil
}
