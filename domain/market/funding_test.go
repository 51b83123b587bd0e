package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kronos/domain/book"
)

func TestFundingGates(t *testing.T) {
	spot := newTestMarket(t, false)
	_, err := spot.UpdateFundingRate(px100, 10_000)
	require.ErrorIs(t, err, ErrNotPerpetualMarket)

	m := newTestMarket(t, true) // created at t=1000, interval 3600
	_, err = m.UpdateFundingRate(px100, 2000)
	require.ErrorIs(t, err, ErrFundingTooSoon)

	_, err = m.UpdateFundingRate(0, 10_000)
	require.ErrorIs(t, err, ErrMissingOraclePrice)
}

func TestFundingPremiumAndRate(t *testing.T) {
	m := newTestMarket(t, true)
	// mark above oracle: resting bid at 102 and ask at 102 gives mid 102
	place(t, m, PlaceRequest{User: 1, Side: book.Bid, Price: px102, Size: qty5, Type: book.Limit})
	place(t, m, PlaceRequest{User: 2, Side: book.Ask, Price: px102 + 2*PricePrecision, Size: qty5, Type: book.Limit})

	events, err := m.UpdateFundingRate(px100, 10_000)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0].(*FundingRateUpdated)
	// mid = 103, premium = (103-100)*10000/100 = 300 bps, rate = 300/24
	require.Equal(t, uint64(103*PricePrecision), ev.MarkPrice)
	require.Equal(t, int64(300), ev.PremiumIndex)
	require.Equal(t, int64(12), ev.FundingRate)

	require.Equal(t, int64(12), m.CumulativeFundingLong)
	require.Equal(t, int64(-12), m.CumulativeFundingShort)
	require.Equal(t, int64(10_000), m.LastFundingTimestamp)
	require.Equal(t, uint64(px100), m.LastOraclePrice)
}

func TestFundingPaymentsLongPaysShort(t *testing.T) {
	m := newTestMarket(t, true)
	// cross a trade so user 1 is long and user 2 short, 5 units at 100
	place(t, m, PlaceRequest{User: 2, Side: book.Ask, Price: px100, Size: qty5, Type: book.Limit})
	place(t, m, PlaceRequest{User: 1, Side: book.Bid, Price: px100, Size: qty5, Type: book.Limit})

	// push mark above oracle so the rate is positive
	place(t, m, PlaceRequest{User: 3, Side: book.Bid, Price: px102, Size: qty5, Type: book.Limit})
	place(t, m, PlaceRequest{User: 4, Side: book.Ask, Price: px102 + 2*PricePrecision, Size: qty5, Type: book.Limit})

	_, err := m.UpdateFundingRate(px100, 10_000)
	require.NoError(t, err)

	long := m.Position(1)
	short := m.Position(2)
	// value = 5 * 100 = 500, payment = 12 * 500 / 10000
	payment := int64(12) * int64(500*PricePrecision) / 10_000
	require.Equal(t, -payment, long.RealizedPnL)
	require.Equal(t, payment, short.RealizedPnL)
}

func TestFundingEmptyBookUsesOracle(t *testing.T) {
	m := newTestMarket(t, true)
	events, err := m.UpdateFundingRate(px100, 10_000)
	require.NoError(t, err)

	ev := events[0].(*FundingRateUpdated)
	require.Equal(t, uint64(px100), ev.MarkPrice)
	require.Equal(t, int64(0), ev.PremiumIndex)
	require.Equal(t, int64(0), ev.FundingRate)
}

func TestFundingIntervalResets(t *testing.T) {
	m := newTestMarket(t, true)
	_, err := m.UpdateFundingRate(px100, 10_000)
	require.NoError(t, err)

	_, err = m.UpdateFundingRate(px100, 10_100)
	require.ErrorIs(t, err, ErrFundingTooSoon)

	_, err = m.UpdateFundingRate(px100, 13_700)
	require.NoError(t, err)
}
