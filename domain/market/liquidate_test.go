package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kronos/domain/book"
)

// openLong crosses a trade so user 1 holds a 10-unit long at 100 with
// the given margin, against user 2's short.
func openLong(t *testing.T, m *Market, margin uint64) {
	t.Helper()
	_, err := m.DepositCollateral(1, margin, 0, testRisk, 1500)
	require.NoError(t, err)
	place(t, m, PlaceRequest{User: 2, Side: book.Ask, Price: px100, Size: qty10, Type: book.Limit})
	place(t, m, PlaceRequest{User: 1, Side: book.Bid, Price: px100, Size: qty10, Type: book.Limit})
}

func TestLiquidateGates(t *testing.T) {
	spot := newTestMarket(t, false)
	_, err := spot.LiquidatePosition(1, 9, px100, testRisk, 3000)
	require.ErrorIs(t, err, ErrNotPerpetualMarket)

	m := newTestMarket(t, true)
	_, err = m.LiquidatePosition(1, 9, 0, testRisk, 3000)
	require.ErrorIs(t, err, ErrMissingOraclePrice)

	_, err = m.LiquidatePosition(1, 9, px100, testRisk, 3000)
	require.ErrorIs(t, err, ErrPositionNotFound)
}

func TestLiquidateHealthyPositionRejected(t *testing.T) {
	m := newTestMarket(t, true)
	openLong(t, m, 100*PricePrecision)

	_, err := m.LiquidatePosition(1, 9, px100, testRisk, 3000)
	require.ErrorIs(t, err, ErrPositionNotLiquidatable)
	require.NotNil(t, m.Position(1))
}

func TestLiquidateUnderwaterLong(t *testing.T) {
	m := newTestMarket(t, true)
	openLong(t, m, 100*PricePrecision)

	// price crashes: pnl = -100, equity 0, requirement 45
	crash := uint64(90 * PricePrecision)
	res, err := m.LiquidatePosition(1, 9, crash, testRisk, 3000)
	require.NoError(t, err)

	// fee = value(900) * 1% = 9, remaining = 100 - 9 = 91
	require.Equal(t, uint64(9*PricePrecision), res.Fee)
	require.Equal(t, uint64(91*PricePrecision), res.Remaining)

	require.Nil(t, m.Position(1))
	require.Equal(t, uint64(0), m.OpenInterestLong)

	require.Len(t, res.Events, 1)
	ev := res.Events[0].(*PositionLiquidated)
	require.Equal(t, uint64(1), ev.User)
	require.Equal(t, uint64(9), ev.Liquidator)
	require.Equal(t, uint64(qty10), ev.Size)
}

func TestLiquidationFeeCappedByMargin(t *testing.T) {
	m := newTestMarket(t, true)
	// margin smaller than the fee the crash price implies
	openLong(t, m, 5*PricePrecision)

	crash := uint64(90 * PricePrecision)
	res, err := m.LiquidatePosition(1, 9, crash, testRisk, 3000)
	require.NoError(t, err)
	require.Equal(t, uint64(9*PricePrecision), res.Fee)
	require.Equal(t, uint64(0), res.Remaining)
}
