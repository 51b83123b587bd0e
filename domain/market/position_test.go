package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kronos/domain/book"
)

func TestUnrealizedPnL(t *testing.T) {
	long := &Position{Side: book.Bid, Size: qty5, EntryPrice: px100}
	require.Equal(t, int64(0), long.UnrealizedPnL(px100))
	// +2 per unit on 5 units
	require.Equal(t, int64(10*PricePrecision), long.UnrealizedPnL(px102))
	require.Equal(t, int64(-10*PricePrecision), long.UnrealizedPnL(px100-2*PricePrecision))

	short := &Position{Side: book.Ask, Size: qty5, EntryPrice: px100}
	require.Equal(t, int64(-10*PricePrecision), short.UnrealizedPnL(px102))
	require.Equal(t, int64(10*PricePrecision), short.UnrealizedPnL(px100-2*PricePrecision))
}

func TestEquityClampedAtZero(t *testing.T) {
	p := &Position{Side: book.Bid, Size: qty5, EntryPrice: px100, Margin: 3 * PricePrecision}
	// loss of 10 exceeds margin of 3
	require.Equal(t, uint64(0), p.Equity(px100-2*PricePrecision))
	// gain adds to margin
	require.Equal(t, uint64(13*PricePrecision), p.Equity(px102))
}

func TestApplyFillAveragesEntry(t *testing.T) {
	p := &Position{}
	p.applyFill(book.Bid, px100, qty5)
	require.Equal(t, uint64(px100), p.EntryPrice)
	require.Equal(t, uint64(qty5), p.Size)

	p.applyFill(book.Bid, px102, qty5)
	require.Equal(t, uint64(px101), p.EntryPrice)
	require.Equal(t, uint64(qty10), p.Size)
}

func TestApplyFillReducesAndFlips(t *testing.T) {
	p := &Position{}
	p.applyFill(book.Bid, px100, qty10)

	// partial reduce keeps side and entry
	p.applyFill(book.Ask, px102, qty5)
	require.Equal(t, book.Bid, p.Side)
	require.Equal(t, uint64(qty5), p.Size)
	require.Equal(t, uint64(px100), p.EntryPrice)

	// over-fill flips the side with the excess at the fill price
	p.applyFill(book.Ask, px102, qty10)
	require.Equal(t, book.Ask, p.Side)
	require.Equal(t, uint64(qty5), p.Size)
	require.Equal(t, uint64(px102), p.EntryPrice)
}

func TestLiquidationPrice(t *testing.T) {
	p := &Position{Side: book.Bid, Size: qty5, EntryPrice: px100, Leverage: 10}
	p.UpdateLiquidationPrice(500) // 5% maintenance

	// long: entry * (1 - 1/leverage + maintenance) = 100 * 0.95
	require.Equal(t, uint64(95*PricePrecision), p.LiquidationPrice)

	p.Side = book.Ask
	p.UpdateLiquidationPrice(500)
	// short: entry * (1 + 1/leverage - maintenance) = 100 * 1.05
	require.Equal(t, uint64(105*PricePrecision), p.LiquidationPrice)

	p.Size = 0
	p.UpdateLiquidationPrice(500)
	require.Equal(t, uint64(0), p.LiquidationPrice)
}

func TestLiquidatable(t *testing.T) {
	p := &Position{Side: book.Bid, Size: qty10, EntryPrice: px100, Margin: 100 * PricePrecision}

	require.False(t, p.Liquidatable(px100, 500))

	// price drops far enough that equity < maintenance requirement
	crash := uint64(90 * PricePrecision)
	require.True(t, p.Liquidatable(crash, 500))

	flat := &Position{}
	require.False(t, flat.Liquidatable(px100, 500))
}
