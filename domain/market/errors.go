package market

import "errors"

// Every operation either completes fully or returns one of these with
// no observable state change.
var (
	// Parameter validation.
	ErrInvalidParameters  = errors.New("invalid parameters")
	ErrOrderSizeTooSmall  = errors.New("order size below minimum")
	ErrInvalidTickSize    = errors.New("price not a multiple of tick size")
	ErrExceedsMaxLeverage = errors.New("exceeds maximum leverage")

	// State not found.
	ErrOrderNotFound    = errors.New("order not found")
	ErrPositionNotFound = errors.New("position not found")

	// Business rules.
	ErrMarketInactive         = errors.New("market inactive")
	ErrPostOnlyWouldMatch     = errors.New("post-only order would match")
	ErrInvalidReduceOnlyOrder = errors.New("reduce-only order would increase position")
	ErrInvalidReduceOnlySize  = errors.New("reduce-only size exceeds position size")
	ErrNoPositionToReduce     = errors.New("no position to reduce")
	ErrSelfTradePrevented     = errors.New("self-trade prevented")
	ErrPriceOutOfRange        = errors.New("price outside allowed range")
	ErrNoLiquidity            = errors.New("no fillable liquidity")

	// Financial safety.
	ErrInsufficientMargin        = errors.New("insufficient margin")
	ErrWithdrawalWouldLiquidate  = errors.New("withdrawal would trigger liquidation")
	ErrPositionNotLiquidatable   = errors.New("position not liquidatable")
	ErrNotPerpetualMarket        = errors.New("not a perpetual market")
	ErrFundingTooSoon            = errors.New("funding rate update too soon")

	// External input.
	ErrMissingOraclePrice = errors.New("oracle price unavailable")
	ErrAssetNotAvailable  = errors.New("asset not available in registry")
)
