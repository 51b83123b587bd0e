package service

import (
	"context"

	"kronos/domain/market"
)

// OraclePrice is one raw feed observation before scaling.
type OraclePrice struct {
	Mantissa    int64
	Exponent    int32
	Confidence  uint64
	PublishedAt int64
}

// Scaled converts the raw observation to the fixed-point price scale.
func (p OraclePrice) Scaled() uint64 {
	return market.ScaleOraclePrice(p.Mantissa, p.Exponent)
}

// Oracle resolves external index prices. Implementations enforce feed
// identity and staleness: a price older than maxAge seconds must be
// rejected.
type Oracle interface {
	Price(ctx context.Context, feedID string, maxAge int64) (OraclePrice, error)
}

// Registry supplies per-asset risk parameters.
type Registry interface {
	RiskParams(ctx context.Context, assetID string) (market.RiskParams, error)
}

// Custody moves collateral between user accounts and the exchange
// vault. Transfers are external to the matching state machine and are
// never part of journal replay.
type Custody interface {
	Transfer(ctx context.Context, from, to, amount uint64) error
}
