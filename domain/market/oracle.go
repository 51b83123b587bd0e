package market

// ScaleOraclePrice converts a raw feed observation (mantissa and
// decimal exponent) to the engine's 6-decimal fixed-point scale. The
// feed's own staleness bound is enforced by the caller before the
// value reaches the engine.
func ScaleOraclePrice(mantissa int64, exponent int32) uint64 {
	if mantissa < 0 {
		mantissa = -mantissa
	}
	v := uint64(mantissa)
	switch {
	case exponent < -6:
		for e := exponent; e < -6; e++ {
			v /= 10
		}
	case exponent > -6:
		for e := exponent; e > -6; e-- {
			v *= 10
		}
	}
	return v
}

// OracleBand bounds the limit prices a perpetual market accepts
// relative to the oracle price: [oracle/2, oracle*3/2].
func OracleBand(oraclePrice uint64) (min, max uint64) {
	return oraclePrice / 2, oraclePrice * 3 / 2
}

// RiskParams are the per-asset parameters supplied by the external
// registry collaborator, all in basis points except leverage.
type RiskParams struct {
	MaintenanceMarginBps uint16
	LiquidationFeeBps    uint16
	MaxLeverage          uint16
}
