// Package snapshot persists the full market state so recovery can skip
// replaying the whole journal. A snapshot captures the counters, the
// funding state, every resting order and every open position at a known
// journal sequence; records at or below that sequence are not replayed.
package snapshot

import (
	"kronos/domain/book"
)

const FileName = "snapshot.bin"

// OrderEntry is one resting order in serialized form.
type OrderEntry struct {
	ID         uint64
	ClientID   uint64
	User       uint64
	Side       book.Side
	Price      uint64
	Size       uint64
	Remaining  uint64
	ReduceOnly bool
	PostOnly   bool
	CreatedAt  int64
}

// PositionEntry is one open position in serialized form.
type PositionEntry struct {
	User             uint64
	Side             book.Side
	Size             uint64
	Margin           uint64
	EntryPrice       uint64
	Leverage         uint16
	LastFundingIndex int64
	RealizedPnL      int64
	LiquidationPrice uint64
	UpdatedAt        int64
}

// Snapshot is the gob-encoded state of one market.
type Snapshot struct {
	Seq     uint64
	Created int64

	NextOrderID  uint64
	NextClientID uint64
	Status       uint8

	LastFundingTimestamp   int64
	LastOraclePrice        uint64
	MarkPrice              uint64
	OpenInterestLong       uint64
	OpenInterestShort      uint64
	CumulativeFundingLong  int64
	CumulativeFundingShort int64

	Orders    []OrderEntry
	Positions []PositionEntry
}
