package market

import (
	"slices"

	"kronos/domain/book"
)

// PricePrecision is the fixed-point scale for prices and sizes: one
// whole unit is 1_000_000.
const PricePrecision = 1_000_000

const bpsDenom = 10_000

const (
	maxTakerFeeBps   = 500
	maxLeverageBound = 10_000

	maxNameLen    = 32
	maxSymbolLen  = 16
	maxAssetIDLen = 16
)

// Status of a market.
type Status uint8

const (
	Active Status = iota
	Paused
	Closed
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the immutable parameters a market is created with.
type Config struct {
	Name    string
	Symbol  string
	AssetID string

	MinOrderSize   uint64
	TickSize       uint64
	TakerFeeBps    uint16
	MakerRebateBps uint16

	Perpetual       bool
	MaxLeverage     uint16
	FundingInterval int64 // seconds between funding updates
	OracleFeedID    string
	MaxOracleAge    int64 // seconds
}

// Market is one tradeable pair: its book, its position ledger, and the
// monotonic counters that order every operation applied to it. All
// mutation goes through the exported operations; the market is
// single-writer by construction.
type Market struct {
	cfg    Config
	Status Status

	nextOrderID  uint64
	nextClientID uint64

	LastFundingTimestamp   int64
	LastOraclePrice        uint64
	MarkPrice              uint64
	OpenInterestLong       uint64
	OpenInterestShort      uint64
	CumulativeFundingLong  int64
	CumulativeFundingShort int64

	Book      *book.Book
	positions map[uint64]*Position
}

// New validates cfg and returns an active market with an empty book
// and ledger.
func New(cfg Config, now int64) (*Market, error) {
	if cfg.TakerFeeBps > maxTakerFeeBps || cfg.MakerRebateBps > cfg.TakerFeeBps {
		return nil, ErrInvalidParameters
	}
	if cfg.MinOrderSize == 0 || cfg.TickSize == 0 {
		return nil, ErrInvalidParameters
	}
	if len(cfg.Name) > maxNameLen || len(cfg.Symbol) > maxSymbolLen || len(cfg.AssetID) > maxAssetIDLen {
		return nil, ErrInvalidParameters
	}
	if cfg.Perpetual {
		if cfg.MaxLeverage == 0 || cfg.MaxLeverage > maxLeverageBound {
			return nil, ErrInvalidParameters
		}
	}
	return &Market{
		cfg:                  cfg,
		Status:               Active,
		nextOrderID:          1,
		nextClientID:         1,
		LastFundingTimestamp: now,
		Book:                 book.New(),
		positions:            make(map[uint64]*Position),
	}, nil
}

func (m *Market) Config() Config { return m.cfg }

func (m *Market) Name() string    { return m.cfg.Name }
func (m *Market) Symbol() string  { return m.cfg.Symbol }
func (m *Market) AssetID() string { return m.cfg.AssetID }
func (m *Market) Perpetual() bool { return m.cfg.Perpetual }

// ChangeStatus moves the market between Active, Paused and Closed.
func (m *Market) ChangeStatus(status Status, now int64) Event {
	m.Status = status
	return &MarketStatusChanged{
		Market:    m.cfg.Symbol,
		Status:    status.String(),
		Timestamp: now,
	}
}

// Position returns the open position for a user, or nil.
func (m *Market) Position(user uint64) *Position {
	return m.positions[user]
}

// PositionCount reports how many positions are open.
func (m *Market) PositionCount() int { return len(m.positions) }

// EachPosition visits positions in ascending user order so that
// funding application and snapshots are deterministic.
func (m *Market) EachPosition(visit func(user uint64, p *Position)) {
	users := make([]uint64, 0, len(m.positions))
	for u := range m.positions {
		users = append(users, u)
	}
	slices.Sort(users)
	for _, u := range users {
		visit(u, m.positions[u])
	}
}

func (m *Market) removePosition(user uint64) {
	delete(m.positions, user)
}

// getOrCreatePosition lazily creates the (market, user) position on
// first perpetual interaction.
func (m *Market) getOrCreatePosition(user uint64, side book.Side, now int64) *Position {
	if p, ok := m.positions[user]; ok {
		return p
	}
	p := NewPosition(side, 0, now)
	m.positions[user] = p
	return p
}

// RestorePosition installs a position during snapshot recovery.
func (m *Market) RestorePosition(user uint64, p *Position) {
	m.positions[user] = p
}

// NextIDs exposes the counters for snapshotting.
func (m *Market) NextIDs() (orderID, clientID uint64) {
	return m.nextOrderID, m.nextClientID
}

// RestoreIDs resets the counters during snapshot recovery. Counters
// only ever move forward.
func (m *Market) RestoreIDs(orderID, clientID uint64) {
	if orderID > m.nextOrderID {
		m.nextOrderID = orderID
	}
	if clientID > m.nextClientID {
		m.nextClientID = clientID
	}
}
