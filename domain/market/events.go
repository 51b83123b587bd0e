package market

// Event is a structured record of one observable state transition.
// Events are the audit log: every mutating operation that succeeds
// emits at least one, and a failed operation emits none.
type Event interface {
	Kind() string
}

// OrderMatched is emitted once per fill between a taker and a maker.
type OrderMatched struct {
	Market        string `json:"market"`
	OrderID       uint64 `json:"order_id"`
	MakerOrderID  uint64 `json:"maker_order_id"`
	ClientID      uint64 `json:"client_id"`
	MakerClientID uint64 `json:"maker_client_id"`
	User          uint64 `json:"user"`
	Maker         uint64 `json:"maker"`
	Side          string `json:"side"`
	Price         uint64 `json:"price"`
	Size          uint64 `json:"size"`
	QuoteAmount   uint64 `json:"quote_amount"`
	TakerFee      uint64 `json:"taker_fee"`
	MakerRebate   uint64 `json:"maker_rebate"`
	RemainingSize uint64 `json:"remaining_size"`
	Timestamp     int64  `json:"timestamp"`
}

func (*OrderMatched) Kind() string { return "order_matched" }

// OrderRested is emitted when an order (or its unfilled remainder)
// is added to the book.
type OrderRested struct {
	Market     string `json:"market"`
	OrderID    uint64 `json:"order_id"`
	ClientID   uint64 `json:"client_id"`
	User       uint64 `json:"user"`
	Side       string `json:"side"`
	Price      uint64 `json:"price"`
	Size       uint64 `json:"size"`
	ReduceOnly bool   `json:"reduce_only"`
	PostOnly   bool   `json:"post_only"`
	Timestamp  int64  `json:"timestamp"`
}

func (*OrderRested) Kind() string { return "order_rested" }

// OrderCancelled covers explicit cancels and self-trade maker removal.
type OrderCancelled struct {
	Market        string `json:"market"`
	OrderID       uint64 `json:"order_id"`
	ClientID      uint64 `json:"client_id"`
	User          uint64 `json:"user"`
	Side          string `json:"side"`
	Price         uint64 `json:"price"`
	RemainingSize uint64 `json:"remaining_size"`
	ReduceOnly    bool   `json:"reduce_only"`
	Timestamp     int64  `json:"timestamp"`
}

func (*OrderCancelled) Kind() string { return "order_cancelled" }

// PositionUpdated is emitted after every perpetual fill touches a
// position, for both taker and maker.
type PositionUpdated struct {
	Market           string `json:"market"`
	User             uint64 `json:"user"`
	Side             string `json:"side"`
	Size             uint64 `json:"size"`
	Margin           uint64 `json:"margin"`
	EntryPrice       uint64 `json:"entry_price"`
	Leverage         uint16 `json:"leverage"`
	RealizedPnL      int64  `json:"realized_pnl"`
	LiquidationPrice uint64 `json:"liquidation_price"`
	Timestamp        int64  `json:"timestamp"`
}

func (*PositionUpdated) Kind() string { return "position_updated" }

// FundingRateUpdated is emitted once per funding interval.
type FundingRateUpdated struct {
	Market       string `json:"market"`
	OraclePrice  uint64 `json:"oracle_price"`
	MarkPrice    uint64 `json:"mark_price"`
	PremiumIndex int64  `json:"premium_index"`
	FundingRate  int64  `json:"funding_rate"`
	Timestamp    int64  `json:"timestamp"`
}

func (*FundingRateUpdated) Kind() string { return "funding_rate_updated" }

// PositionLiquidated records a forced close of an under-margined
// position.
type PositionLiquidated struct {
	Market            string `json:"market"`
	User              uint64 `json:"user"`
	Liquidator        uint64 `json:"liquidator"`
	Side              string `json:"side"`
	Size              uint64 `json:"size"`
	PositionValue     uint64 `json:"position_value"`
	MaintenanceMargin uint64 `json:"maintenance_margin"`
	LiquidationFee    uint64 `json:"liquidation_fee"`
	Remaining         uint64 `json:"remaining"`
	OraclePrice       uint64 `json:"oracle_price"`
	Timestamp         int64  `json:"timestamp"`
}

func (*PositionLiquidated) Kind() string { return "position_liquidated" }

type CollateralDeposited struct {
	Market      string `json:"market"`
	User        uint64 `json:"user"`
	Amount      uint64 `json:"amount"`
	TotalMargin uint64 `json:"total_margin"`
	Timestamp   int64  `json:"timestamp"`
}

func (*CollateralDeposited) Kind() string { return "collateral_deposited" }

type CollateralWithdrawn struct {
	Market          string `json:"market"`
	User            uint64 `json:"user"`
	Amount          uint64 `json:"amount"`
	RemainingMargin uint64 `json:"remaining_margin"`
	Timestamp       int64  `json:"timestamp"`
}

func (*CollateralWithdrawn) Kind() string { return "collateral_withdrawn" }

type MarketStatusChanged struct {
	Market    string `json:"market"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

func (*MarketStatusChanged) Kind() string { return "market_status_changed" }
