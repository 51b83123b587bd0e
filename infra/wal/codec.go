package wal

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Command is the replayable payload of a journal record. It is a
// superset of every command's fields; unused fields stay zero and cost
// nothing on the wire.
type Command struct {
	User        uint64
	ClientID    uint64
	OrderID     uint64
	Side        uint8
	Price       uint64
	Size        uint64
	OrderType   uint8
	SelfTrade   uint8
	ReduceOnly  bool
	PostOnly    bool
	Leverage    uint16
	OraclePrice uint64
	Amount      uint64
	Liquidator  uint64
	Status      uint8

	// Risk parameters resolved from the registry at execution time;
	// journaled so replay does not depend on the live registry.
	MaintenanceBps    uint16
	LiquidationFeeBps uint16
}

// Field numbers are part of the journal format and must not be
// renumbered.
const (
	fieldUser        = 1
	fieldClientID    = 2
	fieldOrderID     = 3
	fieldSide        = 4
	fieldPrice       = 5
	fieldSize        = 6
	fieldOrderType   = 7
	fieldSelfTrade   = 8
	fieldReduceOnly  = 9
	fieldPostOnly    = 10
	fieldLeverage    = 11
	fieldOraclePrice = 12
	fieldAmount      = 13
	fieldLiquidator  = 14
	fieldStatus      = 15
	fieldMaintBps    = 16
	fieldLiqFeeBps   = 17
)

// Encode serializes c as protobuf wire format. Zero-valued fields are
// omitted, matching proto3 semantics.
func (c *Command) Encode() []byte {
	var b []byte
	put := func(num protowire.Number, v uint64) {
		if v == 0 {
			return
		}
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}
	putBool := func(num protowire.Number, v bool) {
		if v {
			put(num, 1)
		}
	}
	put(fieldUser, c.User)
	put(fieldClientID, c.ClientID)
	put(fieldOrderID, c.OrderID)
	put(fieldSide, uint64(c.Side))
	put(fieldPrice, c.Price)
	put(fieldSize, c.Size)
	put(fieldOrderType, uint64(c.OrderType))
	put(fieldSelfTrade, uint64(c.SelfTrade))
	putBool(fieldReduceOnly, c.ReduceOnly)
	putBool(fieldPostOnly, c.PostOnly)
	put(fieldLeverage, uint64(c.Leverage))
	put(fieldOraclePrice, c.OraclePrice)
	put(fieldAmount, c.Amount)
	put(fieldLiquidator, c.Liquidator)
	put(fieldStatus, uint64(c.Status))
	put(fieldMaintBps, uint64(c.MaintenanceBps))
	put(fieldLiqFeeBps, uint64(c.LiquidationFeeBps))
	return b
}

// DecodeCommand parses a protowire-encoded Command. Unknown fields are
// skipped so older binaries can replay newer journals.
func DecodeCommand(b []byte) (*Command, error) {
	c := &Command{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wal: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wal: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("wal: bad varint for field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldUser:
			c.User = v
		case fieldClientID:
			c.ClientID = v
		case fieldOrderID:
			c.OrderID = v
		case fieldSide:
			c.Side = uint8(v)
		case fieldPrice:
			c.Price = v
		case fieldSize:
			c.Size = v
		case fieldOrderType:
			c.OrderType = uint8(v)
		case fieldSelfTrade:
			c.SelfTrade = uint8(v)
		case fieldReduceOnly:
			c.ReduceOnly = v != 0
		case fieldPostOnly:
			c.PostOnly = v != 0
		case fieldLeverage:
			c.Leverage = uint16(v)
		case fieldOraclePrice:
			c.OraclePrice = v
		case fieldAmount:
			c.Amount = v
		case fieldLiquidator:
			c.Liquidator = v
		case fieldStatus:
			c.Status = uint8(v)
		case fieldMaintBps:
			c.MaintenanceBps = uint16(v)
		case fieldLiqFeeBps:
			c.LiquidationFeeBps = uint16(v)
		}
	}
	return c, nil
}
