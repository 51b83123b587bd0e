package wal

import "time"

// RecordType identifies which exchange command a journal record holds.
type RecordType uint8

const (
	RecordPlace RecordType = iota
	RecordCancel
	RecordCancelAll
	RecordDeposit
	RecordWithdraw
	RecordFunding
	RecordLiquidate
	RecordStatus
)

// Record is one journaled command. Data is the protowire-encoded
// Command; external inputs such as the oracle price a command was
// resolved against are captured inside it so replay is deterministic.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
