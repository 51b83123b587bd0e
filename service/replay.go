package service

import (
	"time"

	"kronos/domain/book"
	"kronos/domain/market"
	"kronos/infra/sequence"
	"kronos/infra/wal"
	"kronos/snapshot"
)

// Recover rebuilds market state: it loads the latest snapshot, replays
// every journal record after the snapshot sequence, and resets the
// command sequencer past the last record. Commands that were rejected
// at execution time are rejected identically during replay; their
// errors are expected and dropped.
func Recover(m *market.Market, walDir, snapDir string, cmdSeq *sequence.Sequencer) (uint64, error) {
	base, err := snapshot.Load(snapDir, m)
	if err != nil {
		return 0, err
	}

	last, err := wal.Replay(walDir, func(rec *wal.Record) error {
		if rec.Seq <= base {
			return nil
		}
		return applyRecord(m, rec)
	})
	if err != nil {
		return 0, err
	}
	if last < base {
		last = base
	}
	cmdSeq.Reset(last)
	return last, nil
}

// applyRecord re-executes one journaled command against m. The oracle
// price and risk parameters come from the record itself, never from a
// live collaborator, so replay is deterministic.
func applyRecord(m *market.Market, rec *wal.Record) error {
	c, err := wal.DecodeCommand(rec.Data)
	if err != nil {
		return err
	}
	now := rec.Time / int64(time.Second)
	risk := market.RiskParams{
		MaintenanceMarginBps: c.MaintenanceBps,
		LiquidationFeeBps:    c.LiquidationFeeBps,
	}

	switch rec.Type {
	case wal.RecordPlace:
		_, _ = m.PlaceOrder(market.PlaceRequest{
			User:        c.User,
			ClientID:    c.ClientID,
			Side:        book.Side(c.Side),
			Price:       c.Price,
			Size:        c.Size,
			Type:        book.OrderType(c.OrderType),
			SelfTrade:   book.SelfTradeBehavior(c.SelfTrade),
			ReduceOnly:  c.ReduceOnly,
			PostOnly:    c.PostOnly,
			Leverage:    c.Leverage,
			OraclePrice: c.OraclePrice,
		}, risk, now)
	case wal.RecordCancel:
		_, _ = m.CancelOrder(c.User, c.OrderID, book.Side(c.Side), c.Price, now)
	case wal.RecordCancelAll:
		_ = m.CancelAllOrders(c.User, now)
	case wal.RecordDeposit:
		_, _ = m.DepositCollateral(c.User, c.Amount, c.OraclePrice, risk, now)
	case wal.RecordWithdraw:
		_, _ = m.WithdrawCollateral(c.User, c.Amount, c.OraclePrice, risk, now)
	case wal.RecordFunding:
		_, _ = m.UpdateFundingRate(c.OraclePrice, now)
	case wal.RecordLiquidate:
		_, _ = m.LiquidatePosition(c.User, c.Liquidator, c.OraclePrice, risk, now)
	case wal.RecordStatus:
		_ = m.ChangeStatus(market.Status(c.Status), now)
	}
	return nil
}
