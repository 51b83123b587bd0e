// Package service composes the market state machine with its durable
// infrastructure: every accepted command is sequenced, journaled, then
// executed, and the events it produces are staged in the outbox for
// at-least-once delivery. The service is the single writer; all
// mutation funnels through its mutex.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kronos/domain/book"
	"kronos/domain/market"
	"kronos/infra/kafka"
	"kronos/infra/outbox"
	"kronos/infra/sequence"
	"kronos/infra/wal"
	"kronos/snapshot"
)

// Envelope wraps one emitted event with its delivery identity.
type Envelope struct {
	ID    string       `json:"id"`
	Seq   uint64       `json:"seq"`
	Kind  string       `json:"kind"`
	Event market.Event `json:"event"`
}

// Deps are the collaborators and infrastructure the service is wired
// with. Feed is optional; a nil feed disables the trade tick stream.
type Deps struct {
	Market   *market.Market
	Oracle   Oracle
	Registry Registry
	Custody  Custody

	Journal *wal.WAL
	Outbox  *outbox.Outbox
	Feed    *kafka.Producer

	CmdSeq *sequence.Sequencer
	EvtSeq *sequence.Sequencer

	// VaultAccount holds deposited collateral in custody.
	VaultAccount uint64

	Log *logrus.Entry
}

type ExchangeService struct {
	mu sync.Mutex

	market   *market.Market
	oracle   Oracle
	registry Registry
	custody  Custody

	journal *wal.WAL
	outbox  *outbox.Outbox
	feed    *kafka.Producer

	cmdSeq *sequence.Sequencer
	evtSeq *sequence.Sequencer
	vault  uint64

	log *logrus.Entry
}

func New(d Deps) *ExchangeService {
	return &ExchangeService{
		market:   d.Market,
		oracle:   d.Oracle,
		registry: d.Registry,
		custody:  d.Custody,
		journal:  d.Journal,
		outbox:   d.Outbox,
		feed:     d.Feed,
		cmdSeq:   d.CmdSeq,
		evtSeq:   d.EvtSeq,
		vault:    d.VaultAccount,
		log:      d.Log,
	}
}

// resolveOracle fetches and scales the configured feed. On a
// non-perpetual market, or when the feed is unavailable, it returns
// zero; operations that require a price reject zero themselves.
func (s *ExchangeService) resolveOracle(ctx context.Context) uint64 {
	cfg := s.market.Config()
	if !cfg.Perpetual || s.oracle == nil {
		return 0
	}
	p, err := s.oracle.Price(ctx, cfg.OracleFeedID, cfg.MaxOracleAge)
	if err != nil {
		s.log.WithError(err).WithField("feed", cfg.OracleFeedID).Warn("oracle unavailable")
		return 0
	}
	return p.Scaled()
}

func (s *ExchangeService) resolveRisk(ctx context.Context) (market.RiskParams, error) {
	if s.registry == nil {
		return market.RiskParams{}, nil
	}
	return s.registry.RiskParams(ctx, s.market.AssetID())
}

// journalCommand sequences, frames and fsyncs one command before it is
// executed. The resolved oracle price and risk parameters travel inside
// the command so replay never consults a live collaborator. The
// returned timestamp is the record's own, in seconds; executing against
// it keeps live state and replayed state identical.
func (s *ExchangeService) journalCommand(t wal.RecordType, c *wal.Command) (uint64, int64, error) {
	seq := s.cmdSeq.Next()
	rec := wal.NewRecord(t, seq, c.Encode())
	if err := s.journal.Append(rec); err != nil {
		return 0, 0, err
	}
	if err := s.journal.Sync(); err != nil {
		return 0, 0, err
	}
	return seq, rec.Time / int64(time.Second), nil
}

// publish stages every event in the outbox and, for trade matches,
// pushes a best-effort tick onto the feed.
func (s *ExchangeService) publish(ctx context.Context, events []market.Event) error {
	for _, ev := range events {
		env := Envelope{
			ID:    uuid.NewString(),
			Seq:   s.evtSeq.Next(),
			Kind:  ev.Kind(),
			Event: ev,
		}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := s.outbox.PutNew(env.Seq, data); err != nil {
			return err
		}
		if s.feed != nil && env.Kind == "order_matched" {
			if err := s.feed.Send(ctx, []byte(s.market.Symbol()), data); err != nil {
				s.log.WithError(err).Warn("tick feed send failed")
			}
		}
	}
	return nil
}

// PlaceOrder journals and executes one inbound order. The caller's
// OraclePrice field is ignored; the service resolves the feed itself.
func (s *ExchangeService) PlaceOrder(ctx context.Context, req market.PlaceRequest) (*market.PlaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	risk, err := s.resolveRisk(ctx)
	if err != nil {
		return nil, err
	}
	req.OraclePrice = s.resolveOracle(ctx)

	seq, now, err := s.journalCommand(wal.RecordPlace, &wal.Command{
		User:              req.User,
		ClientID:          req.ClientID,
		Side:              uint8(req.Side),
		Price:             req.Price,
		Size:              req.Size,
		OrderType:         uint8(req.Type),
		SelfTrade:         uint8(req.SelfTrade),
		ReduceOnly:        req.ReduceOnly,
		PostOnly:          req.PostOnly,
		Leverage:          req.Leverage,
		OraclePrice:       req.OraclePrice,
		MaintenanceBps:    risk.MaintenanceMarginBps,
		LiquidationFeeBps: risk.LiquidationFeeBps,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.market.PlaceOrder(req, risk, now)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"seq": seq, "user": req.User,
		}).Debug("order rejected")
		return nil, err
	}

	if err := s.publish(ctx, res.Events); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"seq":      seq,
		"order_id": res.OrderID,
		"user":     req.User,
		"filled":   res.Filled,
		"rested":   res.Rested,
	}).Info("order placed")
	return res, nil
}

// CancelOrder removes one resting order.
func (s *ExchangeService) CancelOrder(ctx context.Context, user, orderID uint64, side book.Side, price uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, now, err := s.journalCommand(wal.RecordCancel, &wal.Command{
		User:    user,
		OrderID: orderID,
		Side:    uint8(side),
		Price:   price,
	})
	if err != nil {
		return err
	}

	events, err := s.market.CancelOrder(user, orderID, side, price, now)
	if err != nil {
		return err
	}
	return s.publish(ctx, events)
}

// CancelAllOrders removes every resting order of a user and returns how
// many were cancelled.
func (s *ExchangeService) CancelAllOrders(ctx context.Context, user uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, now, err := s.journalCommand(wal.RecordCancelAll, &wal.Command{User: user})
	if err != nil {
		return 0, err
	}

	events := s.market.CancelAllOrders(user, now)
	if err := s.publish(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

// DepositCollateral transfers collateral into the vault, then credits
// it to the user's position. Custody runs first so a failed transfer
// never reaches the ledger.
func (s *ExchangeService) DepositCollateral(ctx context.Context, user, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.market.Perpetual() {
		return market.ErrNotPerpetualMarket
	}
	if amount == 0 {
		return market.ErrInvalidParameters
	}
	if s.custody != nil {
		if err := s.custody.Transfer(ctx, user, s.vault, amount); err != nil {
			return err
		}
	}

	risk, err := s.resolveRisk(ctx)
	if err != nil {
		return err
	}
	oracle := s.resolveOracle(ctx)

	_, now, err := s.journalCommand(wal.RecordDeposit, &wal.Command{
		User:              user,
		Amount:            amount,
		OraclePrice:       oracle,
		MaintenanceBps:    risk.MaintenanceMarginBps,
		LiquidationFeeBps: risk.LiquidationFeeBps,
	})
	if err != nil {
		return err
	}

	events, err := s.market.DepositCollateral(user, amount, oracle, risk, now)
	if err != nil {
		return err
	}
	return s.publish(ctx, events)
}

// WithdrawCollateral debits the user's margin and returns it from the
// vault. A custody failure after the ledger debit is surfaced to the
// caller and logged for reconciliation.
func (s *ExchangeService) WithdrawCollateral(ctx context.Context, user, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	risk, err := s.resolveRisk(ctx)
	if err != nil {
		return err
	}
	oracle := s.resolveOracle(ctx)

	_, now, err := s.journalCommand(wal.RecordWithdraw, &wal.Command{
		User:              user,
		Amount:            amount,
		OraclePrice:       oracle,
		MaintenanceBps:    risk.MaintenanceMarginBps,
		LiquidationFeeBps: risk.LiquidationFeeBps,
	})
	if err != nil {
		return err
	}

	events, err := s.market.WithdrawCollateral(user, amount, oracle, risk, now)
	if err != nil {
		return err
	}
	if s.custody != nil {
		if err := s.custody.Transfer(ctx, s.vault, user, amount); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"user": user, "amount": amount,
			}).Error("withdrawal transfer failed after ledger debit")
			return err
		}
	}
	return s.publish(ctx, events)
}

// UpdateFundingRate runs one funding cycle against the current oracle
// price.
func (s *ExchangeService) UpdateFundingRate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oracle := s.resolveOracle(ctx)

	_, now, err := s.journalCommand(wal.RecordFunding, &wal.Command{OraclePrice: oracle})
	if err != nil {
		return err
	}

	events, err := s.market.UpdateFundingRate(oracle, now)
	if err != nil {
		return err
	}
	return s.publish(ctx, events)
}

// LiquidatePosition force-closes an under-margined position, routes the
// liquidation fee to the liquidator and returns the remaining margin to
// the owner.
func (s *ExchangeService) LiquidatePosition(ctx context.Context, user, liquidator uint64) (*market.LiquidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	risk, err := s.resolveRisk(ctx)
	if err != nil {
		return nil, err
	}
	oracle := s.resolveOracle(ctx)

	_, now, err := s.journalCommand(wal.RecordLiquidate, &wal.Command{
		User:              user,
		Liquidator:        liquidator,
		OraclePrice:       oracle,
		MaintenanceBps:    risk.MaintenanceMarginBps,
		LiquidationFeeBps: risk.LiquidationFeeBps,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.market.LiquidatePosition(user, liquidator, oracle, risk, now)
	if err != nil {
		return nil, err
	}

	if s.custody != nil {
		if res.Fee > 0 {
			if err := s.custody.Transfer(ctx, s.vault, liquidator, res.Fee); err != nil {
				s.log.WithError(err).Error("liquidation fee transfer failed")
			}
		}
		if res.Remaining > 0 {
			if err := s.custody.Transfer(ctx, s.vault, user, res.Remaining); err != nil {
				s.log.WithError(err).Error("liquidation remainder transfer failed")
			}
		}
	}

	if err := s.publish(ctx, res.Events); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user":       user,
		"liquidator": liquidator,
		"fee":        res.Fee,
		"remaining":  res.Remaining,
	}).Info("position liquidated")
	return res, nil
}

// ChangeStatus moves the market between active, paused and closed.
func (s *ExchangeService) ChangeStatus(ctx context.Context, status market.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, now, err := s.journalCommand(wal.RecordStatus, &wal.Command{Status: uint8(status)})
	if err != nil {
		return err
	}

	ev := s.market.ChangeStatus(status, now)
	return s.publish(ctx, []market.Event{ev})
}

// Position returns a copy of the user's open position, if any.
func (s *ExchangeService) Position(user uint64) (market.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.market.Position(user)
	if p == nil {
		return market.Position{}, false
	}
	return *p, true
}

// Depth reports best bid and ask.
func (s *ExchangeService) Depth() (bid, ask uint64, haveBid, haveAsk bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, haveBid = s.market.Book.BestPrice(book.Bid)
	ask, haveAsk = s.market.Book.BestPrice(book.Ask)
	return bid, ask, haveBid, haveAsk
}

// WriteSnapshot captures the market at the current command sequence and
// truncates journal segments the snapshot now covers.
func (s *ExchangeService) WriteSnapshot(w *snapshot.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.cmdSeq.Current()
	if err := w.Write(seq, s.market); err != nil {
		return err
	}
	return s.journal.TruncateBefore(seq)
}

// Close flushes and closes the journal.
func (s *ExchangeService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journal.Close()
}
