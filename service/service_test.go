package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"kronos/domain/book"
	"kronos/domain/market"
	"kronos/infra/outbox"
	"kronos/infra/sequence"
	"kronos/infra/wal"
	"kronos/snapshot"
)

type fakeOracle struct {
	price OraclePrice
	err   error
}

func (f *fakeOracle) Price(context.Context, string, int64) (OraclePrice, error) {
	return f.price, f.err
}

type fakeRegistry struct {
	risk market.RiskParams
}

func (f *fakeRegistry) RiskParams(context.Context, string) (market.RiskParams, error) {
	return f.risk, nil
}

type transfer struct {
	from, to, amount uint64
}

type fakeCustody struct {
	transfers []transfer
	fail      bool
}

func (f *fakeCustody) Transfer(_ context.Context, from, to, amount uint64) error {
	if f.fail {
		return errors.New("custody unavailable")
	}
	f.transfers = append(f.transfers, transfer{from, to, amount})
	return nil
}

type env struct {
	svc     *ExchangeService
	mkt     *market.Market
	outbox  *outbox.Outbox
	custody *fakeCustody
	walDir  string
	snapDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	walDir := filepath.Join(root, "journal")
	snapDir := filepath.Join(root, "snap")

	mkt, err := market.New(market.Config{
		Name: "Test", Symbol: "TEST-PERP", AssetID: "TEST",
		MinOrderSize: 1, TickSize: 1,
		TakerFeeBps: 10, MakerRebateBps: 2,
		Perpetual: true, MaxLeverage: 10, FundingInterval: 3600,
	}, 1000)
	require.NoError(t, err)

	journal, err := wal.Open(wal.Config{Dir: walDir})
	require.NoError(t, err)

	ob, err := outbox.Open(filepath.Join(root, "outbox"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	custody := &fakeCustody{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	svc := New(Deps{
		Market:   mkt,
		Oracle:   &fakeOracle{price: OraclePrice{Mantissa: 100_000_000, Exponent: -6}},
		Registry: &fakeRegistry{risk: market.RiskParams{MaintenanceMarginBps: 500, LiquidationFeeBps: 100, MaxLeverage: 10}},
		Custody:  custody,
		Journal:  journal,
		Outbox:   ob,
		CmdSeq:   sequence.New(0),
		EvtSeq:   sequence.New(0),
		Log:      log.WithField("test", t.Name()),
	})
	t.Cleanup(func() { _ = svc.Close() })

	return &env{svc: svc, mkt: mkt, outbox: ob, custody: custody, walDir: walDir, snapDir: snapDir}
}

// rawEnvelope mirrors Envelope with the event left undecoded.
type rawEnvelope struct {
	ID    string          `json:"id"`
	Seq   uint64          `json:"seq"`
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

func (e *env) pendingEnvelopes(t *testing.T) []rawEnvelope {
	t.Helper()
	var out []rawEnvelope
	err := e.outbox.ScanByState(outbox.StateNew, func(seq uint64, entry outbox.Entry) error {
		var env rawEnvelope
		if err := json.Unmarshal(entry.Payload, &env); err != nil {
			return err
		}
		out = append(out, env)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestPlaceOrderJournalsAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.PlaceOrder(ctx, market.PlaceRequest{
		User: 1, Side: book.Ask, Price: 100_000_000, Size: 5_000_000, Type: book.Limit,
	})
	require.NoError(t, err)

	res, err := e.svc.PlaceOrder(ctx, market.PlaceRequest{
		User: 2, Side: book.Bid, Price: 100_000_000, Size: 5_000_000, Type: book.Limit,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000), res.Filled)

	envs := e.pendingEnvelopes(t)
	require.NotEmpty(t, envs)

	kinds := map[string]int{}
	for _, env := range envs {
		require.NotEmpty(t, env.ID)
		kinds[env.Kind]++
	}
	require.Equal(t, 1, kinds["order_rested"])
	require.Equal(t, 1, kinds["order_matched"])
	require.Equal(t, 2, kinds["position_updated"])

	// envelope sequences are strictly increasing
	for i := 1; i < len(envs); i++ {
		require.Greater(t, envs[i].Seq, envs[i-1].Seq)
	}
}

func TestRejectedOrderPublishesNothing(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.PlaceOrder(context.Background(), market.PlaceRequest{
		User: 1, Side: book.Bid, Size: 5_000_000, Type: book.Market,
	})
	require.ErrorIs(t, err, market.ErrNoLiquidity)
	require.Empty(t, e.pendingEnvelopes(t))
}

func TestOracleBandAppliedFromFeed(t *testing.T) {
	e := newEnv(t)

	// the fake feed resolves to 100; a limit at 200 is outside the band
	_, err := e.svc.PlaceOrder(context.Background(), market.PlaceRequest{
		User: 1, Side: book.Bid, Price: 200_000_000, Size: 5_000_000, Type: book.Limit,
	})
	require.ErrorIs(t, err, market.ErrPriceOutOfRange)
}

func TestDepositRunsCustodyFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.DepositCollateral(ctx, 1, 50_000_000))
	require.Len(t, e.custody.transfers, 1)
	pos, ok := e.svc.Position(1)
	require.True(t, ok)
	require.Equal(t, uint64(50_000_000), pos.Margin)

	// custody failure keeps the ledger untouched
	e.custody.fail = true
	err := e.svc.DepositCollateral(ctx, 1, 50_000_000)
	require.Error(t, err)
	pos, _ = e.svc.Position(1)
	require.Equal(t, uint64(50_000_000), pos.Margin)
}

func TestWithdrawReturnsCollateral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.DepositCollateral(ctx, 1, 50_000_000))
	require.NoError(t, e.svc.WithdrawCollateral(ctx, 1, 20_000_000))

	pos, ok := e.svc.Position(1)
	require.True(t, ok)
	require.Equal(t, uint64(30_000_000), pos.Margin)
	require.Len(t, e.custody.transfers, 2)
}

func TestRecoverRebuildsState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.DepositCollateral(ctx, 1, 100_000_000))
	_, err := e.svc.PlaceOrder(ctx, market.PlaceRequest{
		User: 2, Side: book.Ask, Price: 100_000_000, Size: 5_000_000, Type: book.Limit,
	})
	require.NoError(t, err)
	_, err = e.svc.PlaceOrder(ctx, market.PlaceRequest{
		User: 1, Side: book.Bid, Price: 100_000_000, Size: 2_000_000, Type: book.Limit,
	})
	require.NoError(t, err)
	_, err = e.svc.CancelAllOrders(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, e.svc.Close())

	restored, err := market.New(market.Config{
		Name: "Test", Symbol: "TEST-PERP", AssetID: "TEST",
		MinOrderSize: 1, TickSize: 1,
		TakerFeeBps: 10, MakerRebateBps: 2,
		Perpetual: true, MaxLeverage: 10, FundingInterval: 3600,
	}, 1000)
	require.NoError(t, err)

	seq := sequence.New(0)
	last, err := Recover(restored, e.walDir, e.snapDir, seq)
	require.NoError(t, err)
	require.Equal(t, uint64(4), last)
	require.Equal(t, uint64(4), seq.Current())

	require.Equal(t, e.mkt.PositionCount(), restored.PositionCount())
	require.Equal(t, *e.mkt.Position(1), *restored.Position(1))
	require.Equal(t, *e.mkt.Position(2), *restored.Position(2))

	srcBest, srcOK := e.mkt.Book.BestPrice(book.Ask)
	dstBest, dstOK := restored.Book.BestPrice(book.Ask)
	require.Equal(t, srcOK, dstOK)
	require.Equal(t, srcBest, dstBest)
	require.Equal(t, e.mkt.Book.Best(book.Ask).TotalQty, restored.Book.Best(book.Ask).TotalQty)
}

func TestRecoverSkipsSnapshotCoveredRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.DepositCollateral(ctx, 1, 100_000_000))
	require.NoError(t, e.svc.WriteSnapshot(snapshot.NewWriter(e.snapDir)))
	require.NoError(t, e.svc.DepositCollateral(ctx, 1, 50_000_000))
	require.NoError(t, e.svc.Close())

	restored, err := market.New(market.Config{
		Name: "Test", Symbol: "TEST-PERP", AssetID: "TEST",
		MinOrderSize: 1, TickSize: 1,
		TakerFeeBps: 10, MakerRebateBps: 2,
		Perpetual: true, MaxLeverage: 10, FundingInterval: 3600,
	}, 1000)
	require.NoError(t, err)

	seq := sequence.New(0)
	last, err := Recover(restored, e.walDir, e.snapDir, seq)
	require.NoError(t, err)
	require.Equal(t, uint64(2), last)

	pos := restored.Position(1)
	require.NotNil(t, pos)
	require.Equal(t, uint64(150_000_000), pos.Margin)
}

func TestChangeStatusPausesTrading(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.ChangeStatus(ctx, market.Paused))
	_, err := e.svc.PlaceOrder(ctx, market.PlaceRequest{
		User: 1, Side: book.Bid, Price: 100_000_000, Size: 5_000_000, Type: book.Limit,
	})
	require.ErrorIs(t, err, market.ErrMarketInactive)
}
