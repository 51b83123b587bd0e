package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"kronos/domain/book"
	"kronos/domain/market"
)

// Writer serializes market state into a single snapshot file. Writes go
// through a temp file and rename so a crash mid-write never corrupts
// the previous snapshot.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write captures m at journal sequence seq.
func (w *Writer) Write(seq uint64, m *market.Market) error {
	orderID, clientID := m.NextIDs()
	snap := &Snapshot{
		Seq:     seq,
		Created: time.Now().UnixNano(),

		NextOrderID:  orderID,
		NextClientID: clientID,
		Status:       uint8(m.Status),

		LastFundingTimestamp:   m.LastFundingTimestamp,
		LastOraclePrice:        m.LastOraclePrice,
		MarkPrice:              m.MarkPrice,
		OpenInterestLong:       m.OpenInterestLong,
		OpenInterestShort:      m.OpenInterestShort,
		CumulativeFundingLong:  m.CumulativeFundingLong,
		CumulativeFundingShort: m.CumulativeFundingShort,
	}

	m.Book.ForEach(func(o *book.Order) {
		snap.Orders = append(snap.Orders, OrderEntry{
			ID:         o.ID,
			ClientID:   o.ClientID,
			User:       o.User,
			Side:       o.Side,
			Price:      o.Price,
			Size:       o.Size,
			Remaining:  o.Remaining,
			ReduceOnly: o.ReduceOnly,
			PostOnly:   o.PostOnly,
			CreatedAt:  o.CreatedAt,
		})
	})

	m.EachPosition(func(user uint64, p *market.Position) {
		snap.Positions = append(snap.Positions, PositionEntry{
			User:             user,
			Side:             p.Side,
			Size:             p.Size,
			Margin:           p.Margin,
			EntryPrice:       p.EntryPrice,
			Leverage:         p.Leverage,
			LastFundingIndex: p.LastFundingIndex,
			RealizedPnL:      p.RealizedPnL,
			LiquidationPrice: p.LiquidationPrice,
			UpdatedAt:        p.UpdatedAt,
		})
	})

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(w.dir, FileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(w.dir, FileName))
}
