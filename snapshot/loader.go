package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"kronos/domain/book"
	"kronos/domain/market"
)

// Load reads the snapshot in dir and installs it into m. It returns the
// journal sequence the snapshot was taken at; replay starts after that
// sequence. A missing snapshot is not an error: recovery starts from an
// empty market at sequence zero.
func Load(dir string, m *market.Market) (uint64, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return 0, err
	}

	m.Status = market.Status(snap.Status)
	m.RestoreIDs(snap.NextOrderID, snap.NextClientID)
	m.LastFundingTimestamp = snap.LastFundingTimestamp
	m.LastOraclePrice = snap.LastOraclePrice
	m.MarkPrice = snap.MarkPrice
	m.OpenInterestLong = snap.OpenInterestLong
	m.OpenInterestShort = snap.OpenInterestShort
	m.CumulativeFundingLong = snap.CumulativeFundingLong
	m.CumulativeFundingShort = snap.CumulativeFundingShort

	for _, e := range snap.Orders {
		m.Book.Insert(&book.Order{
			ID:         e.ID,
			ClientID:   e.ClientID,
			User:       e.User,
			Side:       e.Side,
			Price:      e.Price,
			Size:       e.Size,
			Remaining:  e.Remaining,
			ReduceOnly: e.ReduceOnly,
			PostOnly:   e.PostOnly,
			CreatedAt:  e.CreatedAt,
		})
	}

	for _, e := range snap.Positions {
		m.RestorePosition(e.User, &market.Position{
			Side:             e.Side,
			Size:             e.Size,
			Margin:           e.Margin,
			EntryPrice:       e.EntryPrice,
			Leverage:         e.Leverage,
			LastFundingIndex: e.LastFundingIndex,
			RealizedPnL:      e.RealizedPnL,
			LiquidationPrice: e.LiquidationPrice,
			UpdatedAt:        e.UpdatedAt,
		})
	}

	return snap.Seq, nil
}
