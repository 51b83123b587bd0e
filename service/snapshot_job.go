package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"kronos/snapshot"
)

// StartSnapshotJob periodically captures the market state so recovery
// replays only the journal tail. It runs until ctx is cancelled.
func StartSnapshotJob(ctx context.Context, s *ExchangeService, dir string, interval time.Duration, log *logrus.Entry) {
	writer := snapshot.NewWriter(dir)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := s.WriteSnapshot(writer); err != nil {
					log.WithError(err).Error("snapshot failed")
					continue
				}
				log.WithField("took", time.Since(start)).Info("snapshot written")
			}
		}
	}()
}
