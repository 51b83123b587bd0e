// Package broadcaster drains the event outbox to Kafka. Delivery is
// at-least-once: an entry is marked SENT before the produce and ACKED
// only after the broker confirms, so a crash between the two replays
// the event on restart.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"kronos/infra/outbox"
)

// maxRetries bounds delivery attempts per entry. Entries that exhaust
// it park in FAILED and need operator intervention.
const maxRetries = 10

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *logrus.Entry
}

func New(ob *outbox.Outbox, brokers []string, topic string, log *logrus.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return newWithProducer(ob, producer, topic, log), nil
}

func newWithProducer(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, log *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      log.WithField("component", "broadcaster"),
	}
}

// Run drains the outbox until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanByState(outbox.StateNew, func(seq uint64, e outbox.Entry) error {
		if err := b.outbox.UpdateState(seq, outbox.StateSent, e.Retries); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(seq, 10)),
			Value: sarama.ByteEncoder(e.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			if e.Retries+1 >= maxRetries {
				b.log.WithError(err).WithField("seq", seq).Error("publish failed, retries exhausted")
				return b.outbox.UpdateState(seq, outbox.StateFailed, e.Retries+1)
			}
			b.log.WithError(err).WithField("seq", seq).Warn("publish failed, will retry")
			return b.outbox.UpdateState(seq, outbox.StateNew, e.Retries+1)
		}

		if err := b.outbox.UpdateState(seq, outbox.StateAcked, e.Retries); err != nil {
			return err
		}
		return b.outbox.Delete(seq)
	})
	if err != nil {
		b.log.WithError(err).Error("outbox scan failed")
	}

	// re-queue entries stuck in SENT from a previous crash
	_ = b.outbox.ScanByState(outbox.StateSent, func(seq uint64, e outbox.Entry) error {
		if time.Since(time.Unix(0, e.LastAttempt)) > time.Minute {
			return b.outbox.UpdateState(seq, outbox.StateNew, e.Retries+1)
		}
		return nil
	})
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
