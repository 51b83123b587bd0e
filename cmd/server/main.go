package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"kronos/config"
	"kronos/domain/market"
	"kronos/infra/kafka"
	"kronos/infra/outbox"
	"kronos/infra/sequence"
	"kronos/infra/wal"
	"kronos/jobs/broadcaster"
	"kronos/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}

	log := newLogger(cfg.Logging)

	// ---------------- Market ----------------

	mkt, err := market.New(market.Config{
		Name:            cfg.Market.Name,
		Symbol:          cfg.Market.Symbol,
		AssetID:         cfg.Market.AssetID,
		MinOrderSize:    cfg.Market.MinOrderSize,
		TickSize:        cfg.Market.TickSize,
		TakerFeeBps:     cfg.Market.TakerFeeBps,
		MakerRebateBps:  cfg.Market.MakerRebateBps,
		Perpetual:       cfg.Market.Perpetual,
		MaxLeverage:     cfg.Market.MaxLeverage,
		FundingInterval: cfg.Market.FundingInterval,
		OracleFeedID:    cfg.Market.OracleFeedID,
		MaxOracleAge:    cfg.Market.MaxOracleAge,
	}, time.Now().Unix())
	if err != nil {
		log.WithError(err).Fatal("market init failed")
	}

	// ---------------- Journal ----------------

	journal, err := wal.Open(wal.Config{
		Dir:         cfg.Journal.Dir,
		SegmentSize: cfg.Journal.SegmentSize,
	})
	if err != nil {
		log.WithError(err).Fatal("journal init failed")
	}

	// ---------------- Recovery ----------------

	cmdSeq := sequence.New(0)
	last, err := service.Recover(mkt, cfg.Journal.Dir, cfg.Snapshot.Dir, cmdSeq)
	if err != nil {
		log.WithError(err).Fatal("recovery failed")
	}
	log.WithField("seq", last).Info("state recovered")

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(cfg.Journal.OutboxDir)
	if err != nil {
		log.WithError(err).Fatal("outbox init failed")
	}
	defer ob.Close()

	maxEvt, err := ob.MaxSeq()
	if err != nil {
		log.WithError(err).Fatal("outbox scan failed")
	}
	evtSeq := sequence.New(maxEvt)

	// ---------------- Feed ----------------

	var feed *kafka.Producer
	if cfg.Kafka.Enabled {
		feed = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TickTopic)
		defer feed.Close()
	}

	// ---------------- Service ----------------

	svc := service.New(service.Deps{
		Market:       mkt,
		Journal:      journal,
		Outbox:       ob,
		Feed:         feed,
		CmdSeq:       cmdSeq,
		EvtSeq:       evtSeq,
		VaultAccount: cfg.Market.VaultAccount,
		Log:          log.WithField("component", "exchange"),
	})
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---------------- Jobs ----------------

	if cfg.Kafka.Enabled {
		bc, err := broadcaster.New(ob, cfg.Kafka.Brokers, cfg.Kafka.EventTopic, log)
		if err != nil {
			log.WithError(err).Fatal("broadcaster init failed")
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	service.StartSnapshotJob(ctx, svc, cfg.Snapshot.Dir,
		time.Duration(cfg.Snapshot.IntervalSeconds)*time.Second,
		log.WithField("component", "snapshot"))

	log.WithField("market", cfg.Market.Symbol).Info("exchange running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
