// Package config loads exchange configuration from file and
// environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Market    MarketConfig    `mapstructure:"market"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type MarketConfig struct {
	Name            string `mapstructure:"name"`
	Symbol          string `mapstructure:"symbol"`
	AssetID         string `mapstructure:"asset_id"`
	MinOrderSize    uint64 `mapstructure:"min_order_size"`
	TickSize        uint64 `mapstructure:"tick_size"`
	TakerFeeBps     uint16 `mapstructure:"taker_fee_bps"`
	MakerRebateBps  uint16 `mapstructure:"maker_rebate_bps"`
	Perpetual       bool   `mapstructure:"perpetual"`
	MaxLeverage     uint16 `mapstructure:"max_leverage"`
	FundingInterval int64  `mapstructure:"funding_interval"`
	OracleFeedID    string `mapstructure:"oracle_feed_id"`
	MaxOracleAge    int64  `mapstructure:"max_oracle_age"`
	VaultAccount    uint64 `mapstructure:"vault_account"`
}

type JournalConfig struct {
	Dir         string `mapstructure:"dir"`
	SegmentSize int64  `mapstructure:"segment_size"`
	OutboxDir   string `mapstructure:"outbox_dir"`
}

type SnapshotConfig struct {
	Dir             string `mapstructure:"dir"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	EventTopic string   `mapstructure:"event_topic"`
	TickTopic  string   `mapstructure:"tick_topic"`
	Enabled    bool     `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/kronos")
	}

	v.SetEnvPrefix("KRONOS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file; defaults and environment apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market.name", "Kronos Perpetual")
	v.SetDefault("market.symbol", "BTC-PERP")
	v.SetDefault("market.asset_id", "BTC")
	v.SetDefault("market.min_order_size", 1000)
	v.SetDefault("market.tick_size", 1000)
	v.SetDefault("market.taker_fee_bps", 10)
	v.SetDefault("market.maker_rebate_bps", 2)
	v.SetDefault("market.perpetual", true)
	v.SetDefault("market.max_leverage", 20)
	v.SetDefault("market.funding_interval", 3600)
	v.SetDefault("market.max_oracle_age", 60)
	v.SetDefault("market.vault_account", 0)

	v.SetDefault("journal.dir", "./data/journal")
	v.SetDefault("journal.segment_size", 64<<20)
	v.SetDefault("journal.outbox_dir", "./data/outbox")

	v.SetDefault("snapshot.dir", "./data/snapshot")
	v.SetDefault("snapshot.interval_seconds", 300)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.event_topic", "kronos.events")
	v.SetDefault("kafka.tick_topic", "kronos.ticks")
	v.SetDefault("kafka.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
