package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Pipeline string `mapstructure:"pipeline"`
}

// SourcesConfig names the five input tables the pipeline reads each run.
type SourcesConfig struct {
	Signals     string `mapstructure:"signals"`
	Technical   string `mapstructure:"technical"`
	Fundamental string `mapstructure:"fundamental"`
	Sentiment   string `mapstructure:"sentiment"`
	TickerNames string `mapstructure:"ticker_names"`
}

type PipelineConfig struct {
	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
	RunsKept int           `mapstructure:"runs_kept"`
}

type RetentionConfig struct {
	Days int `mapstructure:"days"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	// Registered empty so env-only deployments can set SA_DB_DSN.
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	// Daily at 18:00 service-local time; six-field spec (seconds first).
	v.SetDefault("cron.pipeline", "0 0 18 * * *")
	v.SetDefault("sources.signals", "Signals")
	v.SetDefault("sources.technical", "TechnicalData")
	v.SetDefault("sources.fundamental", "FundamentalData")
	v.SetDefault("sources.sentiment", "MarketSentiment")
	v.SetDefault("sources.ticker_names", "TickerNames")
	v.SetDefault("pipeline.lease_ttl", "30m")
	v.SetDefault("pipeline.runs_kept", 200)
	v.SetDefault("retention.days", 30)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
