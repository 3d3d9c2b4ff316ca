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
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// SeedBatches is a batch CSV loaded into the in-memory store when no DSN is configured
	SeedBatches string `mapstructure:"seed_batches"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// DBConfig configures PostgreSQL. An empty DSN selects in-memory storage.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ProposalTTL time.Duration `mapstructure:"proposal_ttl"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	PoolReport string `mapstructure:"pool_report"`
}

type OptimizerConfig struct {
	RandomMaxAttempts int     `mapstructure:"random_max_attempts"`
	MeanTolerance     float64 `mapstructure:"mean_tolerance"`
	BagWeight         float64 `mapstructure:"bag_weight"`
}

// Load reads path (YAML) with BLEND_* environment overrides. With envOnly the
// file is skipped and only defaults and the environment apply.
func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.seed_batches", "")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.proposal_ttl", "2m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.pool_report", "0 0 6 * * *")
	v.SetDefault("optimizer.random_max_attempts", 1000)
	v.SetDefault("optimizer.mean_tolerance", 2.0)
	v.SetDefault("optimizer.bag_weight", 250.0)

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
