package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
	Bidding  BiddingConfig  `mapstructure:"bidding"`
}

// ServerConfig carries one port per binary so the engine and stream services
// can share a host and a config file.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	StreamPort int    `mapstructure:"stream_port"`
	Host       string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

// BiddingConfig holds the engine's policy knobs: soft close, fast finish and
// the per-auction lock windows.
type BiddingConfig struct {
	SnipeEnabled      bool          `mapstructure:"snipe_enabled"`
	SnipeThreshold    time.Duration `mapstructure:"snipe_threshold"`
	SnipeExtension    time.Duration `mapstructure:"snipe_extension"`
	FastFinishEnabled bool          `mapstructure:"fast_finish_enabled"`
	FastFinishWindow  time.Duration `mapstructure:"fast_finish_window"`
	LockWaitTimeout   time.Duration `mapstructure:"lock_wait_timeout"`
	LockLeaseTimeout  time.Duration `mapstructure:"lock_lease_timeout"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.stream_port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "marketplace_user:marketplace_pass@tcp(localhost:3306)/marketplace_db?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "engine-service-1")
	viper.SetDefault("bidding.snipe_enabled", true)
	viper.SetDefault("bidding.snipe_threshold", 30*time.Second)
	viper.SetDefault("bidding.snipe_extension", 30*time.Second)
	viper.SetDefault("bidding.fast_finish_enabled", false)
	viper.SetDefault("bidding.fast_finish_window", 2*time.Minute)
	viper.SetDefault("bidding.lock_wait_timeout", 3*time.Second)
	viper.SetDefault("bidding.lock_lease_timeout", 10*time.Second)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/auction-marketplace/")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.stream_port", "SERVER_STREAM_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	viper.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	viper.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")
	viper.BindEnv("bidding.snipe_enabled", "BIDDING_SNIPE_ENABLED")
	viper.BindEnv("bidding.snipe_threshold", "BIDDING_SNIPE_THRESHOLD")
	viper.BindEnv("bidding.snipe_extension", "BIDDING_SNIPE_EXTENSION")
	viper.BindEnv("bidding.fast_finish_enabled", "BIDDING_FAST_FINISH_ENABLED")
	viper.BindEnv("bidding.fast_finish_window", "BIDDING_FAST_FINISH_WINDOW")
	viper.BindEnv("bidding.lock_wait_timeout", "BIDDING_LOCK_WAIT_TIMEOUT")
	viper.BindEnv("bidding.lock_lease_timeout", "BIDDING_LOCK_LEASE_TIMEOUT")

	// Config file is optional; defaults and env vars cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
