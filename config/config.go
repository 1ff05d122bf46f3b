package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Security SecurityConfig `mapstructure:"security"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"` // 0 waits forever
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// StorageConfig selects the ledger store backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // also bounds the startup ping
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer        string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig holds the monetary policy of the balance engine.
type LedgerConfig struct {
	Currency          string          `mapstructure:"currency"`
	SystemIdentity    string          `mapstructure:"system_identity"`
	BonusAmount       decimal.Decimal `mapstructure:"bonus_amount"`
	RevealFee         decimal.Decimal `mapstructure:"reveal_fee"`
	FreeRevealsPerDay int             `mapstructure:"free_reveals_per_day"`
	RevealTimezone    string          `mapstructure:"reveal_timezone"`
}

// Location resolves RevealTimezone. Load rejects unknown zones, so the
// UTC fallback only covers configs built by hand.
func (l LedgerConfig) Location() *time.Location {
	if l.RevealTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(l.RevealTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SecurityConfig struct {
	LoginFailureLimit int           `mapstructure:"login_failure_limit"`
	LoginCooloff      time.Duration `mapstructure:"login_cooloff"`
}

type SeedConfig struct {
	Users               int       `mapstructure:"users"`
	TransactionsPerUser int       `mapstructure:"transactions_per_user"`
	Since               time.Time `mapstructure:"since"`
	RandomSeed          int64     `mapstructure:"random_seed"`
	Password            string    `mapstructure:"password"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WLG_ (Wallet LedGer).
// Nested keys use underscore: WLG_DATABASE_HOST, WLG_LEDGER_REVEAL_FEE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "5s")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "wallet-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.currency", "EGP")
	v.SetDefault("ledger.system_identity", "shipay_bonus_bot")
	v.SetDefault("ledger.bonus_amount", "1000.00")
	v.SetDefault("ledger.reveal_fee", "10.00")
	v.SetDefault("ledger.free_reveals_per_day", 3)
	v.SetDefault("ledger.reveal_timezone", "UTC")
	v.SetDefault("security.login_failure_limit", 3)
	v.SetDefault("security.login_cooloff", "1h")
	v.SetDefault("seed.users", 20)
	v.SetDefault("seed.transactions_per_user", 100)
	v.SetDefault("seed.since", "2024-01-01T00:00:00Z")
	v.SetDefault("seed.random_seed", 1)
	v.SetDefault("seed.password", "qwe")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WLG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Ledger.BonusAmount.IsNegative() || c.Ledger.RevealFee.IsNegative() {
		return fmt.Errorf("ledger: bonus_amount and reveal_fee must not be negative")
	}
	for name, d := range map[string]decimal.Decimal{
		"bonus_amount": c.Ledger.BonusAmount,
		"reveal_fee":   c.Ledger.RevealFee,
	} {
		if !d.Equal(d.Truncate(2)) {
			return fmt.Errorf("ledger.%s: %s has more than two decimal places", name, d)
		}
	}
	if c.Ledger.RevealTimezone != "" {
		if _, err := time.LoadLocation(c.Ledger.RevealTimezone); err != nil {
			return fmt.Errorf("ledger.reveal_timezone: %w", err)
		}
	}
	if c.Ledger.FreeRevealsPerDay < 0 {
		return fmt.Errorf("ledger.free_reveals_per_day must not be negative")
	}
	return nil
}
