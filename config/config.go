package config

import (
	"fmt"
	"strings"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Tiers    TiersConfig    `mapstructure:"tiers"`
	Clients  []ClientConfig `mapstructure:"clients"`
	Admins   []string       `mapstructure:"admins"` // usernames granted the ADMIN role at registration
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig tunes the transaction processor and the round sweeper.
type LedgerConfig struct {
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	TierWindow         time.Duration `mapstructure:"tier_window"`
	RoundSweepInterval time.Duration `mapstructure:"round_sweep_interval"`
}

// TierCeilings are decimal strings so YAML and env values keep their exact scale.
type TierCeilings struct {
	WeeklyWithdrawal string `mapstructure:"weekly_withdrawal"`
	WeeklyVoteSpend  string `mapstructure:"weekly_vote_spend"`
}

type TiersConfig struct {
	None  TierCeilings `mapstructure:"none"`
	Tier1 TierCeilings `mapstructure:"tier_1"`
	Tier2 TierCeilings `mapstructure:"tier_2"`
}

// Policy parses the configured ceilings into a domain.TierPolicy.
func (t TiersConfig) Policy() (domain.TierPolicy, error) {
	policy := domain.TierPolicy{}
	for tier, c := range map[domain.VerificationTier]TierCeilings{
		domain.TierNone: t.None,
		domain.Tier1:    t.Tier1,
		domain.Tier2:    t.Tier2,
	} {
		withdraw, err := decimal.NewFromString(c.WeeklyWithdrawal)
		if err != nil {
			return nil, fmt.Errorf("tier %s weekly_withdrawal: %w", tier, err)
		}
		vote, err := decimal.NewFromString(c.WeeklyVoteSpend)
		if err != nil {
			return nil, fmt.Errorf("tier %s weekly_vote_spend: %w", tier, err)
		}
		if withdraw.IsNegative() || vote.IsNegative() {
			return nil, fmt.Errorf("tier %s: ceilings must not be negative", tier)
		}
		policy[tier] = domain.TierLimits{WeeklyWithdrawal: withdraw, WeeklyVoteSpend: vote}
	}
	return policy, nil
}

// ClientConfig is an HMAC service client such as the task engine or the KYC provider.
type ClientConfig struct {
	Name      string   `mapstructure:"name"`
	AccessKey string   `mapstructure:"access_key"`
	Secret    string   `mapstructure:"secret"`
	Scopes    []string `mapstructure:"scopes"` // intents, kyc
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SUP_.
// Nested keys use underscore: SUP_DATABASE_HOST, SUP_LEDGER_TIER_WINDOW, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sup_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "sup-ledger")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("ledger.tier_window", "168h")
	v.SetDefault("ledger.round_sweep_interval", "1m")
	v.SetDefault("tiers.none.weekly_withdrawal", "0")
	v.SetDefault("tiers.none.weekly_vote_spend", "500")
	v.SetDefault("tiers.tier_1.weekly_withdrawal", "1000")
	v.SetDefault("tiers.tier_1.weekly_vote_spend", "5000")
	v.SetDefault("tiers.tier_2.weekly_withdrawal", "10000")
	v.SetDefault("tiers.tier_2.weekly_vote_spend", "50000")
	v.SetDefault("metrics.enabled", true)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SUP_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Ledger.IdempotencyTTL <= 0 {
		return fmt.Errorf("ledger.idempotency_ttl must be positive")
	}
	if c.Ledger.TierWindow <= 0 {
		return fmt.Errorf("ledger.tier_window must be positive")
	}
	if _, err := c.Tiers.Policy(); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Clients))
	for _, cl := range c.Clients {
		if cl.AccessKey == "" || cl.Secret == "" {
			return fmt.Errorf("clients: %q needs access_key and secret", cl.Name)
		}
		if _, dup := seen[cl.AccessKey]; dup {
			return fmt.Errorf("clients: duplicate access_key for %q", cl.Name)
		}
		seen[cl.AccessKey] = struct{}{}
	}
	return nil
}
