package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	strs "registrar/pkg/platform/strings"
)

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerBolt     = "bolt"
	LedgerPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Server  Server
	Ledger  Ledger
	Redis   RedisConfig
	Kafka   KafkaConfig
	Oracle  OracleConfig
	Sweeper SweeperConfig

	// ProgramID is the base58 identity owning every registrar account.
	ProgramID string
	LogLevel  string
	// DevMode serves a static price and enables the faucet.
	DevMode bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type Ledger struct {
	Backend     string
	BoltPath    string
	DatabaseURL string
}

// RedisConfig is optional; an empty URL disables the shared cache and replay guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional; no brokers keeps the audit trail in memory.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type OracleConfig struct {
	URL                string
	FeedID             string
	MaxAge             time.Duration
	MaxConfidenceRatio decimal.Decimal
	CacheTTL           time.Duration
}

type SweeperConfig struct {
	Interval time.Duration
	// Operator is the identity recorded as the withdrawal caller.
	Operator string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		Server: Server{
			Addr:            envOr("REGISTRAR_ADDR", ":8080"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  p.duration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Ledger: Ledger{
			Backend:     strings.ToLower(envOr("LEDGER_BACKEND", LedgerMemory)),
			BoltPath:    envOr("BOLT_PATH", "./data"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    strs.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "registrar.audit"),
		},
		Oracle: OracleConfig{
			URL:                envOr("ORACLE_URL", "https://hermes.pyth.network"),
			FeedID:             os.Getenv("ORACLE_FEED_ID"),
			MaxAge:             p.duration("ORACLE_MAX_AGE", 60*time.Second),
			MaxConfidenceRatio: p.decimal("ORACLE_MAX_CONFIDENCE_RATIO", decimal.New(2, -2)),
			CacheTTL:           p.duration("ORACLE_CACHE_TTL", 5*time.Second),
		},
		Sweeper: SweeperConfig{
			Interval: p.duration("SWEEP_INTERVAL", 0),
			Operator: os.Getenv("SWEEP_OPERATOR"),
		},
		ProgramID: os.Getenv("REGISTRAR_PROGRAM_ID"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		DevMode:   os.Getenv("DEV_MODE") == "true",
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.ProgramID == "" {
		return fmt.Errorf("REGISTRAR_PROGRAM_ID is required")
	}
	switch c.Ledger.Backend {
	case LedgerMemory, LedgerBolt:
	case LedgerPostgres:
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if c.Sweeper.Interval > 0 && c.Sweeper.Operator == "" {
		return fmt.Errorf("SWEEP_OPERATOR is required when SWEEP_INTERVAL is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser keeps the first parse error so FromEnv reads top to bottom.
type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return n
}

func (p *parser) decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return d
}
