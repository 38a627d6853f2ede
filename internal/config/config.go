// Package config reads the arena service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	LedgerPostgres = "postgres"
	LedgerMemory   = "memory"
)

type Config struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `env:"LOG_FORMAT,default=text" validate:"oneof=text json"`

	LedgerBackend   string `env:"LEDGER_BACKEND,default=memory" validate:"oneof=postgres memory"`
	StartingBalance int64  `env:"STARTING_BALANCE,default=1000" validate:"min=0"`

	PostgresUser     string `env:"POSTGRES_USER" validate:"required_if=LedgerBackend postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PGHost           string `env:"PG_HOST,default=localhost"`
	PGPort           int    `env:"PG_PORT,default=5432" validate:"min=1,max=65535"`
	PGDatabase       string `env:"PG_DATABASE" validate:"required_if=LedgerBackend postgres"`
	PGMaxConns       int    `env:"PG_MAX_CONNS,default=10" validate:"min=1"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisDB                 int    `env:"REDIS_DB,default=0" validate:"min=0"`
	HistorianQueueName      string `env:"HISTORIAN_QUEUE_NAME,default=arena_actions"`
	ReconciliationQueueName string `env:"RECONCILIATION_QUEUE_NAME,default=arena_reconciliation"`

	HouseFeeRate          string        `env:"HOUSE_FEE_RATE,default=0.10" validate:"numeric"`
	RoundDuration         time.Duration `env:"ROUND_DURATION,default=180s" validate:"gt=0"`
	IntroDelay            time.Duration `env:"INTRO_DELAY,default=3s" validate:"gte=0"`
	ResultsDelay          time.Duration `env:"RESULTS_DELAY,default=10s" validate:"gt=0"`
	QuestionCount         int           `env:"QUESTION_COUNT,default=10" validate:"min=1"`
	RoomEmptyGrace        time.Duration `env:"ROOM_EMPTY_GRACE,default=30s" validate:"gt=0"`
	DisconnectGrace       time.Duration `env:"DISCONNECT_GRACE,default=30s" validate:"gt=0"`
	SettlementMaxAttempts int           `env:"SETTLEMENT_MAX_ATTEMPTS,default=3" validate:"min=1"`
	SettlementBackoff     time.Duration `env:"SETTLEMENT_BACKOFF,default=250ms" validate:"gte=0"`

	TokenExpireTime time.Duration `env:"TOKEN_EXPIRE_TIME,default=24h" validate:"gt=0"`
	JWTPublicKey    string        `env:"JWT_PUBLIC_KEY"`
	JWTPrivateKey   string        `env:"JWT_PRIVATE_KEY"`

	HistorianBatchSize  int           `env:"HISTORIAN_BATCH_SIZE,default=20" validate:"min=1"`
	HistorianFlushDelay time.Duration `env:"HISTORIAN_FLUSH_DELAY,default=500ms" validate:"gt=0"`
	MatchInactivity     time.Duration `env:"GAME_INACTIVITY_TIMEOUT,default=10m" validate:"gt=0"`
}

var validate = validator.New()

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the fee rate range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	rate, err := c.HouseRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid config: HOUSE_FEE_RATE %s must be in [0, 1)", rate)
	}
	return nil
}

// HouseRate parses HOUSE_FEE_RATE.
func (c *Config) HouseRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.HouseFeeRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid config: HOUSE_FEE_RATE: %w", err)
	}
	return rate, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresDSN builds the connection string from the POSTGRES_* and PG_*
// variables.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	return u.String()
}
