package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries every externally tunable value. It is built once at
// startup and injected into components; nothing reads the environment
// after Load returns.
type Config struct {
	DBSource       string
	Port           string
	Env            string
	RedisAddr      string
	KafkaBrokers   []string
	TransferTopic  string
	FeeGroup       string
	AccountBaseURL string
	InternalAPIKey string
	TransferFee    decimal.Decimal
	BalanceTTL     time.Duration
	RemoteTimeout  time.Duration
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	fee, err := decimal.NewFromString(getenv("TRANSFER_FEE", "2.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_FEE: %w", err)
	}

	ttlSec, err := strconv.Atoi(getenv("BALANCE_TTL_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BALANCE_TTL_SECONDS: %w", err)
	}

	timeoutSec, err := strconv.Atoi(getenv("REMOTE_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMOTE_TIMEOUT_SECONDS: %w", err)
	}

	return &Config{
		DBSource:       dbSource,
		Port:           getenv("SERVER_PORT", "8080"),
		Env:            getenv("ENVIRONMENT", "development"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:   strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		TransferTopic:  getenv("KAFKA_TRANSFER_TOPIC", "transfers-completed"),
		FeeGroup:       getenv("KAFKA_FEE_GROUP", "fee-worker"),
		AccountBaseURL: getenv("ACCOUNT_API_URL", "http://localhost:8080"),
		InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),
		TransferFee:    fee,
		BalanceTTL:     time.Duration(ttlSec) * time.Second,
		RemoteTimeout:  time.Duration(timeoutSec) * time.Second,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
