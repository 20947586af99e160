package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	HTTP    ServerConfig
	MySQL   MySQLConfig
	Log     LogConfig
	Eway    EwayConfig
	Billing BillingConfig
	Jobs    JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type EwayConfig struct {
	ProcessorID int32
	Endpoint    string
	CustomerID  string
	Username    string
	Password    string
	Timeout     time.Duration
}

type BillingConfig struct {
	DomainID          int32
	InvoiceRefMaxLen  int
	DefaultSourceText string
}

type JobsConfig struct {
	BillingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Eway: EwayConfig{
			ProcessorID: int32(getIntEnv("EWAY_PROCESSOR_ID", 1)),
			Endpoint:    getEnv("EWAY_ENDPOINT", ""),
			CustomerID:  getEnv("EWAY_CUSTOMER_ID", ""),
			Username:    getEnv("EWAY_USERNAME", ""),
			Password:    getEnv("EWAY_PASSWORD", ""),
			// The upstream gateway has no documented SLA; keep this in
			// minutes, not seconds.
			Timeout: getMinutesEnv("EWAY_TIMEOUT_MINUTES", 10*time.Minute),
		},
		Billing: BillingConfig{
			DomainID:          int32(getIntEnv("BILLING_DOMAIN_ID", 0)),
			InvoiceRefMaxLen:  getIntEnv("BILLING_INVOICE_REF_MAX_LEN", 16),
			DefaultSourceText: getEnv("BILLING_DEFAULT_SOURCE_TEXT", "Recurring payment"),
		},
		Jobs: JobsConfig{
			BillingInterval: getMinutesEnv("BILLING_JOB_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
