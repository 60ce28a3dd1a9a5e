package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the process configuration. Values come from configs/.env (if
// present), then environment variables, then defaults.
type Config struct {
	Port        string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins []string
	LogLevel    string
	Sales       SalesConfig
	Integrity   IntegrityConfig
}

// SalesConfig tunes the reconciliation engine.
type SalesConfig struct {
	BusinessTimezone string
	RowCap           int
	// ProducerShare estimates net from gross when neither source has a net
	// amount. The default has not been confirmed by the business.
	ProducerShare decimal.Decimal
	ChunkTimeout  time.Duration
	RetryMax      int
	RetryBase     time.Duration
	ExportMaxRows int
}

type IntegrityConfig struct {
	Schedule string
}

const DefaultProducerShare = "0.46"

// MaxRetries bounds SALES_RETRY_MAX.
const MaxRetries = 10

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BUSINESS_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("SALES_ROW_CAP", 1000)
	v.SetDefault("SALES_PRODUCER_SHARE", DefaultProducerShare)
	v.SetDefault("SALES_CHUNK_TIMEOUT", "15s")
	v.SetDefault("SALES_RETRY_MAX", 3)
	v.SetDefault("SALES_RETRY_BASE", "200ms")
	v.SetDefault("SALES_EXPORT_MAX_ROWS", 50000)
	v.SetDefault("INTEGRITY_CRON", "0 6 * * *")
}

// Load reads configs/.env then the environment.
func Load() (Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		if v.GetString("GIN_MODE") == "release" {
			return Config{}, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		secret = "default_super_secret_key" // development fallback only
	}

	share, err := decimal.NewFromString(v.GetString("SALES_PRODUCER_SHARE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SALES_PRODUCER_SHARE: %w", err)
	}
	if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("SALES_PRODUCER_SHARE must be within [0, 1], got %s", share)
	}

	if _, err := time.LoadLocation(v.GetString("BUSINESS_TIMEZONE")); err != nil {
		return Config{}, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}

	rowCap := v.GetInt("SALES_ROW_CAP")
	if rowCap <= 0 {
		return Config{}, fmt.Errorf("SALES_ROW_CAP must be positive, got %d", rowCap)
	}

	retryMax := v.GetInt("SALES_RETRY_MAX")
	if retryMax < 0 || retryMax > MaxRetries {
		return Config{}, fmt.Errorf("SALES_RETRY_MAX must be within [0, %d], got %d", MaxRetries, retryMax)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		v.GetString("DB_USER"),
		v.GetString("DB_PASSWORD"),
		v.GetString("DB_HOST"),
		v.GetString("DB_PORT"),
		v.GetString("DB_NAME"),
		v.GetString("DB_SSLMODE"),
	)

	return Config{
		Port:        v.GetString("PORT"),
		DatabaseDSN: dsn,
		JWTSecret:   secret,
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Sales: SalesConfig{
			BusinessTimezone: v.GetString("BUSINESS_TIMEZONE"),
			RowCap:           rowCap,
			ProducerShare:    share,
			ChunkTimeout:     v.GetDuration("SALES_CHUNK_TIMEOUT"),
			RetryMax:         retryMax,
			RetryBase:        v.GetDuration("SALES_RETRY_BASE"),
			ExportMaxRows:    v.GetInt("SALES_EXPORT_MAX_ROWS"),
		},
		Integrity: IntegrityConfig{
			Schedule: v.GetString("INTEGRITY_CRON"),
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
