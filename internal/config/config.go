package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN             string `mapstructure:"DB_DSN"`
	Environment       string `mapstructure:"ENV"`
	ServerTimezone    string `mapstructure:"SERVER_TIMEZONE"`
	SyncIntervalHours int    `mapstructure:"SYNC_INTERVAL_HOURS"`
	LookaheadWeeks    int    `mapstructure:"LOOKAHEAD_WEEKS"`
	MinRangeMinutes   int    `mapstructure:"MIN_RANGE_MINUTES"`
	DefaultApplyWeeks int    `mapstructure:"DEFAULT_APPLY_WEEKS"`
	MetricsAddr       string `mapstructure:"METRICS_ADDR"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	// Читаем напрямую из переменных окружения (после godotenv.Load они там)
	cfg := &Config{
		DBDSN:             os.Getenv("DB_DSN"),
		Environment:       os.Getenv("ENV"),
		ServerTimezone:    os.Getenv("SERVER_TIMEZONE"),
		SyncIntervalHours: getInt("SYNC_INTERVAL_HOURS", 2),
		LookaheadWeeks:    getInt("LOOKAHEAD_WEEKS", 4),
		MinRangeMinutes:   getInt("MIN_RANGE_MINUTES", 30),
		DefaultApplyWeeks: getInt("DEFAULT_APPLY_WEEKS", 52),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.ServerTimezone == "" {
		cfg.ServerTimezone = "America/New_York"
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if _, err := time.LoadLocation(cfg.ServerTimezone); err != nil {
		return nil, fmt.Errorf("SERVER_TIMEZONE %q is not a valid IANA zone: %w", cfg.ServerTimezone, err)
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// Location возвращает канонический часовой пояс сервера. Валидность
// проверена в Load, поэтому ошибка здесь невозможна.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ServerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SyncInterval периодичность фонового прохода синхронизации
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalHours) * time.Hour
}

// getInt читает целочисленную переменную окружения с дефолтом
func getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a number, using default %d", key, raw, def)
		return def
	}
	return v
}
