package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Storage for saved reports and debug history
	StoreDriver string
	StoreDSN    string

	// Input limits
	MaxFileBytes int64

	// Pipeline
	MaxQueueSize int
	JobTTL       time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Debug bundle webhook
	WebhookURL     string
	WebhookTimeout time.Duration

	// Directory watcher
	WatchDebounce time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"STORE_DRIVER":           "sqlite",
	"STORE_DSN":              "isdaudit.db",
	"MAX_FILE_BYTES":         int64(52428800), // 50MB
	"MAX_QUEUE_SIZE":         100,
	"JOB_TTL":                time.Hour,
	"PDF_FALLBACK_PDFTOTEXT": true,
	"WEBHOOK_URL":            "",
	"WEBHOOK_TIMEOUT":        30 * time.Second,
	"WATCH_DEBOUNCE":         500 * time.Millisecond,
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
}

// Load reads configuration from the environment and, when path is not
// empty, from a config file. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		StoreDSN:    v.GetString("STORE_DSN"),

		MaxFileBytes: v.GetInt64("MAX_FILE_BYTES"),

		MaxQueueSize: v.GetInt("MAX_QUEUE_SIZE"),
		JobTTL:       v.GetDuration("JOB_TTL"),

		PDFFallbackPdftotext: v.GetBool("PDF_FALLBACK_PDFTOTEXT"),

		WebhookURL:     v.GetString("WEBHOOK_URL"),
		WebhookTimeout: v.GetDuration("WEBHOOK_TIMEOUT"),

		WatchDebounce: v.GetDuration("WATCH_DEBOUNCE"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 52428800
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = 30 * time.Second
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 500 * time.Millisecond
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required")
		}
	case "postgres":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want sqlite or postgres)", c.StoreDriver)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q (want json or text)", c.LogFormat)
	}
	return nil
}
