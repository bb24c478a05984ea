package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Receiptwise"`
		Port int    `envconfig:"PORT" default:"8090"`
	}

	Backend struct {
		URL     string        `envconfig:"BACKEND_URL"`
		AnonKey string        `envconfig:"BACKEND_ANON_KEY"`
		Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
	}

	Storage struct {
		ReceiptBucket  string `envconfig:"RECEIPT_BUCKET" default:"receipt-images"`
		MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"5242880"` // 5 MiB
	}

	Vision struct {
		APIKey string `envconfig:"VISION_API_KEY"`
		Model  string `envconfig:"VISION_MODEL" default:"gemini-2.5-flash"`
	}

	Rates struct {
		ProviderURL string        `envconfig:"RATES_PROVIDER_URL" default:"https://api.exchangerate-api.com/v4/latest"`
		MaxAge      time.Duration `envconfig:"RATES_MAX_AGE" default:"24h"`
	}

	Local struct {
		CachePath   string `envconfig:"LOCAL_CACHE_PATH" default:"receiptwise.db"`
		CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
	}
}

// RealtimeURL derives the websocket endpoint from the backend base URL.
func (c *Config) RealtimeURL() string {
	url := strings.Replace(c.Backend.URL, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)

	return url + "/realtime/v1/websocket"
}

func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.Local.CORSOrigins, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	return parts
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	if cfg.Backend.AnonKey == "" {
		return nil, fmt.Errorf("BACKEND_ANON_KEY is required")
	}

	return &cfg, nil
}
