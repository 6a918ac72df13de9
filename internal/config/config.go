package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type AssetConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
}

type MarketConfig struct {
	ID               string  `yaml:"id"`
	Base             string  `yaml:"base"`
	Quote            string  `yaml:"quote"`
	PriceDecimals    int32   `yaml:"price_decimals"`
	Precisions       []int32 `yaml:"precisions"`
	DefaultPrecision int32   `yaml:"default_precision"`
}

type Config struct {
	Port              int            `yaml:"port"`
	LogLevel          string         `yaml:"log_level"`
	FeedURL           string         `yaml:"feed_url"`
	ReconnectMaxSecs  int            `yaml:"reconnect_max_seconds"`
	SnapshotBufferLen int            `yaml:"snapshot_buffer_len"`
	Assets            []AssetConfig  `yaml:"assets"`
	Markets           []MarketConfig `yaml:"markets"`
}

func defaults() Config {
	return Config{
		Port:              8087,
		LogLevel:          "info",
		FeedURL:           "wss://127.0.0.1:9443/orders/ws",
		ReconnectMaxSecs:  30,
		SnapshotBufferLen: 1024,
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// Validation & normalization
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.New("invalid port")
	}
	if cfg.FeedURL == "" {
		return cfg, errors.New("feed_url required")
	}
	if cfg.ReconnectMaxSecs < 1 {
		return cfg, errors.New("reconnect_max_seconds must be >=1")
	}
	if cfg.SnapshotBufferLen < 1 {
		return cfg, errors.New("snapshot_buffer_len must be >=1")
	}
	if len(cfg.Assets) == 0 {
		return cfg, errors.New("at least one asset required")
	}
	if len(cfg.Markets) == 0 {
		return cfg, errors.New("at least one market required")
	}
	for i, a := range cfg.Assets {
		if strings.TrimSpace(a.Symbol) == "" {
			return cfg, fmt.Errorf("asset %d: symbol required", i)
		}
		if a.Decimals < 0 {
			return cfg, fmt.Errorf("asset %s: negative decimals", a.Symbol)
		}
	}
	for i, m := range cfg.Markets {
		if strings.TrimSpace(m.ID) == "" {
			return cfg, fmt.Errorf("market %d: id required", i)
		}
		if m.Base == "" || m.Quote == "" {
			return cfg, fmt.Errorf("market %s: base and quote required", m.ID)
		}
	}
	return cfg, nil
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
