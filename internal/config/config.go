package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a yaml file with
// environment overrides for deployment-specific values.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pool       PoolConfig       `yaml:"pool"`
	Settlement SettlementConfig `yaml:"settlement"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PoolConfig struct {
	PoolID       string `yaml:"pool_id"`
	MinLiquidity uint64 `yaml:"min_liquidity"`
	// Operator is the wallet address allowed to create, seed and lock
	// matches. It also owns the genesis pool shares.
	Operator string `yaml:"operator"`
}

type SettlementConfig struct {
	// WorkerInterval is how often the settlement worker scans for due
	// matches and settleable slips. Parsed from a duration string like
	// "30s" or "1m".
	WorkerIntervalStr string `yaml:"worker_interval"`

	WorkerInterval time.Duration `yaml:"-"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	// ChannelID receives settlement announcements when set.
	ChannelID string `yaml:"channel_id"`
}

// Load reads the config file at path and applies env overrides. A missing
// file is not an error; defaults and env vars carry a bare deployment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:     ServerConfig{Port: "8080", AllowedOrigins: []string{"http://localhost:3000"}},
		Database:   DatabaseConfig{Path: "/app/data/leaguebet.db"},
		Pool:       PoolConfig{PoolID: "season_2024_25", MinLiquidity: 100_000, Operator: "pool_operator"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if operator := os.Getenv("OPERATOR_ADDRESS"); operator != "" {
		cfg.Pool.Operator = operator
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if channel := os.Getenv("CHANNEL_ID"); channel != "" {
		cfg.Telegram.ChannelID = channel
	}

	cfg.Settlement.WorkerInterval = time.Minute
	if cfg.Settlement.WorkerIntervalStr != "" {
		interval, err := time.ParseDuration(cfg.Settlement.WorkerIntervalStr)
		if err != nil {
			return nil, fmt.Errorf("invalid worker_interval %q: %w", cfg.Settlement.WorkerIntervalStr, err)
		}
		if interval > 0 {
			cfg.Settlement.WorkerInterval = interval
		}
	}

	return cfg, nil
}
