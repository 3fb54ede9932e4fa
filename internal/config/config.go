package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"QuantSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Symbols     []string `yaml:"symbols" validate:"required,min=1,dive,required"`
		Live        bool     `yaml:"live"`
		HistoryDays int      `yaml:"history_days" validate:"gte=1,lte=30"`
		BaseURL     string   `yaml:"base_url"`
		Seed        uint64   `yaml:"seed"`
	} `yaml:"data_source"`
	Analysis Analysis `yaml:"analysis"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" validate:"required"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns a config populated with every default value.
func Default() *Config {
	cfg := &Config{Analysis: DefaultAnalysis()}
	cfg.DataSource.Symbols = []string{"RELIANCE.NS"}
	cfg.DataSource.Live = true
	cfg.DataSource.HistoryDays = 7
	cfg.Schedule.RefreshCron = "0 * * * * *"
	cfg.Database.SQLitePath = "data/quant_sentinel.db"
	cfg.Redis.Channel = "signals"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	for env, dst := range map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"HTTPS_PROXY":        &cfg.Proxy,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"REDIS_ADDR":         &cfg.Redis.Addr,
		"METRICS_ADDR":       &cfg.Metrics.Addr,
		"REFRESH_CRON":       &cfg.Schedule.RefreshCron,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("USE_LIVE"); v != "" {
		live, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse USE_LIVE: %w", err)
		}
		cfg.DataSource.Live = live
	}

	return cfg, nil
}

// Validate checks the analysis parameters first, then the rest of the config.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram.bot_token and telegram.chat_id must be set together", model.ErrConfiguration)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
