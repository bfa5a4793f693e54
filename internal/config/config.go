package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gambitworks/chessvault/internal/domain"
)

// Duration lets yaml carry values like "6s" or "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	WebhookURL  string `yaml:"webhook_url"`

	CustodyAccount string `yaml:"custody_account"`
	IncentiveShare uint8  `yaml:"incentive_share"`

	EloK       float64 `yaml:"elo_k"`
	EloInitial int     `yaml:"elo_initial"`

	// block-height budgets per style, one move each
	BulletPeriod uint64 `yaml:"bullet_period"`
	BlitzPeriod  uint64 `yaml:"blitz_period"`
	RapidPeriod  uint64 `yaml:"rapid_period"`
	DailyPeriod  uint64 `yaml:"daily_period"`

	BlockInterval Duration `yaml:"block_interval"`
	SweepEnabled  bool     `yaml:"sweep_enabled"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:     ":8089",
		CustodyAccount: "chessvault-custody",
		IncentiveShare: 10,
		EloK:           32,
		EloInitial:     1500,
		BulletPeriod:   10,
		BlitzPeriod:    50,
		RapidPeriod:    250,
		DailyPeriod:    14400,
		BlockInterval:  Duration(6 * time.Second),
		SweepEnabled:   true,
	}
}

// Load builds the configuration from defaults, an optional yaml file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_URL")); v != "" {
		cfg.WebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CUSTODY_ACCOUNT")); v != "" {
		cfg.CustodyAccount = v
	}
	if v := strings.TrimSpace(os.Getenv("INCENTIVE_SHARE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			cfg.IncentiveShare = uint8(n)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ELO_K")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.EloK = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("ELO_INITIAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EloInitial = n
		}
	}
	for env, dst := range map[string]*uint64{
		"BULLET_PERIOD": &cfg.BulletPeriod,
		"BLITZ_PERIOD":  &cfg.BlitzPeriod,
		"RAPID_PERIOD":  &cfg.RapidPeriod,
		"DAILY_PERIOD":  &cfg.DailyPeriod,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("BLOCK_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BlockInterval = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SweepEnabled = b
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.IncentiveShare == 0 || cfg.IncentiveShare > 100 {
		return nil, fmt.Errorf("incentive_share %d out of range", cfg.IncentiveShare)
	}

	return cfg, nil
}

// Periods maps the configured per-style budgets into the domain type.
func (c *AppConfig) Periods() domain.Periods {
	return domain.Periods{
		Bullet: domain.BlockNumber(c.BulletPeriod),
		Blitz:  domain.BlockNumber(c.BlitzPeriod),
		Rapid:  domain.BlockNumber(c.RapidPeriod),
		Daily:  domain.BlockNumber(c.DailyPeriod),
	}
}
