package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	HTTPServer struct {
		Address     string        `yaml:"address"`
		Timeout     time.Duration `yaml:"timeout"`
		IdleTimeout time.Duration `yaml:"idle_timeout"`
	} `yaml:"http_server"`

	WSServer struct {
		Address     string        `yaml:"address"`
		Timeout     time.Duration `yaml:"timeout"`
		IdleTimeout time.Duration `yaml:"idle_timeout"`
		PublishURL  string        `yaml:"publish_url"`
	} `yaml:"ws_server"`

	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`

	Game GameConfig `yaml:"game"`

	Price struct {
		BaseURL  string        `yaml:"base_url"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"price"`

	Pusher struct {
		Enabled bool   `yaml:"enabled"`
		AppID   string `yaml:"app_id"`
		Key     string `yaml:"key"`
		Secret  string `yaml:"secret"`
		Cluster string `yaml:"cluster"`
	} `yaml:"pusher"`
}

// GameConfig holds the round lifecycle policy parameters.
type GameConfig struct {
	BettingWindow time.Duration `yaml:"betting_window"`
	CoolDown      time.Duration `yaml:"cool_down"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	GrowthRate    float64       `yaml:"growth_rate"`
	MaxCrashSteps int64         `yaml:"max_crash_steps"`
	StartRetries  int           `yaml:"start_retries"`
}

// MustLoad reads the config file pointed to by CONFIG_PATH and panics on failure.
func MustLoad() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/local.yaml"
	}

	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load config %s: %v", path, err))
	}

	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPServer.Address == "" {
		return fmt.Errorf("http_server.address is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Game.BettingWindow <= 0 {
		return fmt.Errorf("game.betting_window must be positive")
	}
	if c.Game.TickInterval <= 0 {
		return fmt.Errorf("game.tick_interval must be positive")
	}
	if c.Game.GrowthRate <= 0 {
		return fmt.Errorf("game.growth_rate must be positive")
	}
	if c.Game.MaxCrashSteps <= 0 {
		return fmt.Errorf("game.max_crash_steps must be positive")
	}
	if c.Game.StartRetries <= 0 {
		return fmt.Errorf("game.start_retries must be positive")
	}
	if c.Pusher.Enabled && (c.Pusher.AppID == "" || c.Pusher.Key == "") {
		return fmt.Errorf("pusher enabled but app_id/key missing")
	}

	return nil
}

func overrideWithEnv(cfg *Config) {
	if dsn := os.Getenv("CRASH_MYSQL_DSN"); dsn != "" {
		cfg.MySQL.DSN = dsn
	}
	if secret := os.Getenv("CRASH_PUSHER_SECRET"); secret != "" {
		cfg.Pusher.Secret = secret
	}
	if url := os.Getenv("CRASH_PRICE_URL"); url != "" {
		cfg.Price.BaseURL = url
	}
}
