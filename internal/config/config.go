// Package config resolves runtime settings in layers: built-in defaults,
// then the YAML config file, then XLX_* environment variables, then flags.
// Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath    string
	RPCURL        string
	Timeout       string
	Retries       int
	OrdersBackend string
	RedisURL      string
	WatchInterval string
	JSON          bool
}

type Settings struct {
	Timeout time.Duration
	Retries int

	// RPCURL overrides the per-chain default endpoint when set.
	RPCURL string

	OrdersBackend  string // sqlite, memory or redis
	OrdersPath     string
	OrdersLockPath string
	JournalPath    string
	RedisURL       string
	RedisPassword  string

	WatchInterval   time.Duration
	PriceFeedMode   string // http or stream
	SwapPollEvery   time.Duration
	SwapPollMax     int
	BridgePollEvery time.Duration
	BridgePollMax   int

	SlippagePct     float64
	ApprovalType    string
	TelegramToken   string
	TelegramChatID  string
	MetricsAddr     string
	JSONOutput      bool
}

type fileConfig struct {
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`
	RPCURL  string `yaml:"rpc_url"`
	Orders  struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"orders"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Redis struct {
		URL      string `yaml:"url"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Watch struct {
		Interval  string `yaml:"interval"`
		PriceFeed string `yaml:"price_feed"`
	} `yaml:"watch"`
	Polling struct {
		SwapInterval   string `yaml:"swap_interval"`
		SwapAttempts   *int   `yaml:"swap_attempts"`
		BridgeInterval string `yaml:"bridge_interval"`
		BridgeAttempts *int   `yaml:"bridge_attempts"`
	} `yaml:"polling"`
	Execution struct {
		SlippagePct  *float64 `yaml:"slippage_pct"`
		ApprovalType string   `yaml:"approval_type"`
	} `yaml:"execution"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	switch settings.OrdersBackend {
	case "sqlite", "memory", "redis":
	default:
		return Settings{}, fmt.Errorf("unknown orders backend %q", settings.OrdersBackend)
	}
	switch settings.PriceFeedMode {
	case "http", "stream":
	default:
		return Settings{}, fmt.Errorf("unknown price feed mode %q", settings.PriceFeedMode)
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Timeout:         15 * time.Second,
		Retries:         2,
		OrdersBackend:   "sqlite",
		OrdersPath:      filepath.Join(dataDir, "orders.db"),
		OrdersLockPath:  filepath.Join(dataDir, "orders.lock"),
		JournalPath:     filepath.Join(dataDir, "executions.db"),
		WatchInterval:   10 * time.Second,
		PriceFeedMode:   "http",
		SwapPollEvery:   2 * time.Second,
		SwapPollMax:     60,
		BridgePollEvery: 5 * time.Second,
		BridgePollMax:   120,
		SlippagePct:     0.5,
		ApprovalType:    "exact",
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "xlx", "config.yaml"), nil
}

func defaultDataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "xlx"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.RPCURL != "" {
		settings.RPCURL = cfg.RPCURL
	}
	if cfg.Orders.Backend != "" {
		settings.OrdersBackend = strings.ToLower(cfg.Orders.Backend)
	}
	if cfg.Orders.Path != "" {
		settings.OrdersPath = cfg.Orders.Path
	}
	if cfg.Orders.LockPath != "" {
		settings.OrdersLockPath = cfg.Orders.LockPath
	}
	if cfg.Journal.Path != "" {
		settings.JournalPath = cfg.Journal.Path
	}
	if cfg.Redis.URL != "" {
		settings.RedisURL = cfg.Redis.URL
	}
	if cfg.Redis.Password != "" {
		settings.RedisPassword = cfg.Redis.Password
	}
	if cfg.Watch.Interval != "" {
		d, err := time.ParseDuration(cfg.Watch.Interval)
		if err != nil {
			return fmt.Errorf("config watch.interval: %w", err)
		}
		settings.WatchInterval = d
	}
	if cfg.Watch.PriceFeed != "" {
		settings.PriceFeedMode = strings.ToLower(cfg.Watch.PriceFeed)
	}
	if cfg.Polling.SwapInterval != "" {
		d, err := time.ParseDuration(cfg.Polling.SwapInterval)
		if err != nil {
			return fmt.Errorf("config polling.swap_interval: %w", err)
		}
		settings.SwapPollEvery = d
	}
	if cfg.Polling.SwapAttempts != nil {
		settings.SwapPollMax = *cfg.Polling.SwapAttempts
	}
	if cfg.Polling.BridgeInterval != "" {
		d, err := time.ParseDuration(cfg.Polling.BridgeInterval)
		if err != nil {
			return fmt.Errorf("config polling.bridge_interval: %w", err)
		}
		settings.BridgePollEvery = d
	}
	if cfg.Polling.BridgeAttempts != nil {
		settings.BridgePollMax = *cfg.Polling.BridgeAttempts
	}
	if cfg.Execution.SlippagePct != nil {
		settings.SlippagePct = *cfg.Execution.SlippagePct
	}
	if cfg.Execution.ApprovalType != "" {
		settings.ApprovalType = strings.ToLower(cfg.Execution.ApprovalType)
	}
	if cfg.Telegram.Token != "" {
		settings.TelegramToken = cfg.Telegram.Token
	}
	if cfg.Telegram.ChatID != "" {
		settings.TelegramChatID = cfg.Telegram.ChatID
	}
	if cfg.Metrics.Addr != "" {
		settings.MetricsAddr = cfg.Metrics.Addr
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("XLX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("XLX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("XLX_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("XLX_ORDERS_BACKEND"); v != "" {
		settings.OrdersBackend = strings.ToLower(v)
	}
	if v := os.Getenv("XLX_ORDERS_PATH"); v != "" {
		settings.OrdersPath = v
	}
	if v := os.Getenv("XLX_ORDERS_LOCK_PATH"); v != "" {
		settings.OrdersLockPath = v
	}
	if v := os.Getenv("XLX_JOURNAL_PATH"); v != "" {
		settings.JournalPath = v
	}
	if v := os.Getenv("XLX_REDIS_URL"); v != "" {
		settings.RedisURL = v
	}
	if v := os.Getenv("XLX_REDIS_PASSWORD"); v != "" {
		settings.RedisPassword = v
	}
	if v := os.Getenv("XLX_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.WatchInterval = d
		}
	}
	if v := os.Getenv("XLX_PRICE_FEED"); v != "" {
		settings.PriceFeedMode = strings.ToLower(v)
	}
	if v := os.Getenv("XLX_SLIPPAGE_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.SlippagePct = f
		}
	}
	if v := os.Getenv("XLX_APPROVAL_TYPE"); v != "" {
		settings.ApprovalType = strings.ToLower(v)
	}
	if v := os.Getenv("XLX_TELEGRAM_TOKEN"); v != "" {
		settings.TelegramToken = v
	}
	if v := os.Getenv("XLX_TELEGRAM_CHAT_ID"); v != "" {
		settings.TelegramChatID = v
	}
	if v := os.Getenv("XLX_METRICS_ADDR"); v != "" {
		settings.MetricsAddr = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.RPCURL != "" {
		settings.RPCURL = flags.RPCURL
	}
	if flags.OrdersBackend != "" {
		settings.OrdersBackend = strings.ToLower(flags.OrdersBackend)
	}
	if flags.RedisURL != "" {
		settings.RedisURL = flags.RedisURL
	}
	if flags.WatchInterval != "" {
		d, err := time.ParseDuration(flags.WatchInterval)
		if err != nil {
			return fmt.Errorf("--interval: %w", err)
		}
		settings.WatchInterval = d
	}
	settings.JSONOutput = flags.JSON
	return nil
}
