package config

import (
	"time"

	"options-income-screener/pkg/config"
)

// Screener holds screening-pipeline configuration.
type Screener struct {
	Universe          []string      `mapstructure:"universe"`
	CronSchedule      string        `mapstructure:"cron_schedule"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	SendTelegram      bool          `mapstructure:"send_telegram"`
	GenerateRationale bool          `mapstructure:"generate_rationale"`
	TopPicksPerSide   int           `mapstructure:"top_picks_per_side"`
}

// Monitoring holds monitoring-subsystem configuration.
type Monitoring struct {
	ConsecutiveFailureThreshold int           `mapstructure:"consecutive_failure_threshold"`
	SymbolFailureRateThreshold  float64       `mapstructure:"symbol_failure_rate_threshold"`
	SlowRunThreshold            time.Duration `mapstructure:"slow_run_threshold"`
	DeadMansSwitchWindow        time.Duration `mapstructure:"dead_mans_switch_window"`
}

// Polygon holds the configuration for the market data API.
type Polygon struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// EarningsCalendar holds the configuration for the earnings calendar fallback source.
type EarningsCalendar struct {
	BaseURL string `mapstructure:"base_url"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// AI holds configuration for AI providers.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the screener service.
type Config struct {
	App              config.App       `mapstructure:"app"`
	Logger           config.Logger    `mapstructure:"logger"`
	Database         config.Database  `mapstructure:"database"`
	Redis            config.Redis     `mapstructure:"redis"`
	API              config.API       `mapstructure:"api"`
	Screener         Screener         `mapstructure:"screener"`
	Monitoring       Monitoring       `mapstructure:"monitoring"`
	Polygon          Polygon          `mapstructure:"polygon"`
	EarningsCalendar EarningsCalendar `mapstructure:"earnings_calendar"`
	Gemini           Gemini           `mapstructure:"gemini"`
	AI               AI               `mapstructure:"ai"`
	Telegram         Telegram         `mapstructure:"telegram"`
}

// Load loads the screener configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
