package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Account  AccountConfig  `mapstructure:"account"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	KIS      KISConfig      `mapstructure:"kis"`
	Cron     CronConfig     `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// TradingConfig holds the broker credentials and the sandbox switch.
// AppKey/AppSecret are normally supplied through TRADER_TRADING_APP_KEY /
// TRADER_TRADING_APP_SECRET rather than the YAML file.
type TradingConfig struct {
	Sandbox   bool   `mapstructure:"sandbox"`
	AppKey    string `mapstructure:"app_key"`
	AppSecret string `mapstructure:"app_secret"`
	// HtsID enables the realtime execution-notice stream when set.
	HtsID string `mapstructure:"hts_id"`
}

type AccountConfig struct {
	CANO       string `mapstructure:"cano"`
	AcntPrdtCd string `mapstructure:"acnt_prdt_cd"`
	ExchangeCd string `mapstructure:"exchange"`
	CurrencyCd string `mapstructure:"currency"`
}

// StrategyConfig carries the target allocation weights, instrument code ->
// fraction of total portfolio value. Fractions are taken as-is: they are not
// required to sum to 1 and are never normalized.
type StrategyConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`
}

type KISConfig struct {
	RealBaseURL     string        `mapstructure:"real_base_url"`
	SandboxBaseURL  string        `mapstructure:"sandbox_base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerSec int           `mapstructure:"rate_limit_per_sec"`
	WSURL           string        `mapstructure:"ws_url"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Rebalance    string `mapstructure:"rebalance"`
	TokenRefresh string `mapstructure:"token_refresh"`
}

// BaseURL picks the production or sandbox gateway host.
func (c Config) BaseURL() string {
	if c.Trading.Sandbox {
		return c.KIS.SandboxBaseURL
	}
	return c.KIS.RealBaseURL
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("trading.sandbox", true)
	v.SetDefault("account.exchange", "NASD")
	v.SetDefault("account.currency", "USD")
	v.SetDefault("kis.real_base_url", "https://openapi.koreainvestment.com:9443")
	v.SetDefault("kis.sandbox_base_url", "https://openapivts.koreainvestment.com:29443")
	v.SetDefault("kis.timeout", "15s")
	v.SetDefault("kis.rate_limit_per_sec", 15)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.rebalance", "@every 10m")
	v.SetDefault("cron.token_refresh", "@every 6h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Account.CANO) == "" {
		return fmt.Errorf("config: account.cano is required")
	}
	if strings.TrimSpace(c.Account.AcntPrdtCd) == "" {
		return fmt.Errorf("config: account.acnt_prdt_cd is required")
	}
	for code, w := range c.Strategy.Weights {
		if w < 0 {
			return fmt.Errorf("config: strategy.weights[%s] is negative", code)
		}
	}
	return nil
}
