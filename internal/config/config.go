package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	Security   SecurityConfig  `mapstructure:"security"`
	Display    DisplayConfig   `mapstructure:"display"`
	Receipts   ReceiptsConfig  `mapstructure:"receipts"`
	Log        LogConfig       `mapstructure:"log"`
	Accounts   []AccountConfig `mapstructure:"accounts"`
	ConfigPath string          `mapstructure:"-"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type SecurityConfig struct {
	PINSecret string `mapstructure:"pin_secret"`
}

type DisplayConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

type ReceiptsConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AccountConfig is an account provisioned at startup.
type AccountConfig struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
	PIN  string `mapstructure:"pin"`
	// OpeningBalance is a decimal string such as "100.00"; empty means zero.
	OpeningBalance string `mapstructure:"opening_balance"`
}

func NewDefault() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Metrics:  MetricsConfig{Addr: ":9090"},
		Security: SecurityConfig{PINSecret: ""},
		Display:  DisplayConfig{CurrencySymbol: "Rs."},
		Receipts: ReceiptsConfig{Workers: 2, QueueSize: 1000},
		Log:      LogConfig{Level: "info"},
		Accounts: []AccountConfig{
			{ID: 180903, Name: "Sara", PIN: "1234"},
			{ID: 171102, Name: "Sarim", PIN: "4321"},
		},
	}
}

// Load reads cfgFile (or ./ledger.yaml when empty) and LEDGER_* environment
// variables on top of the defaults. A missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	def := NewDefault()
	v.SetDefault("http.addr", def.HTTP.Addr)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("security.pin_secret", def.Security.PINSecret)
	v.SetDefault("display.currency_symbol", def.Display.CurrencySymbol)
	v.SetDefault("receipts.workers", def.Receipts.Workers)
	v.SetDefault("receipts.queue_size", def.Receipts.QueueSize)
	v.SetDefault("log.level", def.Log.Level)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	cfg := NewDefault()
	if v.IsSet("accounts") {
		cfg.Accounts = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Security.PINSecret == "" {
		return nil, fmt.Errorf("security.pin_secret must be set (LEDGER_SECURITY_PIN_SECRET)")
	}

	return cfg, nil
}
