package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"resi-tracker/internal/core/proxy"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// LogFile is an optional extra log destination next to stderr.
	LogFile string `mapstructure:"LOG_FILE"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Telegram holds the chat bot configuration.
	Telegram TelegramConfig `mapstructure:",squash"`

	// CekResi holds the aggregator and browser configuration.
	CekResi CekResiConfig `mapstructure:",squash"`

	// Proxy holds the optional upstream proxy for the browser.
	Proxy ProxyConfig `mapstructure:",squash"`

	// Cache holds the optional Redis result cache.
	Cache CacheConfig `mapstructure:",squash"`

	// Metrics holds the Prometheus configuration.
	Metrics MetricsConfig `mapstructure:",squash"`
}

// TelegramConfig holds the bot credentials. An empty token disables the bot.
type TelegramConfig struct {
	Token       string        `mapstructure:"TELEGRAM_TOKEN"`
	PollTimeout time.Duration `mapstructure:"TELEGRAM_POLL_TIMEOUT" default:"10s"`
}

// Enabled reports whether the bot should be started.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// CekResiConfig holds the aggregator endpoint and browser settings.
type CekResiConfig struct {
	// BaseURL is the aggregator search page.
	BaseURL string `mapstructure:"CEKRESI_BASE_URL" default:"https://cekresi.com/" required:"true"`
	// WaitTimeout bounds each wait for dynamic content.
	WaitTimeout time.Duration `mapstructure:"CEKRESI_WAIT_TIMEOUT" default:"10s"`
	// LookupTimeout bounds a whole lookup.
	LookupTimeout time.Duration `mapstructure:"CEKRESI_LOOKUP_TIMEOUT" default:"60s"`
	// BrowserBin overrides the Chromium binary.
	BrowserBin string `mapstructure:"BROWSER_BIN"`
	// Headless runs Chromium without a window.
	Headless bool `mapstructure:"BROWSER_HEADLESS" default:"true"`
	// Stealth opens pages with anti-detection patches.
	Stealth bool `mapstructure:"BROWSER_STEALTH" default:"true"`
}

// ProxyConfig holds the upstream proxy details.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED"`
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USERNAME"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// Settings converts the configuration to proxy.Settings.
func (p ProxyConfig) Settings() proxy.Settings {
	return proxy.Settings{
		Enabled:  p.Enabled,
		Hostname: p.Hostname,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
	}
}

// CacheConfig holds the Redis cache settings. Caching is off unless both are set.
type CacheConfig struct {
	RedisURL string        `mapstructure:"REDIS_URL"`
	TTL      time.Duration `mapstructure:"CACHE_TTL" default:"0s"`
}

// Enabled reports whether lookups should be cached.
func (c CacheConfig) Enabled() bool {
	return c.RedisURL != "" && c.TTL > 0
}

// MetricsConfig holds the Prometheus settings.
type MetricsConfig struct {
	Namespace string `mapstructure:"METRICS_NAMESPACE" default:"cekresi"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
