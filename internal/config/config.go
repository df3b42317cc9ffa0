// Package config loads and validates client configuration via Viper. Values
// come from defaults, an optional config file, a .env file and IMPRESSA_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"impressa/internal/constants"
)

// EnvPrefix namespaces every environment override, e.g. IMPRESSA_SERVER_URL.
const EnvPrefix = "IMPRESSA"

// Config captures all client configuration knobs.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`
	StatusLog StatusLogConfig `mapstructure:"statuslog"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// ServerConfig locates the backend API.
type ServerConfig struct {
	URL                string `mapstructure:"url"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// HTTPConfig tunes the API client. A zero timeout leaves requests unbounded.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// StreamConfig controls the notification socket.
type StreamConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Register         bool          `mapstructure:"register"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// LogConfig toggles zap development features and the session log file.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	SessionFile bool   `mapstructure:"session_file"`
}

// StatusLogConfig selects where status lines are kept.
type StatusLogConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig enables the Redis status store when Addr is set.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DashboardConfig controls the optional local status dashboard.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TUIConfig controls the terminal view.
type TUIConfig struct {
	Tail int `mapstructure:"tail"`
}

// Load builds a Config from disk and environment. path may be empty. A
// missing .env file is not an error.
func Load(path string) (Config, error) {
	LoadDotEnv()

	v := viper.New()
	return LoadWith(v, path)
}

// LoadDotEnv copies .env entries into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadWith reads configuration into the supplied viper instance so callers
// (the CLI) can bind flags before values are resolved.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Server.URL = strings.TrimSuffix(strings.TrimSpace(cfg.Server.URL), "/")
	if !v.IsSet("server.insecure_skip_verify") {
		cfg.Server.InsecureSkipVerify = isLocalTLS(cfg.Server.URL)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", constants.DefaultServerURL)
	v.SetDefault("http.timeout", "0s")
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.register", true)
	v.SetDefault("stream.handshake_timeout", constants.WSHandshakeTimeout.String())
	v.SetDefault("log.development", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.session_file", true)
	v.SetDefault("statuslog.redis.addr", "")
	v.SetDefault("statuslog.redis.username", "")
	v.SetDefault("statuslog.redis.password", "")
	v.SetDefault("statuslog.redis.db", 0)
	v.SetDefault("statuslog.redis.key_prefix", constants.DefaultRedisPrefix)
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.addr", constants.DefaultDashboardAddr)
	v.SetDefault("tui.tail", constants.DefaultTailSize)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url must be set")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.url must include a host")
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("http.timeout must be >= 0")
	}
	if c.Stream.HandshakeTimeout < 0 {
		return errors.New("stream.handshake_timeout must be >= 0")
	}
	if c.Dashboard.Enabled && c.Dashboard.Addr == "" {
		return errors.New("dashboard.addr must be set when the dashboard is enabled")
	}
	if c.TUI.Tail <= 0 {
		return errors.New("tui.tail must be > 0")
	}
	return nil
}

// isLocalTLS skips certificate checks for self-signed development backends.
func isLocalTLS(serverURL string) bool {
	if !strings.HasPrefix(serverURL, "https://") {
		return false
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
