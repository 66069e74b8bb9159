package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ADVENTURE_SERVER_PORT
const EnvPrefix = "ADVENTURE"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Debug exposes error detail in responses and turns on template reload
	Debug      bool             `mapstructure:"debug"`
	Server     ServerConfig     `mapstructure:"server"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Static     StaticConfig     `mapstructure:"static"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TemplatesConfig struct {
	Dir      string `mapstructure:"dir"`
	Index    string `mapstructure:"index"`
	Embedded bool   `mapstructure:"embedded"`
}

type StaticConfig struct {
	Dir      string `mapstructure:"dir"`
	Embedded bool   `mapstructure:"embedded"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

type MonitoringConfig struct {
	// Addr is the admin listener for /health and /metrics; empty disables it
	Addr            string        `mapstructure:"addr"`
	CollectInterval time.Duration `mapstructure:"collect_interval"`
}

// flag name -> viper key
var flagKeys = map[string]string{
	"debug":           "debug",
	"host":            "server.host",
	"port":            "server.port",
	"templates":       "templates.dir",
	"static":          "static.dir",
	"embedded":        "templates.embedded",
	"monitoring-addr": "monitoring.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Same bind address as the Flask development server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("templates.dir", "templates")
	v.SetDefault("templates.index", "index.html")
	v.SetDefault("templates.embedded", false)

	v.SetDefault("static.dir", "static")
	v.SetDefault("static.embedded", false)

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("rate_limit.requests_per_minute", 0)
	v.SetDefault("rate_limit.trust_proxy_headers", false)

	v.SetDefault("monitoring.addr", "")
	v.SetDefault("monitoring.collect_interval", 10*time.Second)
}

// NewFlagSet returns the command-line flags understood by Load
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to config file (default: ./config.yaml if present)")
	fs.Bool("debug", false, "Enable debug mode (error detail, template reload, live reload)")
	fs.String("host", "127.0.0.1", "Interface to bind")
	fs.Int("port", 5000, "Port to listen on")
	fs.String("templates", "templates", "Templates directory")
	fs.String("static", "static", "Static assets directory")
	fs.Bool("embedded", false, "Serve the templates compiled into the binary")
	fs.String("monitoring-addr", "", "Address for the /health and /metrics listener")
	return fs
}

// Load builds the configuration from defaults, config.yaml, .env, the
// environment and command-line args, in increasing order of precedence.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("server")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// .env only seeds the process environment; real env vars win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Templates.Index == "" {
		return fmt.Errorf("%w: templates.index is empty", ErrInvalidConfig)
	}
	if !c.Templates.Embedded && c.Templates.Dir == "" {
		return fmt.Errorf("%w: templates.dir is empty", ErrInvalidConfig)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: rate_limit.requests_per_minute must not be negative", ErrInvalidConfig)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalidConfig)
	}
	if c.Monitoring.Addr != "" && c.Monitoring.CollectInterval <= 0 {
		return fmt.Errorf("%w: monitoring.collect_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the public listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Mode returns a human-readable name for the debug toggle
func (c *Config) Mode() string {
	if c.Debug {
		return "debug"
	}
	return "release"
}
