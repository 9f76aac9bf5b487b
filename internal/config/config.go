// Package config resolves recontk configuration from defaults, an
// optional config file (~/.recontk/config.yaml) and environment
// variables, highest priority last. Credentials are read here once, at
// startup, so tools never touch the environment themselves.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidCacheBounds indicates a negative cache size or TTL.
	ErrInvalidCacheBounds = errors.New("invalid cache bounds")

	// ErrInvalidDorkDelays indicates min/max dork delays that are
	// negative or inverted.
	ErrInvalidDorkDelays = errors.New("invalid dork delays")

	// ErrInvalidPortRange indicates a default scan range outside
	// 1..65535 or inverted.
	ErrInvalidPortRange = errors.New("invalid port range")

	// ErrInvalidMaxHops indicates a non-positive traceroute hop bound.
	ErrInvalidMaxHops = errors.New("invalid max hops")
)

// Config is the typed configuration every component is constructed
// from. Secrets stay out of String/log output.
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json"`
	LogFile  string `mapstructure:"log_file"` // empty: stderr

	// Query cache bounds; zero disables the respective bound.
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`

	// Network tool
	DNSServer  string        `mapstructure:"dns_server"` // upstream for dig
	DNSTimeout time.Duration `mapstructure:"dns_timeout"`

	// Credentials (env: SHODAN_API_KEY, IPINFO_ACCESS_TOKEN)
	ShodanAPIKey string `mapstructure:"shodan_api_key"`
	IPInfoToken  string `mapstructure:"ipinfo_access_token"`

	// Dorking tool
	DorkMinDelay   time.Duration `mapstructure:"dork_min_delay"`
	DorkMaxDelay   time.Duration `mapstructure:"dork_max_delay"`
	DorkMaxResults int           `mapstructure:"dork_max_results"`
	Dorks          []string      `mapstructure:"dorks"` // empty: built-in list

	// Active reconnaissance
	TracerouteMaxHops int           `mapstructure:"traceroute_max_hops"`
	ScanFromPort      int           `mapstructure:"scan_from_port"`
	ScanToPort        int           `mapstructure:"scan_to_port"`
	ScanTimeout       time.Duration `mapstructure:"scan_timeout"`

	// Audit sink. Empty DSN keeps the slog recorder; a Postgres DSN
	// switches to the database recorder.
	AuditDSN string `mapstructure:"audit_dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("cache_max_entries", 1024)
	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("dns_server", "8.8.8.8:53")
	v.SetDefault("dns_timeout", 5*time.Second)
	v.SetDefault("dork_min_delay", 10*time.Second)
	v.SetDefault("dork_max_delay", 15*time.Second)
	v.SetDefault("dork_max_results", 3)
	v.SetDefault("traceroute_max_hops", 20)
	v.SetDefault("scan_from_port", 1)
	v.SetDefault("scan_to_port", 1024)
	v.SetDefault("scan_timeout", 2*time.Second)
}

// Load resolves the configuration. A missing config file is fine;
// unreadable or invalid values are not.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.recontk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECONTK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential variables keep their conventional names.
	_ = v.BindEnv("shodan_api_key", "SHODAN_API_KEY")
	_ = v.BindEnv("ipinfo_access_token", "IPINFO_ACCESS_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate range-checks everything that has a range.
func (c *Config) Validate() error {
	if c.CacheMaxEntries < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("%w: max_entries=%d ttl=%s", ErrInvalidCacheBounds, c.CacheMaxEntries, c.CacheTTL)
	}
	if c.DorkMinDelay < 0 || c.DorkMaxDelay < c.DorkMinDelay {
		return fmt.Errorf("%w: min=%s max=%s", ErrInvalidDorkDelays, c.DorkMinDelay, c.DorkMaxDelay)
	}
	if c.ScanFromPort < 1 || c.ScanToPort > 65535 || c.ScanToPort < c.ScanFromPort {
		return fmt.Errorf("%w: %d-%d", ErrInvalidPortRange, c.ScanFromPort, c.ScanToPort)
	}
	if c.TracerouteMaxHops < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHops, c.TracerouteMaxHops)
	}
	return nil
}
