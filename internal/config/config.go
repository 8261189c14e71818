// Package config loads the panel's static configuration from a YAML file
// with PANEL_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full panel configuration. Failure to load it at startup is
// the one fatal error in the process.
type Config struct {
	HTTP  HTTPConfig  `mapstructure:"http"`
	WS    WSConfig    `mapstructure:"ws"`
	AMI   AMIConfig   `mapstructure:"ami"`
	Auth  AuthConfig  `mapstructure:"auth"`
	Stats StatsConfig `mapstructure:"stats"`
}

// HTTPConfig covers the page/API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// WSConfig covers the operator websocket listener.
type WSConfig struct {
	Addr string `mapstructure:"addr"`
}

// AMIConfig covers the exchange control channel.
type AMIConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Secret   string `mapstructure:"secret"`
}

// AuthConfig covers operator accounts and HTTP session tokens.
type AuthConfig struct {
	UsersFile string        `mapstructure:"users_file"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// StatsConfig covers the periodic statistics broadcast and the scheduled
// counter reset. ResetSchedule is a cron expression; empty disables it.
type StatsConfig struct {
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
	ResetSchedule     string        `mapstructure:"reset_schedule"`
}

// Load reads the config file (optional; defaults apply without one) plus
// PANEL_* environment variables, e.g. PANEL_AMI_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("ws.addr", ":8080")
	v.SetDefault("ami.addr", "localhost:5038")
	v.SetDefault("ami.username", "operator")
	// Secrets default empty so env overrides bind even without a config file.
	v.SetDefault("ami.secret", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.users_file", "config/users.json")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("stats.broadcast_interval", 30*time.Second)
	// Scheduled resets are opt-in; by default counters only clear through
	// the reset endpoint.
	v.SetDefault("stats.reset_schedule", "")

	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
