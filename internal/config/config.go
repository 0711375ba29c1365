package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level leaderboard service configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	GitHub    GitHub    `mapstructure:"github"`
	Sonar     Sonar     `mapstructure:"sonar"`
	Cache     Cache     `mapstructure:"cache"`
	Redis     Redis     `mapstructure:"redis"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

// Server defines the HTTP listener and local storage settings.
type Server struct {
	Port           int      `mapstructure:"port"`
	DataDir        string   `mapstructure:"data_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GitHub defines the GitHub API client settings.
type GitHub struct {
	Token          string   `mapstructure:"token"`
	Organization   string   `mapstructure:"organization"`
	ExcludedLogins []string `mapstructure:"excluded_logins"`
}

// Sonar defines the SonarCloud API client settings.
type Sonar struct {
	Token        string `mapstructure:"token"`
	Organization string `mapstructure:"organization"`
}

// Cache defines the TTL for cached dashboard responses.
type Cache struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Redis defines the optional Redis connection for rate limiting.
// An empty address selects the in-memory fallback limiter.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimit defines per-minute request budgets.
type RateLimit struct {
	WebhookPerMin int `mapstructure:"webhook_per_min"`
	IPPerMin      int `mapstructure:"ip_per_min"`
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Environment variables
// prefixed with LEADERBOARD_ override file values, e.g.
// LEADERBOARD_GITHUB_TOKEN overrides github.token.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("github.token", "")
	v.SetDefault("github.organization", "Learnathon-By-Geeky-Solutions")
	v.SetDefault("github.excluded_logins", []string{})
	v.SetDefault("sonar.token", "")
	v.SetDefault("sonar.organization", "learnathon-by-geeky-solutions")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rate_limit.webhook_per_min", 30)
	v.SetDefault("rate_limit.ip_per_min", 60)

	v.SetEnvPrefix("LEADERBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("leaderboard")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
