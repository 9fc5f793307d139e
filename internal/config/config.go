package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Port     int    `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	DBEngine string `mapstructure:"DB_ENGINE"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// AuthIssuer is the identity provider's OIDC issuer. Empty selects HS256 dev tokens.
	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	IGDBClientID     string        `mapstructure:"IGDB_CLIENT_ID"`
	IGDBClientSecret string        `mapstructure:"IGDB_CLIENT_SECRET"`
	IGDBBaseURL      string        `mapstructure:"IGDB_BASE_URL"`
	IGDBTokenURL     string        `mapstructure:"IGDB_TOKEN_URL"`
	IGDBRateLimit    float64       `mapstructure:"IGDB_RATE_LIMIT"`
	IGDBTimeout      time.Duration `mapstructure:"IGDB_TIMEOUT"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	LogLevel         string `mapstructure:"LOG_LEVEL"`
	LogConsolePretty bool   `mapstructure:"LOG_CONSOLE_PRETTY"`
	LogFilePath      string `mapstructure:"LOG_FILE_PATH"`
}

// IGDBEnabled reports whether IGDB credentials are configured.
func (c *Config) IGDBEnabled() bool {
	return c.IGDBClientID != "" && c.IGDBClientSecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DB_ENGINE", EnginePostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_ISSUER", "")
	v.SetDefault("AUTH_AUDIENCE", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("IGDB_CLIENT_ID", "")
	v.SetDefault("IGDB_CLIENT_SECRET", "")
	v.SetDefault("IGDB_BASE_URL", "https://api.igdb.com/v4")
	v.SetDefault("IGDB_TOKEN_URL", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("IGDB_RATE_LIMIT", 4)
	v.SetDefault("IGDB_TIMEOUT", 10*time.Second)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", time.Hour)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_CONSOLE_PRETTY", false)
	v.SetDefault("LOG_FILE_PATH", "")
}

// LoadConfig loads the configuration from a .env file in path and environment variables,
// then validates it. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}

	if err = validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// ReadConfig loads the configuration without validating it. Commands that only
// need a subset of the settings use it directly.
func ReadConfig(path string) (*Config, error) {
	if path == "" {
		path = "."
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	setDefaults(v)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read .env file")
		}

		log.Debug().Msg(".env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	cfg.DBEngine = strings.ToLower(cfg.DBEngine)

	return &cfg, nil
}

func validate(c *Config) error {
	if c.Port == 0 {
		return ErrPortCanNotBeZero
	}

	if c.DatabaseURL == "" {
		return ErrEmptyDatabaseURL
	}

	if c.DBEngine != EnginePostgres && c.DBEngine != EngineSQLite {
		return ErrUnknownDBEngine
	}

	if c.AuthIssuer == "" && c.JWTSecret == "" {
		return ErrNoTokenVerifier
	}

	if c.IGDBRateLimit <= 0 {
		c.IGDBRateLimit = 4
	}

	return nil
}
