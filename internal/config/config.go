package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBDriver      string        `mapstructure:"DB_DRIVER"`
	DBHost        string        `mapstructure:"DB_HOST"`
	DBPort        string        `mapstructure:"DB_PORT"`
	DBUser        string        `mapstructure:"DB_USER"`
	DBPassword    string        `mapstructure:"DB_PASSWORD"`
	DBName        string        `mapstructure:"DB_NAME"`
	DBPath        string        `mapstructure:"DB_PATH"`
	RedisHost     string        `mapstructure:"REDIS_HOST"`
	RedisPort     string        `mapstructure:"REDIS_PORT"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	BoardCacheTTL time.Duration `mapstructure:"BOARD_CACHE_TTL"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogFile       string        `mapstructure:"LOG_FILE"`
	CORSOrigins   string        `mapstructure:"CORS_ORIGINS"`
}

var defaults = map[string]any{
	"DB_DRIVER":       "mysql",
	"DB_HOST":         "localhost",
	"DB_PORT":         "3306",
	"DB_USER":         "boarduser",
	"DB_PASSWORD":     "boardpassword",
	"DB_NAME":         "project_board",
	"DB_PATH":         "project_board.db",
	"REDIS_HOST":      "localhost",
	"REDIS_PORT":      "6379",
	"REDIS_PASSWORD":  "",
	"BOARD_CACHE_TTL": "5m",
	"SESSION_SECRET":  "default-secret-key-change-me",
	"GIN_MODE":        "debug",
	"SERVER_PORT":     "8080",
	"OPENAI_API_KEY":  "",
	"LOG_LEVEL":       "info",
	"LOG_FILE":        "",
	"CORS_ORIGINS":    "*",
}

// Load reads configuration from the environment, falling back to an optional
// config file. A missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".env")
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// RedisAddr returns host:port for the Redis server
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// AllowedOrigins splits CORS_ORIGINS on commas
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}
