package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Flipside Flipside `mapstructure:"flipside"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Output   Output   `mapstructure:"output"`
}

// Flipside holds the configuration for the Flipside query API.
type Flipside struct {
	ApiKey          string  `mapstructure:"apiKey"`
	BaseURL         string  `mapstructure:"base_url"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	PollIntervalSec int     `mapstructure:"poll_interval_sec"`
	MaxPollAttempts int     `mapstructure:"max_poll_attempts"`
	PageSize        int     `mapstructure:"page_size"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the run-history database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Output holds the configuration for rendered bubble map artifacts.
type Output struct {
	Dir      string `mapstructure:"dir"`
	Filename string `mapstructure:"filename"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("flipside.base_url", "https://api-v2.flipsidecrypto.xyz")
	viper.SetDefault("flipside.rate_limit", 5) // requests per second
	viper.SetDefault("flipside.rate_limit_burst", 2)
	viper.SetDefault("flipside.poll_interval_sec", 2)
	viper.SetDefault("flipside.max_poll_attempts", 90)
	viper.SetDefault("flipside.page_size", 10000)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "bubblemap.db")
	viper.SetDefault("output.dir", "maps")
	viper.SetDefault("output.filename", "bubblemap.html")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
