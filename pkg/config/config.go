package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Optimization
	MaxLineups       int           `mapstructure:"MAX_LINEUPS"`
	SolveTimeout     time.Duration `mapstructure:"SOLVE_TIMEOUT"`
	DefaultMinUnique int           `mapstructure:"DEFAULT_MIN_UNIQUE"`

	// Simulation
	MaxTrials         int   `mapstructure:"MAX_TRIALS"`
	SimulationWorkers int   `mapstructure:"SIMULATION_WORKERS"`
	SimChunkSize      int   `mapstructure:"SIM_CHUNK_SIZE"`
	SimMemoryBudget   int64 `mapstructure:"SIM_MEMORY_BUDGET"`

	// Result cache
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8082")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/1")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("MAX_LINEUPS", 150)
	viper.SetDefault("SOLVE_TIMEOUT", "5s")
	viper.SetDefault("DEFAULT_MIN_UNIQUE", 1)
	viper.SetDefault("MAX_TRIALS", 1000000)
	viper.SetDefault("SIMULATION_WORKERS", 4)
	viper.SetDefault("SIM_CHUNK_SIZE", 2048)
	viper.SetDefault("SIM_MEMORY_BUDGET", 512*1024*1024)
	viper.SetDefault("CACHE_TTL", "24h")

	viper.AutomaticEnv()

	// Missing .env is fine, env vars and defaults cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper reads comma-separated env lists as a single string
	if len(cfg.CorsOrigins) == 1 && strings.Contains(cfg.CorsOrigins[0], ",") {
		cfg.CorsOrigins = strings.Split(cfg.CorsOrigins[0], ",")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxLineups <= 0 {
		return fmt.Errorf("MAX_LINEUPS must be positive, got %d", c.MaxLineups)
	}
	if c.MaxTrials <= 0 {
		return fmt.Errorf("MAX_TRIALS must be positive, got %d", c.MaxTrials)
	}
	if c.SimChunkSize <= 0 {
		return fmt.Errorf("SIM_CHUNK_SIZE must be positive, got %d", c.SimChunkSize)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
