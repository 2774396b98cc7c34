package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel      int    `env:"PAPYR_LOG_LEVEL" envDefault:"0"`
	Port          string `env:"PAPYR_PORT" envDefault:"3030"`
	DataDir       string `env:"PAPYR_DATA_DIR" envDefault:"./data"`
	IdentityField string `env:"PAPYR_IDENTITY_FIELD" envDefault:"email"`
	TokenSecret   string `env:"PAPYR_TOKEN_SECRET" envDefault:"This is not a production server"`
	Throttle      bool   `env:"PAPYR_THROTTLE" envDefault:"false"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
