package auth

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	JWTSecret string        `mapstructure:"JWTSecret"`
	TokenTTL  time.Duration `mapstructure:"TokenTTL"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("JWTSecret", "AUTH_JWT_SECRET")
	v.BindEnv("TokenTTL", "AUTH_TOKEN_TTL")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWTSecret is required")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	return &cfg, nil
}
