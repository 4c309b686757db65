package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const DefaultServerAddr = ":8000"

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	RedisAddr      string
	SigningKey     []byte
	AllowedOrigins []string
	PresenceTTL    time.Duration
}

// EnvConfig carries the raw environment values before validation. The
// signing secret stays base64 encoded until NewConfig decodes it.
type EnvConfig struct {
	ServerAddr     string        `env:"CHAT_ADDR"`
	DatabaseDSN    string        `env:"CHAT_DATABASE_DSN"`
	RedisAddr      string        `env:"CHAT_REDIS_ADDR"`
	SigningSecret  string        `env:"CHAT_SIGNING_KEY"`
	AllowedOrigins []string      `env:"CHAT_ALLOWED_ORIGINS" envSeparator:","`
	PresenceTTL    time.Duration `env:"CHAT_PRESENCE_TTL"`
}

func ParseEnv() (EnvConfig, error) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return EnvConfig{}, fmt.Errorf("parse environment: %w", err)
	}

	return ec, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, redisAddr, base64Secret string,
	allowedOrigins []string, presenceTTL time.Duration) (*Config, error) {
	if serverAddr == "" {
		serverAddr = DefaultServerAddr
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if redisAddr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if presenceTTL < 0 {
		return nil, fmt.Errorf("presence TTL cannot be negative")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		RedisAddr:      redisAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		PresenceTTL:    presenceTTL,
	}, nil
}
