package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. YAML file named by EVENTREG_CONFIG, if set
//  3. environment variables with the EVENTREG_ prefix
//
// Env keys map to koanf tags by lowercasing and stripping the prefix, so
// EVENTREG_DB_HOST overrides db_host.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("EVENTREG_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("EVENTREG_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "eventreg_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("webhook_secret must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt_secret must be set")
	}
	if cfg.PresignTTLSeconds <= 0 {
		return nil, errors.New("presign_ttl_seconds must be positive")
	}
	return &cfg, nil
}
