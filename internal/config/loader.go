package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CHICANE_CONFIG is set
//  3. env (prefix CHICANE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CHICANE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: CHICANE_ADDR, CHICANE_QUEUE_SIZE, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CHICANE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "chicane_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.LookupTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: lookup_timeout_ms must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(cfg.Stages))
	for _, sc := range cfg.Stages {
		if sc.ID == "" {
			return nil, fmt.Errorf("%w: stage with empty id", ErrInvalidConfig)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("%w: duplicate stage id %q", ErrInvalidConfig, sc.ID)
		}
		seen[sc.ID] = true
		if _, err := sc.View(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
