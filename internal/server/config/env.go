package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "AUTHAPI_"

// parseEnv overlays AUTHAPI_* variables. Unset variables leave the field
// untouched. A nil environ reads the process environment.
func parseEnv(config *Config, environ map[string]string) error {
	opts := env.Options{Prefix: envPrefix, Environment: environ}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
