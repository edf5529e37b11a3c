package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/secret"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "NPGSQLREST_"

// Load assembles the configuration: defaults, then the TOML file at path
// (skipped when empty), then environment overrides, then secret resolution
// for credential fields. Unknown file keys are returned as warnings, not
// errors. The returned config is validated.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (*Config, []string, error) {
	cfg := Default()
	var warnings []string

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		warnings = unknownKeyWarnings(data)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	if cfg.Database.ConnString != "" {
		resolved, err := resolver.ResolveValue(ctx, cfg.Database.ConnString)
		if err != nil {
			return nil, nil, fmt.Errorf("config: database.connection_string: %w", err)
		}
		cfg.Database.ConnString = resolved
	}
	if cfg.Auth.JWT.Secret != "" {
		resolved, err := resolver.ResolveValue(ctx, cfg.Auth.JWT.Secret)
		if err != nil {
			return nil, nil, fmt.Errorf("config: auth.jwt.secret: %w", err)
		}
		cfg.Auth.JWT.Secret = resolved
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, warnings, nil
}

// unknownKeyWarnings re-decodes the document strictly into a throwaway value
// to surface keys the schema does not know. The lenient pass already
// validated syntax, so only strict errors can surface here.
func unknownKeyWarnings(data []byte) []string {
	var probe Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(&probe)
	if err == nil {
		return nil
	}
	var strict *toml.StrictMissingError
	if !errors.As(err, &strict) {
		return nil
	}
	warnings := make([]string, 0, len(strict.Errors))
	for _, de := range strict.Errors {
		if key := strings.Join(de.Key(), "."); key != "" {
			warnings = append(warnings, "unknown configuration key: "+key)
		} else {
			warnings = append(warnings, de.Error())
		}
	}
	return warnings
}
