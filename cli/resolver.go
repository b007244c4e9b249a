package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// loader builds a resolver from a configuration file.
type loader = kong.ConfigurationLoader

// loadYAML is a [kong.ConfigurationLoader] for YAML configuration files.
//
// Nested mappings flatten to hyphenated flag names, so both of these set
// --log-level:
//
//	log-level: debug
//
//	log:
//	  level: debug
//
// An empty file resolves nothing.
func loadYAML(r io.Reader) (kong.Resolver, error) {
	raw := map[string]any{}

	err := yaml.NewDecoder(r).Decode(&raw)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return flatten(raw), nil
}

// loadTOML is a [kong.ConfigurationLoader] for TOML configuration files.
// Tables flatten like YAML mappings:
//
//	[log]
//	level = "debug"
func loadTOML(r io.Reader) (kong.Resolver, error) {
	raw := map[string]any{}

	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	return flatten(raw), nil
}

// loadJSON is a [kong.ConfigurationLoader] for JSON configuration files.
func loadJSON(r io.Reader) (kong.Resolver, error) { return kong.JSON(r) }

// config implements [kong.Resolver] over flattened configuration values.
type config map[string]any

// flatten converts nested tables into a config keyed by hyphen-joined paths.
func flatten(raw map[string]any) config {
	out := config{}

	var walk func(prefix string, m map[string]any)

	walk = func(prefix string, m map[string]any) {
		for key, val := range m {
			if prefix != "" {
				key = prefix + "-" + key
			}

			if sub, ok := val.(map[string]any); ok {
				walk(key, sub)

				continue
			}

			out[key] = flagValue(val)
		}
	}

	walk("", raw)

	return out
}

// flagValue converts a decoded configuration value into a form kong's
// mappers accept. Kong parses numbers from strings, and lists from
// comma-separated strings.
func flagValue(val any) any {
	switch v := val.(type) {
	case nil, bool, string:
		return v

	case int64:
		return strconv.FormatInt(v, 10)

	case uint64:
		return strconv.FormatUint(v, 10)

	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)

	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = fmt.Sprint(flagValue(e))
		}

		return strings.Join(parts, ",")

	default:
		return fmt.Sprint(v)
	}
}

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver]. Flags may be written with hyphens or
// underscores.
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if value, ok := c[flag.Name]; ok {
		return value, nil
	}

	if value, ok := c[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}
