package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the upper-cased, underscore-separated flag name
// to form the environment variable for a setting (--video-codec ->
// VIDCOMPRESS_VIDEO_CODEC).
const EnvPrefix = "VIDCOMPRESS_"

// ApplySources layers the TOML file at path and then the environment onto
// flags that were not set on the command line. Precedence is therefore
// CLI > env > file > defaults. A missing file is an error only when
// required is true. getenv is usually os.Getenv.
func ApplySources(flags *pflag.FlagSet, path string, required bool, getenv func(string) string) error {
	changed := make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = true
	})

	if path != "" {
		values, err := loadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !required:
		case err != nil:
			return err
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, name := range keys {
			if name == ConfigFlag {
				return fmt.Errorf("config file %s: %q cannot be set from the file", path, name)
			}
			if flags.Lookup(name) == nil {
				return fmt.Errorf("config file %s: unknown setting %q", path, name)
			}
			if changed[name] {
				continue
			}
			if err := flags.Set(name, values[name]); err != nil {
				return fmt.Errorf("config file %s: %s: %w", path, name, err)
			}
		}
	}

	var envErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if envErr != nil || changed[f.Name] || f.Name == ConfigFlag {
			return
		}
		key := EnvName(f.Name)
		if v := getenv(key); v != "" {
			if err := flags.Set(f.Name, v); err != nil {
				envErr = fmt.Errorf("%s: %w", key, err)
			}
		}
	})
	return envErr
}

// EnvName returns the environment variable consulted for flag name.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// loadFile reads a TOML file into flag-name keyed strings. Tables are
// flattened, so [encoding] crf = 20 and crf = 20 are equivalent. Keys may use
// underscores in place of dashes.
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	out := make(map[string]string)
	if err := flatten(raw, out); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return out, nil
}

func flatten(in map[string]any, out map[string]string) error {
	for k, v := range in {
		name := strings.ReplaceAll(strings.ToLower(k), "_", "-")
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(val, out); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("setting %q: arrays are not supported", k)
		default:
			if _, dup := out[name]; dup {
				return fmt.Errorf("setting %q appears more than once", k)
			}
			out[name] = fmt.Sprint(val)
		}
	}
	return nil
}
