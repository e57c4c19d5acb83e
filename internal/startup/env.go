package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"image-resize-ai/internal/logging"
)

// ConfigFileEnv names the variable pointing at an optional YAML config file.
const ConfigFileEnv = "CONFIG_FILE"

// loadEnvironment populates the process environment from .env and then
// from the YAML file named by CONFIG_FILE. Neither overrides a variable
// that is already set, so real environment variables always win.
func loadEnvironment() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("  Could not load .env: %v", err)
	} else if err == nil {
		logging.Info("  Loaded variables from .env")
	}

	path := os.Getenv(ConfigFileEnv)
	if path == "" {
		return nil
	}
	applied, err := applyConfigFile(path)
	if err != nil {
		return err
	}
	logging.Info("  Loaded %d setting(s) from %s", applied, path)
	return nil
}

// applyConfigFile reads a flat YAML mapping of variable names to values and
// sets each one that is not already in the environment. Keys are
// case-insensitive; nested mappings are rejected.
func applyConfigFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse config file %s: %w", path, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	applied := 0
	for _, k := range keys {
		name := strings.ToUpper(strings.TrimSpace(k))
		var value string
		switch v := raw[k].(type) {
		case nil:
			continue
		case string:
			value = v
		case bool, int, int64, uint64, float64:
			value = fmt.Sprint(v)
		default:
			return applied, fmt.Errorf("config file %s: %s must be a scalar", path, k)
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		applied++
	}
	return applied, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go durations ("90s", "5m") and bare seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// maskSecret shows only that a secret is present.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}
