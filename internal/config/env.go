package config

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix marks environment variables that override config fields.
const EnvPrefix = "NBACK_"

// envKeys maps environment variable names to config keys.
var envKeys = map[string]string{
	"NBACK_N":             "n",
	"NBACK_SOUNDS":        "sounds",
	"NBACK_POSITIONS":     "positions",
	"NBACK_INTERVAL":      "interval",
	"NBACK_SEED":          "seed",
	"NBACK_OPPORTUNITIES": "opportunities",
	"NBACK_DATABASE":      "database",
}

// ReadEnv collects NBACK_* variables from the given .env files and then the
// process environment, later sources winning. Missing files are skipped.
func ReadEnv(files ...string) (map[string]string, error) {
	env := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, &LoadError{Code: ErrCodeEnv, Path: f, Message: err.Error()}
		}
		maps.Copy(env, filterPrefix(m))
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func filterPrefix(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, EnvPrefix) {
			out[k] = v
		}
	}
	return out
}

// ApplyEnv overrides fields from env. Unknown NBACK_* names are ignored.
// The result is not validated; call Validate afterwards.
func (c *Config) ApplyEnv(env map[string]string) error {
	for name, raw := range env {
		key, ok := envKeys[name]
		if !ok {
			continue
		}
		if err := c.set(key, raw); err != nil {
			return &LoadError{Code: ErrCodeEnv, Field: key, Message: name + ": " + err.Error()}
		}
	}
	return nil
}

func (c *Config) set(key, raw string) error {
	var err error
	switch key {
	case "n":
		c.N, err = strconv.Atoi(raw)
	case "sounds":
		c.Sounds, err = strconv.Atoi(raw)
	case "positions":
		c.Positions, err = strconv.Atoi(raw)
	case "interval":
		c.Interval, err = time.ParseDuration(raw)
	case "seed":
		c.Seed, err = strconv.ParseInt(raw, 10, 64)
	case "opportunities":
		c.Opportunities = raw
	case "database":
		c.Database = raw
	}
	return err
}

// Resolve builds the effective configuration: the file at path (or
// defaults when path is empty), then .env files and the environment, then
// validation.
func Resolve(path string, envFiles ...string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}

	env, err := ReadEnv(envFiles...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
