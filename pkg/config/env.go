package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvConfig      = "FEO_CONFIG"
	EnvHost        = "FEO_HOST"
	EnvPort        = "FEO_PORT"
	EnvDebug       = "FEO_DEBUG"
	EnvTemplates   = "FEO_TEMPLATES"
	EnvStatic      = "FEO_STATIC"
	EnvMaxBodySize = "FEO_MAX_BODY_SIZE"
	EnvLogLevel    = "FEO_LOG_LEVEL"
	EnvLogFormat   = "FEO_LOG_FORMAT"
)

// ApplyEnv overlays FEO_* environment variables onto cfg. Only variables
// that are set are applied. Malformed numbers and booleans are errors.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Port = port
	}

	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}

	if v, ok := os.LookupEnv(EnvTemplates); ok {
		cfg.TemplatesDir = v
	}

	if v, ok := os.LookupEnv(EnvStatic); ok {
		cfg.StaticDir = v
	}

	if v := os.Getenv(EnvMaxBodySize); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid size %q", EnvMaxBodySize, v)
		}
		cfg.MaxBodySize = size
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}

	return nil
}

// ParseBool accepts the usual spellings of a flag: 1/0, true/false,
// yes/no and on/off in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "t", "y":
		return true, nil
	case "0", "false", "no", "off", "f", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
