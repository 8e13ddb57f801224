package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the facility
// scheduler service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	AdminTokenHash   string
	MaxOccurrences   int
	DefaultOpenHour  int
	DefaultCloseHour int
	WindowCacheTTL   time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or malformed entry in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:facility.db?_foreign_keys=on",
		MaxOccurrences:   100,
		DefaultOpenHour:  8,
		DefaultCloseHour: 22,
		WindowCacheTTL:   30 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("FACILITY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FACILITY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FACILITY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if hash := strings.TrimSpace(os.Getenv("FACILITY_ADMIN_TOKEN_HASH")); hash == "" {
		missing = append(missing, "FACILITY_ADMIN_TOKEN_HASH")
	} else {
		cfg.AdminTokenHash = hash
	}

	if capValue := strings.TrimSpace(os.Getenv("FACILITY_MAX_OCCURRENCES")); capValue != "" {
		capLimit, err := strconv.Atoi(capValue)
		if err != nil || capLimit <= 0 {
			invalid = append(invalid, "FACILITY_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = capLimit
		}
	}

	openSet := false
	if openValue := strings.TrimSpace(os.Getenv("FACILITY_DEFAULT_OPEN_HOUR")); openValue != "" {
		open, err := strconv.Atoi(openValue)
		if err != nil || open < 0 || open > 23 {
			invalid = append(invalid, "FACILITY_DEFAULT_OPEN_HOUR")
		} else {
			cfg.DefaultOpenHour = open
			openSet = true
		}
	}

	if closeValue := strings.TrimSpace(os.Getenv("FACILITY_DEFAULT_CLOSE_HOUR")); closeValue != "" {
		closeHour, err := strconv.Atoi(closeValue)
		if err != nil || closeHour < 1 || closeHour > 24 || closeHour <= cfg.DefaultOpenHour {
			invalid = append(invalid, "FACILITY_DEFAULT_CLOSE_HOUR")
		} else {
			cfg.DefaultCloseHour = closeHour
		}
	} else if openSet && cfg.DefaultOpenHour >= cfg.DefaultCloseHour {
		invalid = append(invalid, "FACILITY_DEFAULT_OPEN_HOUR")
	}

	if ttlValue := strings.TrimSpace(os.Getenv("FACILITY_WINDOW_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FACILITY_WINDOW_CACHE_TTL")
		} else {
			cfg.WindowCacheTTL = ttl
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
