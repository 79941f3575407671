// Package config loads service settings from defaults, an optional yaml
// file, an optional .env file and the process environment, in that order
// of increasing priority.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "INVENTORY_"
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
)

type Config struct {
	Server struct {
		Port    int `koanf:"port" validate:"min=1,max=65535"`
		Timeout struct {
			Read       time.Duration `koanf:"read" validate:"gt=0"`
			Write      time.Duration `koanf:"write" validate:"gt=0"`
			Idle       time.Duration `koanf:"idle" validate:"gt=0"`
			ReadHeader time.Duration `koanf:"readheader" validate:"gt=0"`
			Shutdown   time.Duration `koanf:"shutdown" validate:"gt=0"`
		} `koanf:"timeout"`
	} `koanf:"server"`

	Database struct {
		Driver       string        `koanf:"driver" validate:"oneof=sqlite postgres memory"`
		DSN          string        `koanf:"dsn"`
		QueryTimeout time.Duration `koanf:"querytimeout" validate:"gt=0"`
	} `koanf:"database"`

	Cache struct {
		Enabled bool `koanf:"enabled"`
	} `koanf:"cache"`

	Log struct {
		Level       string `koanf:"level" validate:"oneof=debug info warn error"`
		Development bool   `koanf:"development"`
	} `koanf:"log"`

	Metrics struct {
		Enabled bool   `koanf:"enabled"`
		Token   string `koanf:"token"`
	} `koanf:"metrics"`

	RateLimit struct {
		Limit  int           `koanf:"limit" validate:"gte=0"`
		Window time.Duration `koanf:"window" validate:"gt=0"`
	} `koanf:"ratelimit"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readheader": "5s",
		"server.timeout.shutdown":   "10s",
		"database.driver":           "sqlite",
		"database.dsn":              "inventario.db",
		"database.querytimeout":     "3s",
		"cache.enabled":             true,
		"log.level":                 "info",
		"log.development":           false,
		"metrics.enabled":           false,
		"metrics.token":             "",
		"ratelimit.limit":           30,
		"ratelimit.window":          "1m",
	}
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server.port=%d ", c.Server.Port)
	fmt.Fprintf(&b, "server.timeout.read=%v server.timeout.write=%v server.timeout.idle=%v ",
		c.Server.Timeout.Read, c.Server.Timeout.Write, c.Server.Timeout.Idle)
	fmt.Fprintf(&b, "database.driver=%s database.dsn=%s ", c.Database.Driver, maskDSN(c.Database.DSN))
	fmt.Fprintf(&b, "cache.enabled=%t log.level=%s metrics.enabled=%t ratelimit=%d/%v",
		c.Cache.Enabled, c.Log.Level, c.Metrics.Enabled, c.RateLimit.Limit, c.RateLimit.Window)
	return b.String()
}

// Validate checks field ranges and the rules that span fields.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn must name the sqlite file")
		}
	case "postgres":
		if !strings.HasPrefix(c.Database.DSN, "postgres://") && !strings.HasPrefix(c.Database.DSN, "postgresql://") {
			return fmt.Errorf("database.dsn must start with 'postgres://': %s", maskDSN(c.Database.DSN))
		}
	}
	if c.Metrics.Enabled && c.Metrics.Token == "" {
		return errors.New("metrics.token is required when metrics are enabled")
	}
	return nil
}

// Load reads configFile and envFile when they exist; missing files are not
// an error. Environment variables use the INVENTORY_ prefix and underscores
// as separators, e.g. INVENTORY_DATABASE_DSN.
func Load(configFile, envFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", configFile, err)
			}
		}
	}

	if envFile != "" {
		if envFileMap, err := godotenv.Read(envFile); err == nil {
			envMap := make(map[string]any, len(envFileMap))
			for key, value := range envFileMap {
				if strings.HasPrefix(strings.ToUpper(key), EnvPrefix) {
					envMap[keyTransformer(key)] = value
				}
			}
			if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("WARN: error reading %s: %v", envFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", keyTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// keyTransformer maps INVENTORY_SERVER_TIMEOUT_READ to server.timeout.read.
func keyTransformer(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(key, "_", ".")
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "<not configured>"
	}
	if _, host, ok := strings.Cut(dsn, "@"); ok {
		return "****@" + host
	}
	return dsn
}
