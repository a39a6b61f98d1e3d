package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const EnvPrefix = "DUO"

// Unprefixed names kept for compatibility with existing deployments.
var envAliases = map[string]string{
	"database-url": "DATABASE_URL",
	"jwt-secret":   "JWT_SECRET",
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Addr string

	DBDriver          string
	DatabaseURL       string
	AutoMigrate       bool
	SeedFile          string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	LogLevel       string
	LogDevelopment bool

	JWTSecret      string
	AllowedOrigins []string

	HubInboxSize     int
	ClientOutboxSize int
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	ShutdownTimeout  time.Duration
}

func Default() Config {
	return Config{
		Addr:              ":8080",
		DBDriver:          DriverPostgres,
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    10,
		DBConnMaxLifetime: 5 * time.Minute,
		LogLevel:          "info",
		HubInboxSize:      256,
		ClientOutboxSize:  16,
		WriteTimeout:      3 * time.Second,
		PingInterval:      30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			errs = multierr.Append(errs, fmt.Errorf("--database-url is required for the %s driver (env: DATABASE_URL)", c.DBDriver))
		}
	case DriverMemory:
		if c.SeedFile == "" {
			errs = multierr.Append(errs, errors.New("--seed-file is required for the memory driver (env: DUO_SEED_FILE)"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown database driver %q (want postgres, sqlite or memory)", c.DBDriver))
	}
	if c.JWTSecret == "" {
		errs = multierr.Append(errs, errors.New("--jwt-secret is required (env: JWT_SECRET)"))
	}
	if c.HubInboxSize <= 0 || c.ClientOutboxSize <= 0 {
		errs = multierr.Append(errs, errors.New("hub inbox and client outbox sizes must be positive"))
	}
	if c.WriteTimeout <= 0 || c.PingInterval <= 0 || c.ShutdownTimeout <= 0 {
		errs = multierr.Append(errs, errors.New("timeouts and ping interval must be positive"))
	}
	return errs
}

// BindFlags registers every setting on fs and lets DUO_* environment
// variables fill in flags that were not given on the command line.
// DATABASE_URL and JWT_SECRET are honoured without the prefix too.
func BindFlags(fs *pflag.FlagSet, cfg *Config) *viper.Viper {
	d := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.Addr, "addr", d.Addr, "address to listen on (env: DUO_ADDR)")
	fs.StringVar(&cfg.DBDriver, "db-driver", d.DBDriver, "postgres, sqlite or memory (env: DUO_DB_DRIVER)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "database connection string (env: DUO_DATABASE_URL, DATABASE_URL)")
	fs.BoolVar(&cfg.AutoMigrate, "auto-migrate", d.AutoMigrate, "create missing tables at startup (env: DUO_AUTO_MIGRATE)")
	fs.StringVar(&cfg.SeedFile, "seed-file", "", "YAML question file loaded at startup; required for memory (env: DUO_SEED_FILE)")
	fs.IntVar(&cfg.DBMaxOpenConns, "db-max-open-conns", d.DBMaxOpenConns, "maximum open database connections (env: DUO_DB_MAX_OPEN_CONNS)")
	fs.IntVar(&cfg.DBMaxIdleConns, "db-max-idle-conns", d.DBMaxIdleConns, "maximum idle database connections (env: DUO_DB_MAX_IDLE_CONNS)")
	fs.DurationVar(&cfg.DBConnMaxLifetime, "db-conn-max-lifetime", d.DBConnMaxLifetime, "maximum connection lifetime (env: DUO_DB_CONN_MAX_LIFETIME)")
	fs.StringVar(&cfg.LogLevel, "log-level", d.LogLevel, "debug, info, warn or error (env: DUO_LOG_LEVEL)")
	fs.BoolVar(&cfg.LogDevelopment, "log-development", d.LogDevelopment, "human-readable console logs (env: DUO_LOG_DEVELOPMENT)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HS256 secret for bearer tokens (env: DUO_JWT_SECRET, JWT_SECRET)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "websocket origin patterns, e.g. localhost:* (env: DUO_ALLOWED_ORIGINS)")
	fs.IntVar(&cfg.HubInboxSize, "hub-inbox-size", d.HubInboxSize, "buffered messages in the hub inbox (env: DUO_HUB_INBOX_SIZE)")
	fs.IntVar(&cfg.ClientOutboxSize, "client-outbox-size", d.ClientOutboxSize, "queued events per websocket before it is dropped (env: DUO_CLIENT_OUTBOX_SIZE)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", d.WriteTimeout, "websocket write timeout (env: DUO_WRITE_TIMEOUT)")
	fs.DurationVar(&cfg.PingInterval, "ping-interval", d.PingInterval, "websocket keepalive interval (env: DUO_PING_INTERVAL)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", d.ShutdownTimeout, "grace period for in-flight requests (env: DUO_SHUTDOWN_TIMEOUT)")

	// Environment values become the flag defaults; parsing still overrides them.
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		key := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if alias, ok := envAliases[f.Name]; ok {
			_ = v.BindEnv(f.Name, key, alias)
		} else {
			_ = v.BindEnv(f.Name, key)
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
	return v
}
