// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultDir is where environment config files are looked up.
const DefaultDir = "./configs"

// Load reads configuration from DefaultDir.
func Load() (*Config, *viper.Viper, error) {
	return LoadDir(DefaultDir)
}

// LoadDir reads <dir>/<APP_ENV>.yaml and environment variables, validates the
// result, and returns it with the underlying viper instance.
func LoadDir(dir string) (*Config, *viper.Viper, error) {
	// .env.local wins over .env because godotenv never overrides set variables.
	for _, file := range []string{".env.local", ".env"} {
		_ = godotenv.Load(file)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, env+".yaml"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v, env)
	if err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Watch re-reads the configuration whenever the file changes and hands the
// validated result to onChange. Invalid edits are logged and dropped.
func Watch(v *viper.Viper, cfg *Config, log *slog.Logger, onChange func(*Config)) {
	if v == nil || cfg == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	env := cfg.AppEnv
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		next, err := decode(v, env)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(next)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper, env string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "usermgmt")
	v.SetDefault("app.version", "dev")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file.enabled", false)
	v.SetDefault("logger.file.path", "")
	v.SetDefault("logger.file.max_size_mb", 100)
	v.SetDefault("logger.file.max_backups", 5)
	v.SetDefault("logger.file.max_age_days", 28)
	v.SetDefault("logger.file.compress", true)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.cache_ttl", 15*time.Minute)
	v.SetDefault("redis.key_prefix", "usermgmt:")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("sentry.flush_timeout", 2*time.Second)

	v.SetDefault("shutdown.hook_timeout", time.Duration(0))

	v.SetDefault("jobs.concurrency", 10)
	v.SetDefault("jobs.daily_report_cron", "0 6 * * *")
	v.SetDefault("jobs.inactive_cleanup_cron", "0 3 * * *")
	v.SetDefault("jobs.backup_reminder_cron", "0 9 * * 1")
}
